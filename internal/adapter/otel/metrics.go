package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "claw-council"

// Metrics holds the council's metric instruments.
type Metrics struct {
	RoundsCreated  metric.Int64Counter
	Submissions    metric.Int64Counter
	Advances       metric.Int64Counter
	RoundsClosed   metric.Int64Counter
	PointsAwarded  metric.Int64Counter
	RejectedWrites metric.Int64Counter
	AdvanceLatency metric.Float64Histogram
}

// NewMetrics creates all metric instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.RoundsCreated, err = meter.Int64Counter("council.rounds.created",
		metric.WithDescription("Number of rounds opened"))
	if err != nil {
		return nil, err
	}

	m.Submissions, err = meter.Int64Counter("council.submissions",
		metric.WithDescription("Accepted proposals, critiques and votes"))
	if err != nil {
		return nil, err
	}

	m.Advances, err = meter.Int64Counter("council.rounds.advanced",
		metric.WithDescription("Successful phase transitions"))
	if err != nil {
		return nil, err
	}

	m.RoundsClosed, err = meter.Int64Counter("council.rounds.closed",
		metric.WithDescription("Number of rounds closed and scored"))
	if err != nil {
		return nil, err
	}

	m.PointsAwarded, err = meter.Int64Counter("council.points.awarded",
		metric.WithDescription("Points written to the score ledger"))
	if err != nil {
		return nil, err
	}

	m.RejectedWrites, err = meter.Int64Counter("council.writes.rejected",
		metric.WithDescription("Writes rejected by a guard or quorum check"))
	if err != nil {
		return nil, err
	}

	m.AdvanceLatency, err = meter.Float64Histogram("council.advance.duration_seconds",
		metric.WithDescription("Time spent deciding and applying a transition"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// Submission records one accepted submission of the given kind.
func (m *Metrics) Submission(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.Submissions.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// Rejected records a rejected write with the classified reason.
func (m *Metrics) Rejected(ctx context.Context, op, reason string) {
	if m == nil {
		return
	}
	m.RejectedWrites.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("reason", reason),
	))
}
