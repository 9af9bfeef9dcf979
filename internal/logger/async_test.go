package logger

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"
)

// recordingHandler collects slog.Records for test assertions.
type recordingHandler struct {
	mu      sync.Mutex
	records []slog.Record
	delay   time.Duration // optional per-record processing delay
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *recordingHandler) Handle(_ context.Context, rec slog.Record) error { //nolint:gocritic // slog.Handler interface requires value receiver
	if h.delay > 0 {
		time.Sleep(h.delay)
	}
	h.mu.Lock()
	h.records = append(h.records, rec)
	h.mu.Unlock()
	return nil
}

func (h *recordingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *recordingHandler) WithGroup(string) slog.Handler      { return h }

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.records)
}

func emit(t *testing.T, h slog.Handler, level slog.Level, msg string, n int) {
	t.Helper()
	for range n {
		if err := h.Handle(context.Background(), slog.NewRecord(time.Now(), level, msg, 0)); err != nil {
			t.Fatalf("Handle: %v", err)
		}
	}
}

func TestAsyncHandler_CloseFlushes(t *testing.T) {
	inner := &recordingHandler{}
	ah := NewAsyncHandler(inner, 1000, 2)

	emit(t, ah, slog.LevelInfo, "round advanced", 200)
	ah.Close()

	if got := inner.count(); got != 200 {
		t.Fatalf("expected 200 records after close, got %d", got)
	}
}

func TestAsyncHandler_ConcurrentWrites(t *testing.T) {
	const goroutines, perGoroutine = 50, 100

	inner := &recordingHandler{}
	ah := NewAsyncHandler(inner, goroutines*perGoroutine, 4)

	var wg sync.WaitGroup
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			emit(t, ah, slog.LevelInfo, "submission accepted", perGoroutine)
		}()
	}
	wg.Wait()
	ah.Close()

	if got := inner.count(); got != goroutines*perGoroutine {
		t.Fatalf("expected %d records, got %d", goroutines*perGoroutine, got)
	}
}

func TestAsyncHandler_FullBufferDropsInfo(t *testing.T) {
	inner := &recordingHandler{delay: 10 * time.Millisecond}
	ah := NewAsyncHandler(inner, 1, 1)

	emit(t, ah, slog.LevelInfo, "flood", 50)
	ah.Close()

	dropped := ah.DroppedCount()
	if dropped == 0 {
		t.Fatal("expected some records to be dropped, got 0")
	}
	// Delivered records plus one overflow warning.
	if got, want := inner.count(), 50-int(dropped)+1; got != want {
		t.Fatalf("expected %d records, got %d", want, got)
	}
	last := inner.records[len(inner.records)-1]
	if last.Message != "async log buffer overflow" || last.Level != slog.LevelWarn {
		t.Fatalf("expected overflow warning last, got %q at %s", last.Message, last.Level)
	}
}

func TestAsyncHandler_ErrorsWaitForRoom(t *testing.T) {
	inner := &recordingHandler{delay: time.Millisecond}
	ah := NewAsyncHandler(inner, 1, 1)

	emit(t, ah, slog.LevelError, "score ledger mismatch", 20)
	ah.Close()

	if ah.DroppedCount() != 0 {
		t.Errorf("error records must not be dropped, dropped %d", ah.DroppedCount())
	}
	if got := inner.count(); got != 20 {
		t.Errorf("expected 20 records, got %d", got)
	}
}

func TestAsyncHandler_HandleAfterClose(t *testing.T) {
	inner := &recordingHandler{}
	ah := NewAsyncHandler(inner, 10, 1)
	ah.Close()
	ah.Close()

	emit(t, ah, slog.LevelInfo, "shutting down server", 1)
	if got := inner.count(); got != 1 {
		t.Fatalf("expected synchronous write after close, got %d records", got)
	}
}

func TestAsyncHandler_DerivedHandlersShareBuffer(t *testing.T) {
	inner := &recordingHandler{}
	ah := NewAsyncHandler(inner, 100, 1)

	child := ah.WithAttrs([]slog.Attr{slog.Int64("round_id", 3)}).WithGroup("tx")
	emit(t, child, slog.LevelInfo, "child", 5)
	emit(t, ah, slog.LevelInfo, "parent", 5)

	// Closing the parent flushes records from derived handlers too.
	ah.Close()
	if got := inner.count(); got != 10 {
		t.Fatalf("expected 10 records, got %d", got)
	}
}
