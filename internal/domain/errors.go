// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates a concurrent modification conflict or a taken unique name.
var ErrConflict = errors.New("conflict: resource was modified by another request")

// ErrValidation indicates malformed, empty or oversized input.
var ErrValidation = errors.New("validation error")

// ErrUnauthorized indicates a missing or unknown agent credential.
var ErrUnauthorized = errors.New("unauthorized")

// ErrWrongPhase indicates an action attempted outside its valid round phase.
var ErrWrongPhase = errors.New("wrong phase")

// ErrSelfReference indicates an agent targeting its own proposal.
var ErrSelfReference = errors.New("self reference")

// ErrDuplicateSubmission indicates a uniqueness invariant violation.
var ErrDuplicateSubmission = errors.New("duplicate submission")

// ErrQuorumNotMet indicates an unmet phase-advance precondition.
var ErrQuorumNotMet = errors.New("quorum not met")

// ErrAlreadyClosed indicates an advance attempt on a closed round.
var ErrAlreadyClosed = errors.New("round is already closed")
