package contracts

import (
	"errors"
	"fmt"
)

// ErrInsufficientData means a series carried fewer bars (or fields) than a
// check requires. Callers treat it as "condition not satisfied", never as a
// fatal failure.
var ErrInsufficientData = errors.New("insufficient data")

// ProviderError wraps a failed collaborator call (market data, candidate
// pool). Individual checks downgrade it to a rejection reason; only a failed
// position/history load aborts a cycle.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// NewProviderError wraps err with the collaborator operation that failed.
func NewProviderError(op string, err error) *ProviderError {
	return &ProviderError{Op: op, Err: err}
}

// ComputationError reports an unexpected value inside a rule evaluation,
// e.g. division by zero on a zero-price instrument.
type ComputationError struct {
	Op  string
	Msg string
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("computation %s: %s", e.Op, e.Msg)
}
