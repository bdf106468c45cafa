package contracts

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is matching
var (
	ErrInput        = errors.New("invalid input")
	ErrInvalidState = errors.New("invalid state")
)

// InputError reports an empty or malformed input series.
// Raised before any simulation step; no ledger rows exist.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("input error: %s", e.Reason)
	}
	return fmt.Sprintf("input error: %s: %s", e.Field, e.Reason)
}

// Is lets errors.Is(err, ErrInput) match
func (e *InputError) Is(target error) bool {
	return target == ErrInput
}

// InvalidStateError reports a computed quantity that is undefined for the run
type InvalidStateError struct {
	Quantity string
	Reason   string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid state: %s: %s", e.Quantity, e.Reason)
}

// Is lets errors.Is(err, ErrInvalidState) match
func (e *InvalidStateError) Is(target error) bool {
	return target == ErrInvalidState
}
