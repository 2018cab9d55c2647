package entity

import (
	"errors"
	"fmt"
)

var (
	ErrUnreadableInput   = errors.New("unreadable input")
	ErrIncompleteData    = errors.New("incomplete data")
	ErrPersistenceFailed = errors.New("persistence failed")

	ErrQuoteProvider    = errors.New("quote provider error")
	ErrNoOffers         = errors.New("no offers available")
	ErrStoreWriteFailed = errors.New("store write failed")
	ErrMissingRoute     = errors.New("booking has no route to quote")
	ErrCycleInProgress  = errors.New("reconciliation cycle already in progress")

	ErrBookingNotFound = errors.New("booking not found")
	ErrNotTracking     = errors.New("booking is not in tracking state")
)

// ExtractionError is returned by the ingestion gateway; Kind is one of
// ErrUnreadableInput, ErrIncompleteData or ErrPersistenceFailed.
type ExtractionError struct {
	Kind   error
	Detail string
	Err    error
}

func (e *ExtractionError) Error() string {
	msg := e.Kind.Error()
	if e.Detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Detail)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Is lets errors.Is match the taxonomy kind
func (e *ExtractionError) Is(target error) bool {
	return target == e.Kind
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// NewExtractionError builds an ExtractionError of the given kind
func NewExtractionError(kind error, detail string, err error) *ExtractionError {
	return &ExtractionError{Kind: kind, Detail: detail, Err: err}
}
