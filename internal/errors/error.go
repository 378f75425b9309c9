package errors

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// transport errors
	ErrProtocolReject  = errors.New("recipient mailbox rejected")
	ErrMessageTooLarge = errors.New("message exceeds maximum size")

	// extraction errors
	ErrNoAttachment      = errors.New("no pdf attachment found")
	ErrExtractionFailure = errors.New("pdf text extraction failed")

	// account errors
	ErrTenantNotFound  = errors.New("tenant not found")
	ErrPaymentRequired = errors.New("trial expired")
	ErrInvalidInput    = errors.New("invalid input parameters")
)

// MissingFieldError reports a required report field that was absent or did not parse.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing field: %s", e.Field)
}

func NewMissingFieldError(field string) error {
	return &MissingFieldError{Field: field}
}

type Sink string

const (
	SinkSpreadsheet Sink = "spreadsheet"
	SinkPersistence Sink = "persistence"
	SinkArchive     Sink = "archive"
)

// SinkFailure wraps the error of one fan-out sink.
type SinkFailure struct {
	Sink Sink
	Err  error
}

func (e *SinkFailure) Error() string {
	return fmt.Sprintf("%s sink failed: %v", e.Sink, e.Err)
}

func (e *SinkFailure) Unwrap() error {
	return e.Err
}

func NewSinkFailure(sink Sink, err error) error {
	if err == nil {
		return nil
	}
	return &SinkFailure{Sink: sink, Err: err}
}
