package pipeline

import (
	"errors"
	"fmt"
)

// Kind classifies every failure the pipeline can surface. InvalidInput and
// InvalidState are rejected synchronously and never change state; the rest
// move the pipeline backward one stage and are recoverable via retry.
type Kind string

const (
	KindInvalidInput Kind = "INVALID_INPUT"
	KindInvalidState Kind = "INVALID_STATE"
	KindNetwork      Kind = "NETWORK_ERROR"
	KindTimeout      Kind = "TIMEOUT"
	KindAuth         Kind = "AUTH_ERROR"
	KindModel        Kind = "MODEL_ERROR"
	KindPersistence  Kind = "PERSISTENCE_ERROR"
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func WrapError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the pipeline kind from an error chain. Unclassified
// errors report as NetworkError, the conservative transport default.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindNetwork
}

// MessageOf returns the human-readable message for presentation.
func MessageOf(err error) string {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Message
	}
	return err.Error()
}
