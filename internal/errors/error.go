package errors

import (
	stderrors "errors"
	"fmt"

	"github.com/vango-dev/tx/pkg/exchange"
	"github.com/vango-dev/tx/pkg/region"
	"github.com/vango-dev/tx/pkg/snapshot"
)

// Category represents the type of error.
type Category string

const (
	CategoryExchange  Category = "exchange"
	CategoryRegion    Category = "region"
	CategoryTransport Category = "transport"
	CategorySnapshot  Category = "snapshot"
	CategoryConfig    Category = "config"
	CategoryCLI       Category = "cli"
)

// TxError is a structured error with a code, a category and a hint.
type TxError struct {
	// Code is a unique error identifier (e.g., "E001").
	Code string

	// Category is the error type.
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *TxError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *TxError) Unwrap() error {
	return e.Wrapped
}

// WithDetail adds a detailed explanation to the error.
func (e *TxError) WithDetail(d string) *TxError {
	e.Detail = d
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *TxError) WithSuggestion(s string) *TxError {
	e.Suggestion = s
	return e
}

// Wrap wraps another error.
func (e *TxError) Wrap(err error) *TxError {
	e.Wrapped = err
	return e
}

// New creates a TxError from a registered error code.
func New(code string) *TxError {
	template, ok := registry[code]
	if !ok {
		return &TxError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &TxError{
		Code:       code,
		Category:   template.Category,
		Message:    template.Message,
		Detail:     template.Detail,
		Suggestion: template.Suggestion,
	}
}

// Newf creates a new TxError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *TxError {
	return &TxError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in a TxError with the given code.
func FromError(err error, code string) *TxError {
	if err == nil {
		return nil
	}
	var te *TxError
	if stderrors.As(err, &te) {
		return te
	}
	return New(code).Wrap(err)
}

// Classify maps err onto the registered code for the sentinel it wraps.
// Errors of unknown kind are returned with an empty code.
func Classify(err error) *TxError {
	if err == nil {
		return nil
	}
	var te *TxError
	if stderrors.As(err, &te) {
		return te
	}
	var tre *exchange.TransportError
	switch {
	case stderrors.Is(err, exchange.ErrMissingState):
		return New("E001").Wrap(err)
	case stderrors.Is(err, exchange.ErrInvalidState):
		return New("E002").Wrap(err)
	case stderrors.Is(err, region.ErrMissingMarkers):
		return New("E003").Wrap(err)
	case stderrors.As(err, &tre):
		return New("E010").Wrap(err)
	case stderrors.Is(err, snapshot.ErrNotFound):
		return New("E040").Wrap(err)
	}
	return &TxError{Message: err.Error()}
}
