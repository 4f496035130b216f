// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrMalformedResponse = errors.New("malformed response")
	ErrEmptyData         = errors.New("empty option chain data")
	ErrHTMLResponse      = errors.New("upstream returned HTML document")
	ErrCycleInProgress   = errors.New("fetch cycle already in progress")
	ErrUnknownInstrument = errors.New("unknown instrument")
	ErrUnknownExpiry     = errors.New("unknown expiry")
	ErrNothingToExport   = errors.New("nothing to export")
	ErrConfigInvalid     = errors.New("invalid configuration")
	ErrStoreClosed       = errors.New("store closed")
)

// TransportError represents a network-level failure talking to the proxy
// or the exchange, including non-2xx responses.
type TransportError struct {
	Endpoint   string
	StatusCode int
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transport error [%s] status %d: %s", e.Endpoint, e.StatusCode, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("transport error [%s]: %s: %v", e.Endpoint, e.Message, e.Err)
	}
	return fmt.Sprintf("transport error [%s]: %s", e.Endpoint, e.Message)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError creates a new TransportError.
func NewTransportError(endpoint string, statusCode int, message string, err error) *TransportError {
	return &TransportError{
		Endpoint:   endpoint,
		StatusCode: statusCode,
		Message:    message,
		Err:        err,
	}
}

// UpstreamFormatError is returned when a body is not the structured JSON we
// expect, typically an HTML anti-bot or error page.
type UpstreamFormatError struct {
	Source  string
	Detail  string
	Preview string
	Err     error
}

func (e *UpstreamFormatError) Error() string {
	msg := fmt.Sprintf("upstream format error [%s]", e.Source)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *UpstreamFormatError) Unwrap() error {
	return e.Err
}

// NewUpstreamFormatError creates a new UpstreamFormatError.
func NewUpstreamFormatError(source, detail, preview string, err error) *UpstreamFormatError {
	return &UpstreamFormatError{
		Source:  source,
		Detail:  detail,
		Preview: preview,
		Err:     err,
	}
}

// UpstreamEmptyError is returned when the payload parsed but carried no
// usable option records.
type UpstreamEmptyError struct {
	Instrument string
	Expiry     string
}

func (e *UpstreamEmptyError) Error() string {
	return fmt.Sprintf("upstream empty [%s %s]: %v", e.Instrument, e.Expiry, ErrEmptyData)
}

func (e *UpstreamEmptyError) Unwrap() error {
	return ErrEmptyData
}

// NewUpstreamEmptyError creates a new UpstreamEmptyError.
func NewUpstreamEmptyError(instrument, expiry string) *UpstreamEmptyError {
	return &UpstreamEmptyError{Instrument: instrument, Expiry: expiry}
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// IsFetchError reports whether err belongs to the fetch failure taxonomy.
func IsFetchError(err error) bool {
	var te *TransportError
	var fe *UpstreamFormatError
	var ee *UpstreamEmptyError
	return errors.As(err, &te) || errors.As(err, &fe) || errors.As(err, &ee) ||
		errors.Is(err, ErrMalformedResponse) || errors.Is(err, ErrEmptyData)
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
