package errors

import (
	"context"
	"fmt"
	"net"

	"github.com/cockroachdb/errors"
)

// Kind is the stable tag reported to callers for every failure.
type Kind string

const (
	KindTimeout              Kind = "Timeout"
	KindNetwork              Kind = "NetworkError"
	KindHTTPStatus           Kind = "HttpStatusError"
	KindTooManyRedirects     Kind = "TooManyRedirects"
	KindUnknownFormat        Kind = "UnknownFormat"
	KindInvalidSitemap       Kind = "InvalidSitemap"
	KindUnparseableDocument  Kind = "UnparseableDocument"
	KindInvalidSelector      Kind = "InvalidSelector"
	KindRequiredFieldMissing Kind = "RequiredFieldMissing"
	KindBatchTooLarge        Kind = "BatchTooLarge"
	KindInvalidInput         Kind = "InvalidInput"
	KindResponseTooLarge     Kind = "ResponseTooLarge"
	KindInternal             Kind = "Internal"
)

// Error is a classified failure. The cause is kept for logging and errors.Is
// but never shown to the caller.
type Error struct {
	Kind       Kind
	Message    string
	StatusCode int
	Field      string
	cause      error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New returns a classified error without a cause.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WithCause returns a classified error wrapping cause.
func WithCause(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), cause: cause}
}

func HTTPStatus(code int) *Error {
	return &Error{Kind: KindHTTPStatus, StatusCode: code, Message: fmt.Sprintf("unexpected HTTP status %d", code)}
}

func InvalidSelector(field string, cause error) *Error {
	return &Error{
		Kind:    KindInvalidSelector,
		Field:   field,
		Message: fmt.Sprintf("invalid selector for field %q: %v", field, cause),
		cause:   cause,
	}
}

func RequiredFieldMissing(field string) *Error {
	return &Error{
		Kind:    KindRequiredFieldMissing,
		Field:   field,
		Message: fmt.Sprintf("required field %q matched nothing", field),
	}
}

func InvalidInput(format string, args ...interface{}) *Error {
	return New(KindInvalidInput, format, args...)
}

// KindOf classifies err. Context deadlines and network timeouts map to
// Timeout, other net errors to NetworkError, anything unclassified to Internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) {
		if ne.Timeout() {
			return KindTimeout
		}
		return KindNetwork
	}
	return KindInternal
}

// Descriptor is the JSON shape of a failure handed to the assistant.
type Descriptor struct {
	Kind       Kind   `json:"kind"`
	Message    string `json:"message"`
	StatusCode int    `json:"status_code,omitempty"`
	Field      string `json:"field,omitempty"`
	Input      string `json:"input,omitempty"`
}

// Describe converts any error into a Descriptor. Unclassified errors get a
// generic message so transport internals stay hidden.
func Describe(err error) *Descriptor {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return &Descriptor{Kind: e.Kind, Message: e.Message, StatusCode: e.StatusCode, Field: e.Field}
	}
	switch kind := KindOf(err); kind {
	case KindTimeout:
		return &Descriptor{Kind: kind, Message: "operation timed out"}
	case KindNetwork:
		return &Descriptor{Kind: kind, Message: "network error"}
	default:
		return &Descriptor{Kind: KindInternal, Message: "internal error"}
	}
}
