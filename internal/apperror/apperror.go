package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for the caller.
type Kind string

const (
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindBadRequest Kind = "bad_request"
	KindInternal   Kind = "internal"
)

// Error is the error type returned across component boundaries.
// Message is safe to show to clients; Err is for logs only.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]any
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

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func BadRequest(format string, args ...any) *Error {
	return &Error{Kind: KindBadRequest, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// Internal wraps a storage or gateway failure. The wrapped error never
// reaches the client.
func Internal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// SeatConflict reports seats held by an active ticket.
func SeatConflict(seatNumbers []int) *Error {
	return &Error{
		Kind:    KindConflict,
		Message: fmt.Sprintf("seats already reserved: %v", seatNumbers),
		Details: map[string]any{"occupied_seats": seatNumbers},
	}
}

// AmountMismatch reports a cash amount that does not match the purchase total.
func AmountMismatch(expected, received string) *Error {
	return &Error{
		Kind:    KindBadRequest,
		Message: fmt.Sprintf("amount mismatch: expected %s, received %s", expected, received),
		Details: map[string]any{"expected_amount": expected, "received_amount": received},
	}
}

// WithDetail attaches a client-visible detail.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = map[string]any{}
	}
	e.Details[key] = value
	return e
}

// KindOf returns the kind of err, or KindInternal for untyped errors.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps a kind to its response status code.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindBadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Public returns the client-safe message and details for err.
func Public(err error) (string, map[string]any) {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Kind != KindInternal {
		return appErr.Message, appErr.Details
	}
	return "internal server error", nil
}
