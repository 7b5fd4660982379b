package client

import (
	"errors"
	"fmt"
)

// Kind classifies a normalized API error
type Kind string

const (
	KindValidation Kind = "validation"
	KindAuth       Kind = "auth"
	KindServer     Kind = "server"
	KindNetwork    Kind = "network"
)

// Sentinels for errors.Is; every *Error unwraps to exactly one of them.
var (
	ErrValidation = errors.New("validation error")
	ErrAuth       = errors.New("unauthorized")
	ErrServer     = errors.New("server error")
	ErrNetwork    = errors.New("network error")
)

const networkErrorMessage = "Unable to reach the server. Please check your connection and try again."

// Error is the normalized {message, errors} shape returned for every failed call
type Error struct {
	Kind    Kind
	Status  int // 0 when no response was received
	Message string
	Errors  map[string][]string
	Err     error // underlying transport error, if any
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() []error {
	errs := []error{e.sentinel()}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func (e *Error) sentinel() error {
	switch e.Kind {
	case KindValidation:
		return ErrValidation
	case KindAuth:
		return ErrAuth
	case KindNetwork:
		return ErrNetwork
	default:
		return ErrServer
	}
}

// apiErrorBody is what the membership API sends on failure
type apiErrorBody struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors"`
}

func newResponseError(status int, body apiErrorBody) *Error {
	message := body.Message
	if message == "" {
		message = fmt.Sprintf("HTTP error! status: %d", status)
	}

	kind := KindServer
	switch {
	case status == 401:
		kind = KindAuth
	case status == 422 || len(body.Errors) > 0:
		kind = KindValidation
	}

	return &Error{
		Kind:    kind,
		Status:  status,
		Message: message,
		Errors:  body.Errors,
	}
}

func newNetworkError(err error) *Error {
	return &Error{
		Kind:    KindNetwork,
		Message: networkErrorMessage,
		Err:     err,
	}
}

// Message extracts a user-facing message from any error
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return "An unexpected error occurred"
}

// FieldErrors returns the per-field validation messages carried by err, or an empty map
func FieldErrors(err error) map[string][]string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Errors != nil {
		return apiErr.Errors
	}
	return map[string][]string{}
}
