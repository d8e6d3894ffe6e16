package gateway

import (
	"net/http"
)

// ValidationError reports client supplied data that fails a presence or format check
type ValidationError struct {
	msg string
}

func NewValidationError(msg string) ValidationError {
	return ValidationError{msg: msg}
}

func (ve ValidationError) Error() string {
	return ve.msg
}

// InvalidIDError reports an identifier that is not a well formed store identifier
type InvalidIDError struct {
	msg string
}

func NewInvalidIDError(msg string) InvalidIDError {
	return InvalidIDError{msg: msg}
}

func (iie InvalidIDError) Error() string {
	return iie.msg
}

type NotFoundError struct {
	msg string
}

func NewNotFoundError(msg string) NotFoundError {
	return NotFoundError{msg: msg}
}

func (nfe NotFoundError) Error() string {
	return nfe.msg
}

// StoreError reports a failed store call. The status code depends on the
// resource and the operation that failed.
type StoreError struct {
	msg   string
	code  int
	cause error
}

func NewStoreError(msg string, code int, cause error) StoreError {
	if msg == "" && cause != nil {
		msg = cause.Error()
	}

	return StoreError{msg: msg, code: code, cause: cause}
}

func (se StoreError) Error() string {
	return se.msg
}

func (se StoreError) Unwrap() error {
	return se.cause
}

// StatusCode returns the HTTP status to respond with
func (se StoreError) StatusCode() int {
	if se.code != 0 {
		return se.code
	}

	return http.StatusInternalServerError
}
