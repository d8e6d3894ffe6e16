package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrRequest     = errors.New("request failed")
	ErrBadResponse = errors.New("bad response")

	ErrBadRequest = errors.New("bad request")
	ErrNotFound   = errors.New("not found")
	ErrInternal   = errors.New("internal error")
)

// GatewayError is returned when the gateway responds with an error status.
// It matches ErrBadRequest, ErrNotFound or ErrInternal using errors.Is.
type GatewayError struct {
	StatusCode int
	Message    string
}

func (ge *GatewayError) Error() string {
	return fmt.Sprintf("%s (status %d)", ge.Message, ge.StatusCode)
}

func (ge *GatewayError) Is(target error) bool {
	switch target {
	case ErrBadRequest:
		return ge.StatusCode >= http.StatusBadRequest && ge.StatusCode < http.StatusInternalServerError && ge.StatusCode != http.StatusNotFound
	case ErrNotFound:
		return ge.StatusCode == http.StatusNotFound
	case ErrInternal:
		return ge.StatusCode >= http.StatusInternalServerError
	}
	return false
}

func newErrorFromResponse(statusCode int, body []byte) error {
	report := struct {
		Error string `json:"error"`
	}{}

	if err := json.Unmarshal(body, &report); err != nil || report.Error == "" {
		report.Error = http.StatusText(statusCode)
	}

	return &GatewayError{StatusCode: statusCode, Message: report.Error}
}
