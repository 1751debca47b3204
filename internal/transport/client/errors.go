package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Kind classifies a failed Bitly interaction
type Kind int

const (
	KindMissingCredential Kind = iota + 1
	KindMissingInput
	KindInvalidCredential
	KindInsufficientPermission
	KindBadRequest
	KindNotFound
	KindUnexpectedStatus
	KindTransport
)

func (k Kind) String() string {
	switch k {
	case KindMissingCredential:
		return "missing_credential"
	case KindMissingInput:
		return "missing_input"
	case KindInvalidCredential:
		return "invalid_credential"
	case KindInsufficientPermission:
		return "insufficient_permission"
	case KindBadRequest:
		return "bad_request"
	case KindNotFound:
		return "not_found"
	case KindUnexpectedStatus:
		return "unexpected_status"
	case KindTransport:
		return "transport_error"
	default:
		return "unknown"
	}
}

// APIError is returned by every Client method that does not succeed
type APIError struct {
	Kind       Kind
	StatusCode int
	// Message carries the provider's message for bad requests and the
	// network error text for transport failures
	Message string
	Err     error
}

func (e *APIError) Error() string {
	switch e.Kind {
	case KindTransport:
		return fmt.Sprintf("transport error: %s", e.Message)
	case KindMissingCredential, KindMissingInput:
		return e.Message
	}
	if e.Message != "" {
		return fmt.Sprintf("bitly returned status %d (%s): %s", e.StatusCode, e.Kind, e.Message)
	}
	return fmt.Sprintf("bitly returned status %d (%s)", e.StatusCode, e.Kind)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of err, or 0 if err is not an *APIError
func KindOf(err error) Kind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return 0
}

const defaultBadRequestMessage = "Bad request"

// errorBody is the error payload the provider returns with 4xx responses
type errorBody struct {
	Message     string `json:"message"`
	Description string `json:"description"`
}

// statusError maps a non-200 response onto an *APIError
func statusError(resp *http.Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	switch resp.StatusCode {
	case http.StatusBadRequest:
		apiErr.Kind = KindBadRequest
		apiErr.Message = badRequestMessage(resp.Body)
	case http.StatusUnauthorized:
		apiErr.Kind = KindInvalidCredential
	case http.StatusForbidden:
		apiErr.Kind = KindInsufficientPermission
	case http.StatusNotFound:
		apiErr.Kind = KindNotFound
	default:
		apiErr.Kind = KindUnexpectedStatus
	}

	return apiErr
}

func badRequestMessage(body io.Reader) string {
	var payload errorBody
	if err := json.NewDecoder(io.LimitReader(body, maxErrorBody)).Decode(&payload); err != nil {
		return defaultBadRequestMessage
	}
	if payload.Message == "" {
		return defaultBadRequestMessage
	}
	return payload.Message
}

func transportError(err error) *APIError {
	return &APIError{
		Kind:    KindTransport,
		Message: err.Error(),
		Err:     err,
	}
}
