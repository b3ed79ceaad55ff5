package graph

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Error types for Microsoft Graph API responses.
var (
	// ErrAuth indicates credentials were missing or rejected by the
	// identity provider. Fatal at client construction time.
	ErrAuth = errors.New("graph: authentication failed")

	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("graph: not found")

	// ErrForbidden indicates the application lacks permission for the resource.
	ErrForbidden = errors.New("graph: forbidden")

	// ErrRateLimited indicates the request was throttled by Microsoft Graph.
	ErrRateLimited = errors.New("graph: rate limited")
)

// invalidTokenCode is the Graph error code that signals an expired or
// invalid bearer token and triggers the single refresh-and-retry.
const invalidTokenCode = "InvalidAuthenticationToken"

// GraphError is a non-2xx response from Microsoft Graph.
type GraphError struct {
	StatusCode int
	Code       string
	Message    string
}

// Error implements the error interface.
func (e *GraphError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("graph: status %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("graph: status %d", e.StatusCode)
}

// Is maps well-known status codes onto the package sentinel errors so
// callers can use errors.Is without inspecting status codes.
func (e *GraphError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrForbidden:
		return e.StatusCode == http.StatusForbidden
	case ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests
	}
	return false
}

// IsInvalidToken reports whether the error is the Graph invalid-token
// response that warrants a token refresh and a single retry.
func (e *GraphError) IsInvalidToken() bool {
	return e.StatusCode == http.StatusUnauthorized && e.Code == invalidTokenCode
}

// IsNotFound checks if the error is a Graph 404. Most traversal callers
// treat a missing resource as a skip, not a failure.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// graphErrorBody is the Graph OData error envelope.
type graphErrorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// newGraphError builds a GraphError from a response status and body.
func newGraphError(statusCode int, body []byte) *GraphError {
	var envelope graphErrorBody
	// A non-JSON body still yields a usable error with just the status.
	_ = json.Unmarshal(body, &envelope)
	return &GraphError{
		StatusCode: statusCode,
		Code:       envelope.Error.Code,
		Message:    envelope.Error.Message,
	}
}
