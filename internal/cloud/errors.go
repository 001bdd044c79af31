// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
)

// Error variables for completion failures.
var (
	// ErrNotConfigured indicates the API key is not set.
	ErrNotConfigured = errors.New("API key is missing. Please set OPENROUTER_API_KEY in your environment or .env file")

	// ErrNetworkUnreachable indicates the endpoint could not be reached.
	ErrNetworkUnreachable = errors.New("Network error. Please check your internet connection.")

	// ErrRequestTimeout indicates the endpoint did not answer in time.
	ErrRequestTimeout = errors.New("Request timed out. Please try again.")

	// ErrUnexpectedResponse indicates a successful status without a usable completion.
	ErrUnexpectedResponse = errors.New("unexpected response from completion endpoint")
)

// APIError is a non-2xx answer from the completion endpoint.
type APIError struct {
	Status  int
	Code    string
	Message string
}

// Error implements the error interface. It returns the remote message
// unchanged so it can be shown to the user as-is.
func (e *APIError) Error() string {
	return e.Message
}

// newAPIError builds an APIError, falling back to "HTTP <status>: <text>"
// when the endpoint did not supply a message.
func newAPIError(status int, statusLine, code, message string) *APIError {
	if message == "" {
		message = fmt.Sprintf("HTTP %d: %s", status, statusText(status, statusLine))
	}
	return &APIError{Status: status, Code: code, Message: message}
}

// statusText extracts the reason phrase from a status line such as
// "404 Not Found", falling back to the standard text for the code.
func statusText(status int, statusLine string) string {
	if text := strings.TrimSpace(strings.TrimPrefix(statusLine, strconv.Itoa(status))); text != "" {
		return text
	}
	return http.StatusText(status)
}

// classifyTransportError maps an error from sending a request onto the
// package's transport errors. Cancellation by the caller is returned as is.
func classifyTransportError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrRequestTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrRequestTimeout, err)
	}
	// DNS, refused connections and TLS failures all read as unreachable
	return fmt.Errorf("%w: %v", ErrNetworkUnreachable, err)
}

// UserMessage returns the text describing err in a transcript.
func UserMessage(err error) string {
	var apiErr *APIError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &apiErr):
		return apiErr.Message
	case errors.Is(err, ErrNetworkUnreachable):
		return ErrNetworkUnreachable.Error()
	case errors.Is(err, ErrRequestTimeout):
		return ErrRequestTimeout.Error()
	case errors.Is(err, ErrNotConfigured):
		return ErrNotConfigured.Error()
	default:
		return err.Error()
	}
}
