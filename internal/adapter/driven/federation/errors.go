// Package federation implements the FederationClient port against the
// external federation's HTTP API.
package federation

import (
	"io"
	"net/http"

	"github.com/pucktrack/rostersync/internal/domain/port/driven"
)

// maxErrorBodySize limits how much of an error response body is read for
// reporting, preventing unbounded allocation on large upstream responses.
const maxErrorBodySize = 64 * 1024

// readBodyForError reads at most maxErrorBodySize bytes of a response body
// for error reporting.
func readBodyForError(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return "(failed to read response body)"
	}
	if len(body) == maxErrorBodySize {
		body = append(body, []byte("... (truncated)")...)
	}
	return string(body)
}

// classifyStatus maps an upstream HTTP status to the error taxonomy,
// preserving the status and body so callers can distinguish not-found,
// access-denied, rate-limited, and transient conditions.
func classifyStatus(status int, body string) *driven.APIError {
	var kind error
	switch {
	case status == http.StatusUnauthorized:
		kind = driven.ErrAuthentication
	case status == http.StatusTooManyRequests:
		kind = driven.ErrRateLimited
	case status == http.StatusNotFound:
		kind = driven.ErrNotFound
	case status == http.StatusForbidden:
		kind = driven.ErrAccessDenied
	case status >= 500:
		kind = driven.ErrTransient
	default:
		kind = driven.ErrValidation
	}

	return &driven.APIError{StatusCode: status, Body: body, Err: kind}
}
