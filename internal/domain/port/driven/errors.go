// Package driven defines the driven-side ports: the store and federation
// client interfaces the application layer depends on, plus the error
// taxonomy shared across adapters.
package driven

import (
	"errors"
	"fmt"
)

// Classification sentinels. Adapters wrap these so callers can classify with
// errors.Is without knowing which adapter produced the error.
var (
	// ErrEncryptionKeyNotSet is returned by the credential vault when no
	// master encryption key is configured.
	ErrEncryptionKeyNotSet = errors.New("encryption key not configured")

	// ErrCrypto is returned on malformed ciphertext or IV.
	ErrCrypto = errors.New("malformed ciphertext")

	// ErrNotFound covers missing or inactive local rows and 404s from the
	// federation API. Fails only the item that referenced it.
	ErrNotFound = errors.New("not found")

	// ErrAuthentication means the federation rejected the credentials.
	// Fatal for the run; never retried beyond the single token-refresh pass.
	ErrAuthentication = errors.New("authentication rejected")

	// ErrRateLimited means the federation reported quota exhaustion.
	// Never retried; always surfaced with upstream detail.
	ErrRateLimited = errors.New("rate limited by upstream")

	// ErrAccessDenied means the federation rejected the organization scope
	// of a call. Triggers the organization-fallback probe; surfaces only
	// when every known organization fails.
	ErrAccessDenied = errors.New("access denied for organization")

	// ErrTransient covers 5xx-class upstream failures. Retried with backoff
	// a bounded number of times before surfacing.
	ErrTransient = errors.New("transient upstream error")

	// ErrValidation means malformed local input, rejected before any
	// external call is made.
	ErrValidation = errors.New("invalid input")

	// ErrConflict means a sync run is already in progress for the
	// configuration. Surfaced immediately; never queued.
	ErrConflict = errors.New("sync already in progress")
)

// APIError carries the upstream HTTP status and response body alongside its
// classification sentinel, so callers can both classify with errors.Is and
// report what the federation actually said.
type APIError struct {
	StatusCode int
	Body       string
	Err        error // One of the classification sentinels above.
}

func (e *APIError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%v (status %d): %s", e.Err, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%v (status %d)", e.Err, e.StatusCode)
}

func (e *APIError) Unwrap() error { return e.Err }
