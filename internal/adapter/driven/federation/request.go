package federation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/pucktrack/rostersync/internal/domain/port/driven"
)

// maxAttempts bounds how many times a transient upstream failure is retried
// before it is surfaced.
const maxAttempts = 3

// apiRequest is one logical GET against the federation API.
type apiRequest struct {
	path  string
	query url.Values
}

// loginFailure marks an error produced by the login endpoint itself, so the
// transparent re-authenticate pass never loops on rejected credentials.
type loginFailure struct {
	err error
}

func (e *loginFailure) Error() string { return e.err.Error() }
func (e *loginFailure) Unwrap() error { return e.err }

// do executes the request with bearer authentication, exactly one
// transparent re-authenticate-and-retry on an authentication-invalid
// response, and bounded exponential backoff on transient server errors.
// Rate-limited responses are returned immediately, never retried.
func (c *Client) do(ctx context.Context, r apiRequest) ([]byte, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 10 * time.Second

	var reauthed bool
	var attempts int

	for {
		body, err := c.doOnce(ctx, r)
		if err == nil {
			return body, nil
		}

		var lf *loginFailure
		if errors.As(err, &lf) {
			// Credentials the federation itself rejected; retrying the
			// login would just burn quota.
			return nil, lf.err
		}

		if errors.Is(err, driven.ErrAuthentication) && !reauthed {
			reauthed = true
			c.tokens.Invalidate(tokenKey(c.endpoint, c.username))
			continue
		}

		if !errors.Is(err, driven.ErrTransient) {
			return nil, err
		}

		attempts++
		if attempts >= maxAttempts {
			return nil, err
		}

		select {
		case <-time.After(bo.NextBackOff()):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// doOnce performs a single authenticated GET.
func (c *Client) doOnce(ctx context.Context, r apiRequest) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	token, err := c.ensureAuthenticated(ctx)
	if err != nil {
		return nil, &loginFailure{err: err}
	}

	u := c.endpoint + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request %s: %w", r.path, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("federation request %s: %w", r.path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read response %s: %w", r.path, err)
		}
		return body, nil
	}

	return nil, fmt.Errorf("federation request %s: %w", r.path, classifyStatus(resp.StatusCode, readBodyForError(resp.Body)))
}
