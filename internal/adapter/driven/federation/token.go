package federation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/pucktrack/rostersync/internal/domain/port/driven"
)

// expiryBuffer is the safety margin before a token's expiry at which it is
// treated as expiring and refreshed.
const expiryBuffer = 5 * time.Minute

// cachedToken is one live bearer token with its expiry.
type cachedToken struct {
	token     string
	expiresAt time.Time
}

func (t cachedToken) valid(now time.Time) bool {
	return t.token != "" && now.Add(expiryBuffer).Before(t.expiresAt)
}

// TokenCache holds bearer tokens keyed by (endpoint, username). It is
// injected rather than process-global so de-duplication is testable and
// isolated across test runs. Concurrent refreshes for the same key collapse
// into one in-flight authentication via singleflight.
type TokenCache struct {
	mu     sync.Mutex
	tokens map[string]cachedToken
	group  singleflight.Group
	now    func() time.Time
}

// NewTokenCache creates an empty token cache.
func NewTokenCache() *TokenCache {
	return &TokenCache{
		tokens: make(map[string]cachedToken),
		now:    time.Now,
	}
}

// tokenKey builds the cache key for one (endpoint, username) pair.
func tokenKey(endpoint, username string) string {
	return endpoint + "|" + username
}

// Token returns a valid bearer token for the key, authenticating via authFn
// when the cache is empty or within the expiry buffer. Callers requesting
// the same key while a refresh is in flight share its single outcome.
func (c *TokenCache) Token(ctx context.Context, key string, authFn func(ctx context.Context) (string, time.Time, error)) (string, error) {
	c.mu.Lock()
	cached, ok := c.tokens[key]
	now := c.now()
	c.mu.Unlock()

	if ok && cached.valid(now) {
		return cached.token, nil
	}

	result, err, _ := c.group.Do(key, func() (any, error) {
		// Re-check under the group: a concurrent winner may have
		// refreshed between the cache miss and this call.
		c.mu.Lock()
		cached, ok := c.tokens[key]
		now := c.now()
		c.mu.Unlock()
		if ok && cached.valid(now) {
			return cached.token, nil
		}

		token, expiresAt, err := authFn(ctx)
		if err != nil {
			return "", err
		}

		c.mu.Lock()
		c.tokens[key] = cachedToken{token: token, expiresAt: expiresAt}
		c.mu.Unlock()

		return token, nil
	})
	if err != nil {
		return "", err
	}

	return result.(string), nil
}

// Invalidate drops the cached token for a key, forcing the next Token call
// to re-authenticate.
func (c *TokenCache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.tokens, key)
	c.mu.Unlock()
}

// authenticate posts form-encoded credentials to the login endpoint and
// returns the bearer token and its absolute expiry. Rejected credentials
// yield ErrAuthentication; quota rejections yield ErrRateLimited and must
// never be retried.
func (c *Client) authenticate(ctx context.Context) (string, time.Time, error) {
	form := url.Values{}
	form.Set("username", c.username)
	form.Set("password", c.password)

	loginURL := strings.TrimRight(c.endpoint, "/") + "/auth/login"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, loginURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("login request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body := readBodyForError(resp.Body)
		apiErr := classifyStatus(resp.StatusCode, body)
		// Any non-quota login rejection is an authentication failure,
		// regardless of the exact upstream status.
		if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode < 500 {
			apiErr.Err = driven.ErrAuthentication
		}
		return "", time.Time{}, fmt.Errorf("login for %q: %w", c.username, apiErr)
	}

	var payload struct {
		Token     string `json:"token"`
		ExpiresIn int    `json:"expiresIn"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", time.Time{}, fmt.Errorf("decode login response: %w", err)
	}
	if payload.Token == "" {
		return "", time.Time{}, fmt.Errorf("login for %q: %w", c.username, &driven.APIError{
			StatusCode: resp.StatusCode,
			Body:       "empty token in login response",
			Err:        driven.ErrAuthentication,
		})
	}

	expiresIn := payload.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = 3600
	}

	return payload.Token, time.Now().Add(time.Duration(expiresIn) * time.Second), nil
}

// ensureAuthenticated returns a valid bearer token for this client's
// credential, refreshing through the shared cache when needed.
func (c *Client) ensureAuthenticated(ctx context.Context) (string, error) {
	return c.tokens.Token(ctx, tokenKey(c.endpoint, c.username), c.authenticate)
}
