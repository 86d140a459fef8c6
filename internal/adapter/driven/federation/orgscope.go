package federation

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/pucktrack/rostersync/internal/domain/model"
	"github.com/pucktrack/rostersync/internal/domain/port/driven"
)

// withOrgScope runs call through the organization-scoping fallback chain:
//
//  1. as-is, with no organization filter;
//  2. on a client error, once more with the cached/default organization id;
//  3. on access-denied for that organization, probing every known
//     organization in listed order, caching the first that succeeds.
//
// Calls that already carry an organisationId skip the chain entirely.
// Not-found, rate-limit, and authentication errors on the data call
// short-circuit at every step: they are never treated as "try another
// organization". A failed catalog lookup never replaces the data call's
// own error unless it is a quota or credential failure.
func (c *Client) withOrgScope(ctx context.Context, params url.Values, call func(params url.Values) error) error {
	if params.Get("organisationId") != "" {
		return call(params)
	}

	err := call(params)
	if err == nil || shortCircuit(err) || !isClientError(err) {
		return err
	}

	orgID, resolveErr := c.defaultOrganization(ctx)
	if resolveErr != nil {
		// Quota and credential failures on the catalog lookup must surface
		// as themselves. Anything else, a 404 catalog included, is not an
		// answer about the entity being fetched; surface the original
		// failure instead.
		if errors.Is(resolveErr, driven.ErrRateLimited) || errors.Is(resolveErr, driven.ErrAuthentication) {
			return resolveErr
		}
		return err
	}

	scoped := cloneValues(params)
	scoped.Set("organisationId", orgID)

	err = call(scoped)
	if err == nil || shortCircuit(err) || !errors.Is(err, driven.ErrAccessDenied) {
		return err
	}

	resolved, err := c.probeOrganizations(ctx, c.organizations(), params, call)
	if err != nil {
		return err
	}
	c.setDefaultOrganization(resolved)
	return nil
}

// probeOrganizations tries call once per candidate, in order, and returns
// the id of the first candidate that succeeds. A not-found, rate-limit, or
// authentication error aborts the probe immediately.
func (c *Client) probeOrganizations(ctx context.Context, candidates []model.RemoteOrganization, params url.Values, call func(params url.Values) error) (string, error) {
	var lastErr error

	for _, org := range candidates {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		scoped := cloneValues(params)
		scoped.Set("organisationId", org.ID)

		err := call(scoped)
		if err == nil {
			return org.ID, nil
		}
		if shortCircuit(err) {
			return "", err
		}
		lastErr = err
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no organizations visible to credential: %w", driven.ErrAccessDenied)
	}
	return "", lastErr
}

// defaultOrganization resolves and caches the default organization id: the
// account whose name matches the configured label, else the first listed.
func (c *Client) defaultOrganization(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.defaultOrgID != "" {
		id := c.defaultOrgID
		c.mu.Unlock()
		return id, nil
	}
	c.mu.Unlock()

	orgs, err := c.ListOrganizations(ctx)
	if err != nil {
		return "", err
	}
	if len(orgs) == 0 {
		return "", fmt.Errorf("credential has no visible organizations: %w", driven.ErrAccessDenied)
	}

	chosen := orgs[0].ID
	for _, org := range orgs {
		if strings.EqualFold(strings.TrimSpace(org.Name), strings.TrimSpace(c.orgLabel)) {
			chosen = org.ID
			break
		}
	}

	c.mu.Lock()
	c.knownOrgs = orgs
	c.defaultOrgID = chosen
	c.mu.Unlock()

	return chosen, nil
}

// organizations returns the cached organization list from the last resolve.
func (c *Client) organizations() []model.RemoteOrganization {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.knownOrgs
}

func (c *Client) setDefaultOrganization(id string) {
	c.mu.Lock()
	c.defaultOrgID = id
	c.mu.Unlock()
}

// isClientError reports whether the error carries a 4xx upstream status.
func isClientError(err error) bool {
	var apiErr *driven.APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500
}
