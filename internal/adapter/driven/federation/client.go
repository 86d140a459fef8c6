package federation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gregjones/httpcache"
	"golang.org/x/time/rate"

	"github.com/pucktrack/rostersync/internal/domain/model"
	"github.com/pucktrack/rostersync/internal/domain/port/driven"
)

// Compile-time interface satisfaction checks.
var (
	_ driven.FederationClient = (*Client)(nil)
	_ driven.ClientFactory    = (*Factory)(nil)
)

// contactIDChunkSize is the observed cap on ids per contact lookup call.
const contactIDChunkSize = 10

// Client implements the FederationClient port for one credential. All
// outbound calls within a run are sequential; the limiter paces them to
// respect the federation's undocumented rate limits.
type Client struct {
	http     *http.Client
	endpoint string
	username string
	password string
	orgLabel string
	tokens   *TokenCache
	limiter  *rate.Limiter
	pageSize int

	mu           sync.Mutex
	defaultOrgID string
	knownOrgs    []model.RemoteOrganization
}

// Factory builds federation clients sharing one HTTP transport (with
// conditional-request caching) and one token cache, so clients for the same
// (endpoint, username) reuse tokens and de-duplicate refreshes.
type Factory struct {
	http   *http.Client
	tokens *TokenCache
}

// NewFactory creates a client factory. Every outbound call carries the
// given timeout.
func NewFactory(timeout time.Duration) *Factory {
	return &Factory{
		http: &http.Client{
			Transport: httpcache.NewMemoryCacheTransport(),
			Timeout:   timeout,
		},
		tokens: NewTokenCache(),
	}
}

// ClientFor builds a client for a decrypted credential.
func (f *Factory) ClientFor(cred model.FederationCredential) driven.FederationClient {
	return NewClient(f.http, f.tokens, cred)
}

// NewClient creates a federation client. Exposed for tests; production code
// goes through the Factory.
func NewClient(httpClient *http.Client, tokens *TokenCache, cred model.FederationCredential) *Client {
	return &Client{
		http:     httpClient,
		endpoint: strings.TrimRight(cred.Endpoint, "/"),
		username: cred.Username,
		password: cred.Secret,
		orgLabel: cred.OrgLabel,
		tokens:   tokens,
		limiter:  rate.NewLimiter(rate.Every(200*time.Millisecond), 1),
		pageSize: defaultPageSize,
	}
}

// ListOrganizations returns the accounts visible to the credential. The
// organization listing is itself never organization-scoped.
func (c *Client) ListOrganizations(ctx context.Context) ([]model.RemoteOrganization, error) {
	rows, err := c.listOnce(ctx, "/organisations", nil)
	if err != nil {
		return nil, err
	}

	orgs := make([]model.RemoteOrganization, 0, len(rows))
	for _, r := range rows {
		org := decodeOrganization(r)
		if org.ID != "" {
			orgs = append(orgs, org)
		}
	}
	return orgs, nil
}

// ListSeasons returns the season catalog.
func (c *Client) ListSeasons(ctx context.Context) ([]model.RemoteSeason, error) {
	rows, err := c.listOnce(ctx, "/seasons", nil)
	if err != nil {
		return nil, err
	}

	seasons := make([]model.RemoteSeason, 0, len(rows))
	for _, r := range rows {
		season := decodeSeason(r)
		if season.ID != "" {
			seasons = append(seasons, season)
		}
	}
	return seasons, nil
}

// ListGroups returns group rows matching the filter, paginated and
// classified into full and relation rows.
func (c *Client) ListGroups(ctx context.Context, filter driven.GroupFilter) ([]model.RemoteGroup, error) {
	params := url.Values{}
	if filter.OrganizationID != "" {
		params.Set("organisationId", filter.OrganizationID)
	}
	if filter.SeasonID != "" {
		params.Set("seasonId", filter.SeasonID)
	}
	if len(filter.GroupIDs) > 0 {
		params.Set("groupIds", strings.Join(filter.GroupIDs, ","))
	}
	params = normalizeParams(params)

	var groups []model.RemoteGroup
	err := c.withOrgScope(ctx, params, func(scoped url.Values) error {
		rows, err := c.listPaged(ctx, "/groups", scoped)
		if err != nil {
			return err
		}
		groups = groups[:0]
		for _, r := range rows {
			groups = append(groups, classifyGroupRow(r))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return groups, nil
}

// ListGroupContacts returns the membership of one group.
func (c *Client) ListGroupContacts(ctx context.Context, groupID string) ([]model.RemoteContact, error) {
	if groupID == "" {
		return nil, fmt.Errorf("group id is required: %w", driven.ErrValidation)
	}

	path := "/groups/" + url.PathEscape(groupID) + "/contacts"

	var contacts []model.RemoteContact
	err := c.withOrgScope(ctx, url.Values{}, func(scoped url.Values) error {
		rows, err := c.listPaged(ctx, path, scoped)
		if err != nil {
			return err
		}
		contacts = contacts[:0]
		for _, r := range rows {
			contacts = append(contacts, decodeContact(r))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return contacts, nil
}

// GetContactsByIDs fetches contacts by id, chunked to the API's per-call cap
// and merged. If every chunked call fails with a client error, it falls back
// to fetching all contacts and filtering locally. Rate-limit and not-found
// responses propagate immediately.
func (c *Client) GetContactsByIDs(ctx context.Context, ids []string) ([]model.RemoteContact, error) {
	if len(ids) == 0 {
		return []model.RemoteContact{}, nil
	}

	var merged []model.RemoteContact
	var failed int
	var lastErr error

	for start := 0; start < len(ids); start += contactIDChunkSize {
		end := start + contactIDChunkSize
		if end > len(ids) {
			end = len(ids)
		}
		chunk := ids[start:end]

		contacts, err := c.listContacts(ctx, chunk)
		if err != nil {
			if shortCircuit(err) {
				return nil, err
			}
			failed++
			lastErr = err
			continue
		}
		merged = append(merged, contacts...)
	}

	totalChunks := (len(ids) + contactIDChunkSize - 1) / contactIDChunkSize
	if failed == 0 {
		return merged, nil
	}
	if failed < totalChunks {
		// Partial chunk failure is not silently dropped.
		return nil, fmt.Errorf("contact lookup failed for %d of %d chunks: %w", failed, totalChunks, lastErr)
	}

	// Every chunked variant failed; fetch everything and filter locally.
	all, err := c.listContacts(ctx, nil)
	if err != nil {
		return nil, err
	}

	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[strings.TrimSpace(id)] = true
	}

	filtered := make([]model.RemoteContact, 0, len(ids))
	for _, contact := range all {
		if rowHasAnyID(contact.ID, wanted) {
			filtered = append(filtered, contact)
		}
	}
	return filtered, nil
}

// listContacts lists /contacts, optionally filtered by ids.
func (c *Client) listContacts(ctx context.Context, ids []string) ([]model.RemoteContact, error) {
	params := url.Values{}
	if len(ids) > 0 {
		params.Set("contactIds", strings.Join(ids, ","))
	}
	params = normalizeParams(params)

	var contacts []model.RemoteContact
	err := c.withOrgScope(ctx, params, func(scoped url.Values) error {
		rows, err := c.listPaged(ctx, "/contacts", scoped)
		if err != nil {
			return err
		}
		contacts = contacts[:0]
		for _, r := range rows {
			contacts = append(contacts, decodeContact(r))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return contacts, nil
}

// shortCircuit reports whether an error must end any fallback or merge
// logic immediately: rate limits are never retried in any form, missing
// entities are not a scoping problem, and rejected credentials will not
// improve with a different organization.
func shortCircuit(err error) bool {
	return errors.Is(err, driven.ErrRateLimited) ||
		errors.Is(err, driven.ErrNotFound) ||
		errors.Is(err, driven.ErrAuthentication)
}
