package driven

import (
	"context"

	"github.com/pucktrack/rostersync/internal/domain/model"
)

// GroupFilter narrows a group listing. An empty OrganizationID lets the
// client run its organization-scoping fallback; a set one pins the scope.
type GroupFilter struct {
	OrganizationID string
	SeasonID       string
	GroupIDs       []string
}

// FederationClient is the driven port for the external federation API. One
// client serves one credential; authentication and token refresh happen
// transparently inside the adapter. All errors are classified *APIError
// values wrapping the taxonomy sentinels.
type FederationClient interface {
	// ListOrganizations returns the accounts visible to the credential.
	ListOrganizations(ctx context.Context) ([]model.RemoteOrganization, error)
	// ListSeasons returns the season catalog.
	ListSeasons(ctx context.Context) ([]model.RemoteSeason, error)
	// ListGroups returns group rows matching the filter, paginated
	// transparently and classified into full and relation rows.
	ListGroups(ctx context.Context, filter GroupFilter) ([]model.RemoteGroup, error)
	// ListGroupContacts returns the membership of one group.
	ListGroupContacts(ctx context.Context, groupID string) ([]model.RemoteContact, error)
	// GetContactsByIDs fetches contacts by id, chunked to the API's
	// observed per-call cap and merged.
	GetContactsByIDs(ctx context.Context, ids []string) ([]model.RemoteContact, error)
}

// ClientFactory builds a FederationClient for a decrypted credential.
// Clients for the same (endpoint, username) share one token cache entry.
type ClientFactory interface {
	ClientFor(cred model.FederationCredential) FederationClient
}
