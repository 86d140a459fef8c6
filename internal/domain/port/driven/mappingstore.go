package driven

import (
	"context"

	"github.com/pucktrack/rostersync/internal/domain/model"
)

// MappingStore reads the persistent local-to-external id correspondence.
// Writes happen through ReconcileStore so a local row and its mapping commit
// in one transaction.
type MappingStore interface {
	// GetByExternalID returns the mapping for (kind, externalID), or
	// nil, nil when no mapping exists.
	GetByExternalID(ctx context.Context, kind model.EntityKind, externalID string) (*model.EntityMapping, error)
	// ListByKind returns all mappings of one kind, ordered by external id.
	ListByKind(ctx context.Context, kind model.EntityKind) ([]model.EntityMapping, error)
	// MarkError records a failed reconciliation on an existing mapping
	// without touching the linked local row.
	MarkError(ctx context.Context, kind model.EntityKind, externalID, syncError string) error
}
