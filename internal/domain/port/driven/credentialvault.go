package driven

import (
	"context"

	"github.com/pucktrack/rostersync/internal/domain/model"
)

// CredentialVault stores federation credentials encrypted at rest and is the
// only component that sees plaintext secrets. Retrieve returns ErrNotFound
// for missing or deactivated credentials and ErrEncryptionKeyNotSet when no
// master key is configured.
type CredentialVault interface {
	// Store encrypts and persists a credential, returning its id.
	Store(ctx context.Context, orgLabel, username, password, endpoint string) (int64, error)
	// Retrieve loads and decrypts an active credential.
	Retrieve(ctx context.Context, id int64) (model.FederationCredential, error)
	// Deactivate marks a credential inactive. Subsequent Retrieve calls
	// return ErrNotFound.
	Deactivate(ctx context.Context, id int64) error
	// MarkVerified records a successful connection verification.
	MarkVerified(ctx context.Context, id int64) error
}
