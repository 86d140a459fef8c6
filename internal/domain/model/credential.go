package model

import "time"

// FederationCredential holds an account for the external federation API.
// Password is stored encrypted at rest; the Secret field only carries the
// plaintext in memory after the vault has decrypted it, and is never
// persisted or logged.
type FederationCredential struct {
	ID             int64
	OrgLabel       string // Display label of the organization this account belongs to.
	Username       string
	Secret         string // Decrypted password; empty on rows loaded without vault access.
	Endpoint       string // Base URL of the federation API.
	Active         bool
	LastVerifiedAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// EncryptedCredential is the at-rest shape of a credential row. The vault is
// the only component that converts between this and FederationCredential.
type EncryptedCredential struct {
	ID             int64
	OrgLabel       string
	Username       string
	Ciphertext     string // Base64-encoded AES-GCM ciphertext.
	IV             string // Base64-encoded nonce, unique per encryption.
	Endpoint       string
	Active         bool
	LastVerifiedAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
