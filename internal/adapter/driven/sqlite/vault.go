package sqlite

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/pucktrack/rostersync/internal/domain/model"
	"github.com/pucktrack/rostersync/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CredentialVault = (*Vault)(nil)

// Vault is the SQLite implementation of the CredentialVault port. Secrets
// are encrypted with AES-256-GCM before write and decrypted after read; the
// nonce is stored in its own column and never reused across encryptions.
type Vault struct {
	db  *DB
	key []byte // 32-byte AES-256 key; nil when no master key is configured.
}

// NewVault creates a Vault from the configured master key. Keys that are not
// already 32 bytes are hashed with SHA-256 to the required length. An empty
// masterKey disables the vault: every operation returns ErrEncryptionKeyNotSet.
func NewVault(db *DB, masterKey string) *Vault {
	if masterKey == "" {
		return &Vault{db: db}
	}

	key := []byte(masterKey)
	if len(key) != 32 {
		sum := sha256.Sum256(key)
		key = sum[:]
	}

	return &Vault{db: db, key: key}
}

// Store encrypts the password and persists a new active credential,
// returning its id.
func (v *Vault) Store(ctx context.Context, orgLabel, username, password, endpoint string) (int64, error) {
	ciphertext, iv, err := v.encrypt(password)
	if err != nil {
		return 0, err
	}

	const query = `
		INSERT INTO external_credentials (org_label, username, ciphertext, iv, endpoint, active)
		VALUES (?, ?, ?, ?, ?, 1)
	`
	result, err := v.db.Writer.ExecContext(ctx, query, orgLabel, username, ciphertext, iv, endpoint)
	if err != nil {
		return 0, fmt.Errorf("store credential for %q: %w", username, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store credential for %q: %w", username, err)
	}
	return id, nil
}

// Retrieve loads and decrypts an active credential. Missing or deactivated
// credentials return ErrNotFound.
func (v *Vault) Retrieve(ctx context.Context, id int64) (model.FederationCredential, error) {
	if v.key == nil {
		return model.FederationCredential{}, driven.ErrEncryptionKeyNotSet
	}

	const query = `
		SELECT id, org_label, username, ciphertext, iv, endpoint, active, last_verified_at, created_at, updated_at
		FROM external_credentials
		WHERE id = ? AND active = 1
	`

	var enc model.EncryptedCredential
	var active int
	var lastVerified sql.NullString
	var createdAt, updatedAt string

	err := v.db.Reader.QueryRowContext(ctx, query, id).Scan(
		&enc.ID, &enc.OrgLabel, &enc.Username, &enc.Ciphertext, &enc.IV,
		&enc.Endpoint, &active, &lastVerified, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.FederationCredential{}, fmt.Errorf("credential %d: %w", id, driven.ErrNotFound)
	}
	if err != nil {
		return model.FederationCredential{}, fmt.Errorf("retrieve credential %d: %w", id, err)
	}

	secret, err := v.decrypt(enc.Ciphertext, enc.IV)
	if err != nil {
		return model.FederationCredential{}, fmt.Errorf("decrypt credential %d: %w", id, err)
	}

	cred := model.FederationCredential{
		ID:       enc.ID,
		OrgLabel: enc.OrgLabel,
		Username: enc.Username,
		Secret:   secret,
		Endpoint: enc.Endpoint,
		Active:   active != 0,
	}

	if cred.LastVerifiedAt, err = parseNullTime(lastVerified); err != nil {
		return model.FederationCredential{}, fmt.Errorf("parse last_verified_at for credential %d: %w", id, err)
	}
	if cred.CreatedAt, err = parseTime(createdAt); err != nil {
		return model.FederationCredential{}, fmt.Errorf("parse created_at for credential %d: %w", id, err)
	}
	if cred.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return model.FederationCredential{}, fmt.Errorf("parse updated_at for credential %d: %w", id, err)
	}

	return cred, nil
}

// Deactivate marks a credential inactive.
func (v *Vault) Deactivate(ctx context.Context, id int64) error {
	const query = `UPDATE external_credentials SET active = 0, updated_at = CURRENT_TIMESTAMP WHERE id = ?`

	result, err := v.db.Writer.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deactivate credential %d: %w", id, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("credential %d: %w", id, driven.ErrNotFound)
	}
	return nil
}

// MarkVerified records a successful connection verification on an active
// credential.
func (v *Vault) MarkVerified(ctx context.Context, id int64) error {
	const query = `
		UPDATE external_credentials
		SET last_verified_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND active = 1
	`

	result, err := v.db.Writer.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("mark credential %d verified: %w", id, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("credential %d: %w", id, driven.ErrNotFound)
	}
	return nil
}

// encrypt encrypts plaintext with AES-256-GCM, returning base64-encoded
// ciphertext and a fresh random nonce.
func (v *Vault) encrypt(plaintext string) (ciphertext, iv string, err error) {
	if v.key == nil {
		return "", "", driven.ErrEncryptionKeyNotSet
	}

	block, err := aes.NewCipher(v.key)
	if err != nil {
		return "", "", fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", "", fmt.Errorf("cipher.NewGCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", "", fmt.Errorf("rand nonce: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), base64.StdEncoding.EncodeToString(nonce), nil
}

// decrypt decrypts a base64-encoded AES-256-GCM ciphertext with its nonce.
// Malformed input is classified as ErrCrypto.
func (v *Vault) decrypt(ciphertext, iv string) (string, error) {
	if v.key == nil {
		return "", driven.ErrEncryptionKeyNotSet
	}

	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: base64 ciphertext: %v", driven.ErrCrypto, err)
	}
	nonce, err := base64.StdEncoding.DecodeString(iv)
	if err != nil {
		return "", fmt.Errorf("%w: base64 iv: %v", driven.ErrCrypto, err)
	}

	block, err := aes.NewCipher(v.key)
	if err != nil {
		return "", fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("cipher.NewGCM: %w", err)
	}

	if len(nonce) != gcm.NonceSize() {
		return "", fmt.Errorf("%w: iv length %d, want %d", driven.ErrCrypto, len(nonce), gcm.NonceSize())
	}

	plaintext, err := gcm.Open(nil, nonce, data, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", driven.ErrCrypto, err)
	}

	return string(plaintext), nil
}
