package application

import (
	"sync"

	"github.com/pucktrack/rostersync/internal/domain/model"
	"github.com/pucktrack/rostersync/internal/domain/port/driven"
)

// ClientProvider hands out federation clients per credential, reusing a
// built client for as long as the credential row is unchanged. Updating a
// credential (new password, new endpoint) takes effect on the next call
// without restarting the application.
type ClientProvider struct {
	factory driven.ClientFactory

	mu      sync.RWMutex
	clients map[int64]providerEntry
}

type providerEntry struct {
	client    driven.FederationClient
	updatedAt int64 // Unix nanos of the credential's updated_at when built.
}

// NewClientProvider creates a provider over the given factory.
func NewClientProvider(factory driven.ClientFactory) *ClientProvider {
	return &ClientProvider{
		factory: factory,
		clients: make(map[int64]providerEntry),
	}
}

// Get returns the client for a decrypted credential, building one if the
// cached client predates the credential's last update.
func (p *ClientProvider) Get(cred model.FederationCredential) driven.FederationClient {
	stamp := cred.UpdatedAt.UnixNano()

	p.mu.RLock()
	entry, ok := p.clients[cred.ID]
	p.mu.RUnlock()
	if ok && entry.updatedAt == stamp {
		return entry.client
	}

	client := p.factory.ClientFor(cred)

	p.mu.Lock()
	p.clients[cred.ID] = providerEntry{client: client, updatedAt: stamp}
	p.mu.Unlock()

	return client
}

// Drop forgets the cached client for a credential, e.g. after deactivation.
func (p *ClientProvider) Drop(credentialID int64) {
	p.mu.Lock()
	delete(p.clients, credentialID)
	p.mu.Unlock()
}
