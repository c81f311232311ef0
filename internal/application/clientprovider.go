package application

import (
	"context"
	"fmt"
	"sync"

	"github.com/ericfisherdev/trackersync/internal/domain/model"
	"github.com/ericfisherdev/trackersync/internal/domain/port/driven"
)

// TrackerClientProvider hands out remote clients bound to stored
// credentials. Clients are cached per credential ref; Invalidate drops a
// cached client so a replaced credential takes effect without a restart.
type TrackerClientProvider struct {
	vault       *CredentialVault
	connections driven.ConnectionStore
	factory     driven.TrackerClientFactory

	mu      sync.RWMutex
	clients map[string]driven.TrackerClient
}

// NewTrackerClientProvider creates a provider that builds clients with factory.
func NewTrackerClientProvider(vault *CredentialVault, connections driven.ConnectionStore, factory driven.TrackerClientFactory) *TrackerClientProvider {
	return &TrackerClientProvider{
		vault:       vault,
		connections: connections,
		factory:     factory,
		clients:     make(map[string]driven.TrackerClient),
	}
}

// ForCredential returns the client for the credential stored under ref.
func (p *TrackerClientProvider) ForCredential(ctx context.Context, ref string) (driven.TrackerClient, error) {
	p.mu.RLock()
	client, ok := p.clients[ref]
	p.mu.RUnlock()
	if ok {
		return client, nil
	}

	token, err := p.vault.Read(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("resolve credential: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if existing, ok := p.clients[ref]; ok {
		return existing, nil
	}
	client = p.factory(token)
	p.clients[ref] = client
	return client, nil
}

// ForConnection loads a connection and returns its client.
func (p *TrackerClientProvider) ForConnection(ctx context.Context, connectionID string) (driven.TrackerClient, *model.Connection, error) {
	if connectionID == "" {
		return nil, nil, fmt.Errorf("%w: connection id is required", model.ErrValidation)
	}

	conn, err := p.connections.GetByID(ctx, connectionID)
	if err != nil {
		return nil, nil, fmt.Errorf("load connection: %w", err)
	}
	if conn == nil {
		return nil, nil, fmt.Errorf("%w: connection %s", model.ErrNotFound, connectionID)
	}

	client, err := p.ForCredential(ctx, conn.CredentialRef)
	if err != nil {
		return nil, nil, err
	}
	return client, conn, nil
}

// Invalidate drops the cached client for ref.
func (p *TrackerClientProvider) Invalidate(ref string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.clients, ref)
}
