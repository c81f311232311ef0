package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/ericfisherdev/trackersync/internal/domain/model"
	"github.com/ericfisherdev/trackersync/internal/domain/port/driven"
)

// ConnectInput carries the credential for a new or refreshed connection.
type ConnectInput struct {
	Provider model.Provider
	APIKey   string
	Label    string // Optional; defaults to the remote account's email or name.
}

// ConnectionService manages authenticated bindings to remote workspaces.
type ConnectionService struct {
	connections driven.ConnectionStore
	vault       *CredentialVault
	clients     *TrackerClientProvider
	factory     driven.TrackerClientFactory
}

// NewConnectionService creates a new ConnectionService.
func NewConnectionService(
	connections driven.ConnectionStore,
	vault *CredentialVault,
	clients *TrackerClientProvider,
	factory driven.TrackerClientFactory,
) *ConnectionService {
	return &ConnectionService{
		connections: connections,
		vault:       vault,
		clients:     clients,
		factory:     factory,
	}
}

// Connect verifies the credential against the remote, stores it in the
// vault and upserts the connection for the remote workspace. Reconnecting to
// the same workspace replaces the stored credential in place.
func (s *ConnectionService) Connect(ctx context.Context, in ConnectInput) (model.ConnectionPublic, error) {
	if in.Provider == "" {
		in.Provider = model.ProviderLinear
	}
	if !in.Provider.Valid() {
		return model.ConnectionPublic{}, fmt.Errorf("%w: unsupported provider %q", model.ErrValidation, in.Provider)
	}
	apiKey := strings.TrimSpace(in.APIKey)
	if apiKey == "" {
		return model.ConnectionPublic{}, fmt.Errorf("%w: API key is required", model.ErrValidation)
	}

	viewer, err := s.factory(apiKey).GetViewer(ctx)
	if err != nil {
		return model.ConnectionPublic{}, fmt.Errorf("verify credential: %w", err)
	}
	if viewer.OrganizationID == "" {
		return model.ConnectionPublic{}, fmt.Errorf("%w: remote account has no workspace", model.ErrRemote)
	}

	existing, err := s.connections.GetByWorkspace(ctx, in.Provider, viewer.OrganizationID)
	if err != nil {
		return model.ConnectionPublic{}, fmt.Errorf("look up connection: %w", err)
	}

	ref := uuid.NewString()
	if existing != nil {
		ref = existing.CredentialRef
	}
	if err := s.vault.Store(ctx, ref, apiKey); err != nil {
		return model.ConnectionPublic{}, err
	}
	s.clients.Invalidate(ref)

	label := in.Label
	if label == "" {
		label = viewer.Email
	}
	if label == "" {
		label = viewer.Name
	}

	conn, err := s.connections.Upsert(ctx, model.Connection{
		Provider:      in.Provider,
		WorkspaceID:   viewer.OrganizationID,
		WorkspaceName: viewer.OrganizationName,
		AccountLabel:  label,
		CredentialRef: ref,
		Enabled:       true,
	})
	if err != nil {
		return model.ConnectionPublic{}, fmt.Errorf("save connection: %w", err)
	}

	slog.Info("connection saved",
		"connection_id", conn.ID,
		"provider", conn.Provider,
		"workspace", conn.WorkspaceName,
		"reconnected", existing != nil,
	)

	return conn.Public(), nil
}

// ListConnections returns connections without credential references. An
// empty provider lists all.
func (s *ConnectionService) ListConnections(ctx context.Context, provider model.Provider) ([]model.ConnectionPublic, error) {
	conns, err := s.connections.List(ctx, provider)
	if err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}

	public := make([]model.ConnectionPublic, 0, len(conns))
	for _, c := range conns {
		public = append(public, c.Public())
	}
	return public, nil
}

// Disconnect removes a connection, its mappings and links (by cascade) and
// its stored credential. It reports whether the connection existed.
func (s *ConnectionService) Disconnect(ctx context.Context, connectionID string) (bool, error) {
	conn, err := s.connections.GetByID(ctx, connectionID)
	if err != nil {
		return false, fmt.Errorf("load connection: %w", err)
	}
	if conn == nil {
		return false, nil
	}

	deleted, err := s.connections.Delete(ctx, connectionID)
	if err != nil {
		return false, fmt.Errorf("delete connection: %w", err)
	}

	if err := s.vault.Delete(ctx, conn.CredentialRef); err != nil {
		slog.Warn("failed to delete credential", "connection_id", connectionID, "error", err)
	}
	s.clients.Invalidate(conn.CredentialRef)

	slog.Info("connection removed", "connection_id", connectionID)
	return deleted, nil
}

// ListRemoteTeams lists the teams visible to a connection.
func (s *ConnectionService) ListRemoteTeams(ctx context.Context, connectionID string) ([]model.RemoteTeam, error) {
	client, _, err := s.clients.ForConnection(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	return client.ListTeams(ctx)
}

// ListRemoteProjects lists the projects of a remote team.
func (s *ConnectionService) ListRemoteProjects(ctx context.Context, connectionID, teamID string) ([]model.RemoteProject, error) {
	if teamID == "" {
		return nil, fmt.Errorf("%w: team id is required", model.ErrValidation)
	}
	client, _, err := s.clients.ForConnection(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	return client.ListProjects(ctx, teamID)
}
