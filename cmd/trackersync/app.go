package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ericfisherdev/trackersync/internal/adapter/driven/linear"
	"github.com/ericfisherdev/trackersync/internal/adapter/driven/markup"
	"github.com/ericfisherdev/trackersync/internal/adapter/driven/securestore"
	sqliteadapter "github.com/ericfisherdev/trackersync/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/trackersync/internal/application"
	"github.com/ericfisherdev/trackersync/internal/config"
	"github.com/ericfisherdev/trackersync/internal/domain/port/driven"
)

// app is the composition root shared by the commands.
type app struct {
	db          *sqliteadapter.DB
	engine      *application.SyncEngine
	connections *application.ConnectionService
	mappings    *application.MappingService
	imports     *application.ImportService
	links       *application.LinkService
}

// newApp opens the database, runs migrations and wires the services.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
	if err != nil {
		return nil, err
	}
	slog.Debug("database opened", "path", cfg.DBPath)

	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		_ = db.Close()
		return nil, err
	}

	cipher, err := newCipher(ctx, cfg)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	stores := application.Stores{
		Connections:     sqliteadapter.NewConnectionRepo(db),
		ProjectMappings: sqliteadapter.NewProjectMappingRepo(db),
		StateMappings:   sqliteadapter.NewStateMappingRepo(db),
		Tasks:           sqliteadapter.NewTaskRepo(db),
		Links:           sqliteadapter.NewLinkRepo(db),
		FieldStates:     sqliteadapter.NewFieldStateRepo(db),
		Settings:        sqliteadapter.NewSettingsRepo(db),
	}

	factory := linear.Factory(cfg.LinearAPIURL)
	converter := markup.NewConverter()

	vault := application.NewCredentialVault(cipher, stores.Settings, cfg.AllowPlaintextCredentials)
	clients := application.NewTrackerClientProvider(vault, stores.Connections, factory)

	return &app{
		db:          db,
		engine:      application.NewSyncEngine(stores, clients, converter),
		connections: application.NewConnectionService(stores.Connections, vault, clients, factory),
		mappings:    application.NewMappingService(stores, clients),
		imports:     application.NewImportService(stores, clients, converter),
		links:       application.NewLinkService(stores.Links),
	}, nil
}

func (a *app) close() {
	if err := a.db.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}

// newCipher picks the static key when one is configured, else the OS keyring.
func newCipher(ctx context.Context, cfg *config.Config) (driven.SecretCipher, error) {
	if cfg.SecretKey != "" {
		key, err := securestore.ParseKey(cfg.SecretKey)
		if err != nil {
			return nil, fmt.Errorf("TRACKERSYNC_SECRET_KEY: %w", err)
		}
		c, err := securestore.NewStaticKeyCipher(key)
		if err != nil {
			return nil, err
		}
		slog.Debug("credentials sealed with configured secret key")
		return c, nil
	}

	c := securestore.NewKeyringCipher()
	if !c.Available(ctx) {
		slog.Warn("OS keyring unavailable, credentials cannot be stored securely",
			"plaintext_override", cfg.AllowPlaintextCredentials)
	}
	return c, nil
}
