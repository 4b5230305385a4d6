package services

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/google/uuid"

	"github.com/querydeck/querydeck/internal/engine"
	"github.com/querydeck/querydeck/internal/models"
	"github.com/querydeck/querydeck/internal/store"
)

// Environment variables consumed by Bootstrap for an env-defined remote
// connection.
const (
	envRemoteHost     = "QUERYDECK_REMOTE_HOST"
	envRemotePort     = "QUERYDECK_REMOTE_PORT"
	envRemoteUser     = "QUERYDECK_REMOTE_USER"
	envRemotePassword = "QUERYDECK_REMOTE_PASSWORD"
)

// ConnectionService manages descriptor CRUD and routes connection switches
// through the engine manager.
type ConnectionService struct {
	store   *store.Store
	manager *engine.Manager
}

func NewConnectionService(st *store.Store, m *engine.Manager) *ConnectionService {
	return &ConnectionService{store: st, manager: m}
}

// builtinEmbedded is the always-present in-process connection.
func builtinEmbedded() models.ConnectionDescriptor {
	return models.ConnectionDescriptor{
		ID:          "embedded",
		Name:        "In-Memory",
		Scope:       models.ScopeEmbedded,
		Environment: models.EnvironmentBuiltIn,
	}
}

// Bootstrap ensures the embedded engine exists, selects it as current, and
// registers an env-defined remote descriptor when the environment provides
// one.
func (s *ConnectionService) Bootstrap(ctx context.Context, profileID string) error {
	if err := s.manager.SwitchCurrent(ctx, builtinEmbedded()); err != nil {
		return err
	}

	host := os.Getenv(envRemoteHost)
	if host == "" {
		return nil
	}
	port, _ := strconv.Atoi(os.Getenv(envRemotePort))
	desc := models.ConnectionDescriptor{
		ID:          uuid.NewString(),
		Name:        "Environment Remote",
		Scope:       models.ScopeRemote,
		Environment: models.EnvironmentEnv,
		Host:        host,
		Port:        port,
		User:        os.Getenv(envRemoteUser),
		Password:    os.Getenv(envRemotePassword),
	}
	if desc.User != "" {
		desc.AuthMode = models.AuthModePassword
	}
	return s.store.Connections().Save(ctx, profileID, desc)
}

// List returns the built-in embedded descriptor followed by the profile's
// stored connections.
func (s *ConnectionService) List(ctx context.Context, profileID string) ([]models.ConnectionDescriptor, error) {
	conns, err := s.store.Connections().List(ctx, profileID)
	if err != nil {
		return nil, err
	}
	return append([]models.ConnectionDescriptor{builtinEmbedded()}, conns...), nil
}

// Save validates and persists a descriptor, generating an id for new ones.
// Name uniqueness within the profile is enforced by the storage schema.
func (s *ConnectionService) Save(ctx context.Context, profileID string, desc models.ConnectionDescriptor) (*models.ConnectionDescriptor, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	if desc.Name == "" {
		return nil, fmt.Errorf("connection name is required")
	}
	if desc.ID == "" {
		desc.ID = uuid.NewString()
	}
	if desc.Environment == "" {
		desc.Environment = models.EnvironmentApp
	}
	if err := s.store.Connections().Save(ctx, profileID, desc); err != nil {
		return nil, err
	}
	return &desc, nil
}

// Delete removes a stored descriptor. The built-in embedded connection
// cannot be deleted.
func (s *ConnectionService) Delete(ctx context.Context, profileID, id string) error {
	if id == builtinEmbedded().ID {
		return fmt.Errorf("the built-in connection cannot be deleted")
	}
	return s.store.Connections().Delete(ctx, profileID, id)
}

// Switch makes the descriptor the current query target.
func (s *ConnectionService) Switch(ctx context.Context, profileID, id string) error {
	desc := builtinEmbedded()
	if id != desc.ID {
		stored, err := s.store.Connections().Get(ctx, profileID, id)
		if err != nil {
			return err
		}
		desc = *stored
	}
	return s.manager.SwitchCurrent(ctx, desc)
}
