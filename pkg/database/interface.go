package database

import (
	"fmt"

	"linkloom/pkg/models"
)

// DatabaseInterface is the storage contract shared by the Postgres and
// in-memory implementations.
//
// Collection semantics: exactly one document per user, created empty on first
// read. ReplaceFolders overwrites the whole folder sequence and bumps the
// document's updated-at timestamp; concurrent replaces race last-write-wins
// with no version check.
type DatabaseInterface interface {
	// Users
	CreateUser(user *models.User) error
	GetUserByEmail(email string) (*models.User, error)
	// GetUserByEmailOrUsername returns an existing user matching either
	// field, preferring an email match when both exist.
	GetUserByEmailOrUsername(email, username string) (*models.User, error)
	GetUserByID(id string) (*models.User, error)

	// Collections
	GetCollection(userID string) (*models.LinkCollection, error)
	ReplaceFolders(userID string, folders []models.Folder) (*models.LinkCollection, error)
	ClearFolders(userID string) error

	HealthCheck() error
	Close() error
}

// DatabaseConfig selects and configures a storage backend.
type DatabaseConfig struct {
	PostgresDSN string
	UseLocalDB  bool
	Debug       bool
}

// NewDatabase picks a backend: Postgres when a DSN is configured, the
// in-memory store otherwise (development and tests only).
func NewDatabase(cfg DatabaseConfig) (DatabaseInterface, error) {
	if cfg.PostgresDSN != "" {
		return NewPostgresDatabase(cfg.PostgresDSN)
	}

	if cfg.UseLocalDB {
		return NewMemoryDatabase(), nil
	}

	return nil, fmt.Errorf("no database configured: set POSTGRES_DSN or USE_LOCAL_DB")
}
