package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"linkloom/pkg/errs"
	"linkloom/pkg/models"
)

// PostgresDatabase is the production DatabaseInterface backed by lib/pq.
// The folder sequence is stored as a JSONB column on a one-row-per-user
// link_collections table; replace is a plain upsert, so concurrent writers
// race last-write-wins at document granularity.
type PostgresDatabase struct {
	db *sql.DB
}

// NewPostgresDatabase opens a connection pool and verifies connectivity.
func NewPostgresDatabase(dsn string) (*PostgresDatabase, error) {
	db, err := sql.Open("postgres", strings.TrimSpace(dsn))
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return &PostgresDatabase{db: db}, nil
}

// EnsureSchema creates the two tables when they do not exist yet.
func (p *PostgresDatabase) EnsureSchema() error {
	const schema = `
		CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS link_collections (
			user_id UUID PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
			folders JSONB NOT NULL DEFAULT '[]',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`
	if _, err := p.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// CreateUser inserts a user, mapping unique violations to errs.ErrConflict.
func (p *PostgresDatabase) CreateUser(user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	const query = `
		INSERT INTO users (id, username, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING created_at
	`
	err := p.db.QueryRow(query, user.ID, user.Username, user.Email, user.Password).
		Scan(&user.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return errs.ErrConflict
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (p *PostgresDatabase) GetUserByEmail(email string) (*models.User, error) {
	const query = `
		SELECT id, username, email, password_hash, created_at
		FROM users WHERE email = $1
	`
	return p.scanUser(p.db.QueryRow(query, email))
}

// GetUserByEmailOrUsername does the combined existence lookup used at
// registration. An email match is returned preferentially when separate rows
// match each field.
func (p *PostgresDatabase) GetUserByEmailOrUsername(email, username string) (*models.User, error) {
	const query = `
		SELECT id, username, email, password_hash, created_at
		FROM users
		WHERE email = $1 OR username = $2
		ORDER BY (email = $1) DESC
		LIMIT 1
	`
	return p.scanUser(p.db.QueryRow(query, email, username))
}

func (p *PostgresDatabase) GetUserByID(id string) (*models.User, error) {
	const query = `
		SELECT id, username, email, password_hash, created_at
		FROM users WHERE id = $1
	`
	return p.scanUser(p.db.QueryRow(query, id))
}

func (p *PostgresDatabase) scanUser(row *sql.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.Password, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &user, nil
}

// GetCollection returns the user's collection document, creating an empty
// one on first read.
func (p *PostgresDatabase) GetCollection(userID string) (*models.LinkCollection, error) {
	const query = `
		SELECT folders, updated_at FROM link_collections WHERE user_id = $1
	`
	var raw []byte
	coll := models.LinkCollection{UserID: userID}
	err := p.db.QueryRow(query, userID).Scan(&raw, &coll.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return p.ReplaceFolders(userID, []models.Folder{})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load collection: %w", err)
	}

	if err := json.Unmarshal(raw, &coll.Folders); err != nil {
		return nil, fmt.Errorf("failed to decode stored folders: %w", err)
	}
	if coll.Folders == nil {
		coll.Folders = []models.Folder{}
	}
	return &coll, nil
}

// ReplaceFolders overwrites the whole folder sequence, upserting the row and
// bumping updated_at. The persisted sequence is returned so callers can
// confirm the exact stored shape.
func (p *PostgresDatabase) ReplaceFolders(userID string, folders []models.Folder) (*models.LinkCollection, error) {
	if folders == nil {
		folders = []models.Folder{}
	}
	raw, err := json.Marshal(folders)
	if err != nil {
		return nil, fmt.Errorf("failed to encode folders: %w", err)
	}

	const query = `
		INSERT INTO link_collections (user_id, folders, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id)
		DO UPDATE SET folders = EXCLUDED.folders, updated_at = NOW()
		RETURNING folders, updated_at
	`
	var stored []byte
	coll := models.LinkCollection{UserID: userID}
	if err := p.db.QueryRow(query, userID, raw).Scan(&stored, &coll.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to replace folders: %w", err)
	}

	if err := json.Unmarshal(stored, &coll.Folders); err != nil {
		return nil, fmt.Errorf("failed to decode stored folders: %w", err)
	}
	if coll.Folders == nil {
		coll.Folders = []models.Folder{}
	}
	return &coll, nil
}

// ClearFolders resets the stored folder sequence to empty.
func (p *PostgresDatabase) ClearFolders(userID string) error {
	_, err := p.ReplaceFolders(userID, []models.Folder{})
	return err
}

func (p *PostgresDatabase) HealthCheck() error {
	return p.db.Ping()
}

func (p *PostgresDatabase) Close() error {
	return p.db.Close()
}
