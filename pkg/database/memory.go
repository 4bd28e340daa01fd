package database

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"linkloom/pkg/errs"
	"linkloom/pkg/models"
)

// MemoryDatabase is an in-process DatabaseInterface used for development and
// tests. All data is lost on shutdown.
type MemoryDatabase struct {
	mu          sync.RWMutex
	users       map[string]models.User           // keyed by id
	collections map[string]models.LinkCollection // keyed by user id
}

// NewMemoryDatabase creates an empty in-memory store.
func NewMemoryDatabase() *MemoryDatabase {
	return &MemoryDatabase{
		users:       make(map[string]models.User),
		collections: make(map[string]models.LinkCollection),
	}
}

// CreateUser stores a new user, enforcing email and username uniqueness.
func (db *MemoryDatabase) CreateUser(user *models.User) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if strings.EqualFold(u.Email, user.Email) || u.Username == user.Username {
			return errs.ErrConflict
		}
	}

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.CreatedAt = time.Now()
	db.users[user.ID] = *user
	return nil
}

func (db *MemoryDatabase) GetUserByEmail(email string) (*models.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	for _, u := range db.users {
		if strings.EqualFold(u.Email, email) {
			user := u
			return &user, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (db *MemoryDatabase) GetUserByEmailOrUsername(email, username string) (*models.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var byUsername *models.User
	for _, u := range db.users {
		if strings.EqualFold(u.Email, email) {
			user := u
			return &user, nil
		}
		if u.Username == username {
			user := u
			byUsername = &user
		}
	}
	if byUsername != nil {
		return byUsername, nil
	}
	return nil, errs.ErrNotFound
}

func (db *MemoryDatabase) GetUserByID(id string) (*models.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if u, ok := db.users[id]; ok {
		user := u
		return &user, nil
	}
	return nil, errs.ErrNotFound
}

// GetCollection returns the user's collection, creating an empty one on
// first read.
func (db *MemoryDatabase) GetCollection(userID string) (*models.LinkCollection, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	coll, ok := db.collections[userID]
	if !ok {
		coll = models.LinkCollection{
			UserID:    userID,
			Folders:   []models.Folder{},
			UpdatedAt: time.Now(),
		}
		db.collections[userID] = coll
	}

	out := coll
	out.Folders = models.CloneFolders(coll.Folders)
	return &out, nil
}

// ReplaceFolders overwrites the stored folder sequence, upserting the
// document if absent.
func (db *MemoryDatabase) ReplaceFolders(userID string, folders []models.Folder) (*models.LinkCollection, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	coll := models.LinkCollection{
		UserID:    userID,
		Folders:   models.CloneFolders(folders),
		UpdatedAt: time.Now(),
	}
	db.collections[userID] = coll

	out := coll
	out.Folders = models.CloneFolders(coll.Folders)
	return &out, nil
}

// ClearFolders resets the stored folder sequence to empty.
func (db *MemoryDatabase) ClearFolders(userID string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.collections[userID] = models.LinkCollection{
		UserID:    userID,
		Folders:   []models.Folder{},
		UpdatedAt: time.Now(),
	}
	return nil
}

func (db *MemoryDatabase) HealthCheck() error { return nil }

func (db *MemoryDatabase) Close() error { return nil }
