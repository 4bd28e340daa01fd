// Package client implements the linkloom client core: local session
// persistence, the session-guarded HTTP API client, and the optimistic
// sync client that keeps the in-memory folder state consistent with the
// server.
package client

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// DefaultTheme is the UI theme used until the user picks another one.
const DefaultTheme = "ice"

// SessionData is everything persisted locally between runs: the token pair,
// the display username, and the UI theme preference. It is keyed independent
// of any server state.
type SessionData struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	Username     string `json:"username"`
	Theme        string `json:"theme"`
}

// SessionStore persists SessionData as a JSON file.
type SessionStore struct {
	path string
}

// NewSessionStore creates a store writing to the given path.
func NewSessionStore(path string) *SessionStore {
	return &SessionStore{path: path}
}

// DefaultSessionPath places the session file under the user config dir.
func DefaultSessionPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "linkloom", "session.json"), nil
}

// Load reads the persisted session. A missing file yields an empty session
// with the default theme, not an error.
func (s *SessionStore) Load() (SessionData, error) {
	data := SessionData{Theme: DefaultTheme}

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return data, nil
		}
		return data, err
	}

	if err := json.Unmarshal(raw, &data); err != nil {
		return SessionData{Theme: DefaultTheme}, err
	}
	if data.Theme == "" {
		data.Theme = DefaultTheme
	}
	return data, nil
}

// Save writes the session file, creating the parent directory when needed.
// Tokens are credentials, so the file is user-readable only.
func (s *SessionStore) Save(data SessionData) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}

	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, raw, 0o600)
}

// Clear removes the session file. A missing file is not an error.
func (s *SessionStore) Clear() error {
	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
