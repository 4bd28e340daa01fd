package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkloom/pkg/errs"
	"linkloom/pkg/models"
)

func writeEnvelope(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "data": data})
}

func writeEnvelopeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   map[string]string{"code": code, "message": message},
	})
}

func newTestClient(t *testing.T, handler http.Handler, session SessionData) (*APIClient, *SessionStore) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store := NewSessionStore(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, store.Save(session))

	api, err := NewAPIClient(srv.URL, store)
	require.NoError(t, err)
	return api, store
}

func TestLoginSavesSession(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req models.LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "alice@example.com", req.Email)
		writeEnvelope(w, http.StatusOK, models.LoginResponse{
			AccessToken:  "access-1",
			RefreshToken: "refresh-1",
			Username:     "alice",
		})
	})

	api, store := newTestClient(t, mux, SessionData{Theme: DefaultTheme})

	username, err := api.Login(context.Background(), "alice@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "alice", username)
	assert.True(t, api.LoggedIn())

	persisted, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "access-1", persisted.AccessToken)
	assert.Equal(t, "refresh-1", persisted.RefreshToken)
	assert.Equal(t, "alice", persisted.Username)
	assert.Equal(t, DefaultTheme, persisted.Theme)
}

func TestLoginInvalidCredentials(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelopeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid email or password")
	})

	api, _ := newTestClient(t, mux, SessionData{})

	_, err := api.Login(context.Background(), "alice@example.com", "wrong")
	assert.ErrorIs(t, err, errs.ErrInvalidCredentials)
	assert.False(t, api.LoggedIn())
}

func TestRegisterConflict(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/register", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelopeError(w, http.StatusBadRequest, "CONFLICT", "Email already registered")
	})

	api, _ := newTestClient(t, mux, SessionData{})

	err := api.Register(context.Background(), "alice", "alice@example.com", "secret1")
	assert.ErrorIs(t, err, errs.ErrConflict)
}

func TestGetLinksAttachesBearer(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/links", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer access-1", r.Header.Get("Authorization"))
		writeEnvelope(w, http.StatusOK, []models.Folder{{Name: "work", Links: []models.Link{}}})
	})

	api, _ := newTestClient(t, mux, SessionData{AccessToken: "access-1", RefreshToken: "refresh-1"})

	folders, err := api.GetLinks(context.Background())
	require.NoError(t, err)
	require.Len(t, folders, 1)
	assert.Equal(t, "work", folders[0].Name)
}

func TestSilentRefreshRetriesOnce(t *testing.T) {
	refreshCalls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/links", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer stale" {
			writeEnvelopeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token")
			return
		}
		assert.Equal(t, "Bearer fresh", r.Header.Get("Authorization"))
		writeEnvelope(w, http.StatusOK, []models.Folder{})
	})
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls++
		var req models.RefreshRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "refresh-1", req.RefreshToken)
		writeEnvelope(w, http.StatusOK, models.RefreshResponse{AccessToken: "fresh"})
	})

	api, store := newTestClient(t, mux, SessionData{AccessToken: "stale", RefreshToken: "refresh-1", Username: "alice"})

	_, err := api.GetLinks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, refreshCalls)

	// the fresh access token is persisted, the refresh token is kept as-is
	persisted, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "fresh", persisted.AccessToken)
	assert.Equal(t, "refresh-1", persisted.RefreshToken)
}

func TestFailedRefreshExpiresSession(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/links", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelopeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token")
	})
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelopeError(w, http.StatusForbidden, "FORBIDDEN", "Invalid refresh token")
	})

	api, store := newTestClient(t, mux, SessionData{
		AccessToken: "stale", RefreshToken: "stale-refresh", Username: "alice", Theme: "slate",
	})

	_, err := api.GetLinks(context.Background())
	assert.ErrorIs(t, err, errs.ErrSessionExpired)
	assert.False(t, api.LoggedIn())

	// tokens and username are gone, the theme preference survives
	persisted, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, persisted.AccessToken)
	assert.Empty(t, persisted.RefreshToken)
	assert.Empty(t, persisted.Username)
	assert.Equal(t, "slate", persisted.Theme)
}

func TestNoTokenMeansSessionExpired(t *testing.T) {
	api, _ := newTestClient(t, http.NewServeMux(), SessionData{})

	_, err := api.GetLinks(context.Background())
	assert.ErrorIs(t, err, errs.ErrSessionExpired)
}

func TestTransportFailureIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NewServeMux())
	store := NewSessionStore(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, store.Save(SessionData{AccessToken: "a", RefreshToken: "r"}))
	api, err := NewAPIClient(srv.URL, store)
	require.NoError(t, err)
	srv.Close()

	_, err = api.GetLinks(context.Background())
	assert.ErrorIs(t, err, errs.ErrNetwork)
}

func TestPutLinksSendsAndEchoes(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/links", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		var req struct {
			Folders []models.Folder `json:"folders"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		writeEnvelope(w, http.StatusOK, map[string]interface{}{"folders": req.Folders})
	})

	api, _ := newTestClient(t, mux, SessionData{AccessToken: "a", RefreshToken: "r"})

	in := []models.Folder{{Name: "work", Links: []models.Link{{Title: "ci", URL: "https://ci.example.com"}}}}
	out, err := api.PutLinks(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestLogoutKeepsTheme(t *testing.T) {
	api, store := newTestClient(t, http.NewServeMux(), SessionData{
		AccessToken: "a", RefreshToken: "r", Username: "alice", Theme: "slate",
	})

	require.NoError(t, api.Logout())
	assert.False(t, api.LoggedIn())

	persisted, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, persisted.AccessToken)
	assert.Equal(t, "slate", persisted.Theme)
}
