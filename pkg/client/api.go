package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"linkloom/pkg/errs"
	"linkloom/pkg/models"
)

// APIClient talks to the linkloom server and guards the session: every
// collection call carries the bearer access token, and an auth failure
// triggers one silent refresh-and-retry before the cached tokens are
// discarded and the user is forced to re-authenticate.
type APIClient struct {
	baseURL string
	httpc   *http.Client
	store   *SessionStore
	session SessionData
}

// NewAPIClient builds a client for the given server and loads any persisted
// session from the store.
func NewAPIClient(baseURL string, store *SessionStore) (*APIClient, error) {
	session, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{},
		store:   store,
		session: session,
	}, nil
}

// Session returns the current session snapshot.
func (c *APIClient) Session() SessionData {
	return c.session
}

// LoggedIn reports whether an access token is cached.
func (c *APIClient) LoggedIn() bool {
	return c.session.AccessToken != ""
}

// SetTheme persists the UI theme preference.
func (c *APIClient) SetTheme(theme string) error {
	c.session.Theme = theme
	return c.store.Save(c.session)
}

// Register creates an account. The caller must log in separately; no tokens
// are issued here.
func (c *APIClient) Register(ctx context.Context, username, email, password string) error {
	body := models.RegisterRequest{Username: username, Email: email, Password: password}
	_, err := c.doJSON(ctx, http.MethodPost, "/auth/register", body, "")
	return err
}

// Login authenticates and caches the token pair plus username. Returns the
// registered username for display.
func (c *APIClient) Login(ctx context.Context, email, password string) (string, error) {
	body := models.LoginRequest{Email: email, Password: password}
	data, err := c.doJSON(ctx, http.MethodPost, "/auth/login", body, "")
	if err != nil {
		if errors.Is(err, errs.ErrUnauthorized) {
			return "", fmt.Errorf("%w: invalid email or password", errs.ErrInvalidCredentials)
		}
		return "", err
	}

	var resp models.LoginResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("unexpected login response: %w", err)
	}

	c.session.AccessToken = resp.AccessToken
	c.session.RefreshToken = resp.RefreshToken
	c.session.Username = resp.Username
	if err := c.store.Save(c.session); err != nil {
		return "", fmt.Errorf("failed to persist session: %w", err)
	}
	return resp.Username, nil
}

// Logout discards the cached session, keeping only the theme preference.
func (c *APIClient) Logout() error {
	c.dropTokens()
	return c.store.Save(c.session)
}

// GetLinks fetches the full folder sequence.
func (c *APIClient) GetLinks(ctx context.Context) ([]models.Folder, error) {
	data, err := c.authorized(ctx, http.MethodGet, "/links", nil)
	if err != nil {
		return nil, err
	}

	var folders []models.Folder
	if err := json.Unmarshal(data, &folders); err != nil {
		return nil, fmt.Errorf("unexpected links response: %w", err)
	}
	if folders == nil {
		folders = []models.Folder{}
	}
	return folders, nil
}

// PutLinks replaces the server-side folder sequence wholesale and returns
// the persisted sequence as confirmed by the server.
func (c *APIClient) PutLinks(ctx context.Context, folders []models.Folder) ([]models.Folder, error) {
	if folders == nil {
		folders = []models.Folder{}
	}
	body := map[string]interface{}{"folders": folders}

	data, err := c.authorized(ctx, http.MethodPut, "/links", body)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Folders []models.Folder `json:"folders"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("unexpected links response: %w", err)
	}
	return resp.Folders, nil
}

// DeleteLinks resets the server-side folder sequence to empty.
func (c *APIClient) DeleteLinks(ctx context.Context) error {
	_, err := c.authorized(ctx, http.MethodDelete, "/links", nil)
	return err
}

// authorized performs a bearer-authenticated call. On an auth failure it
// attempts exactly one silent refresh and retry; if the refresh fails too,
// all cached tokens are dropped and errs.ErrSessionExpired is returned so
// the caller forces re-authentication.
func (c *APIClient) authorized(ctx context.Context, method, path string, body interface{}) (json.RawMessage, error) {
	if c.session.AccessToken == "" {
		return nil, errs.ErrSessionExpired
	}

	data, err := c.doJSON(ctx, method, path, body, c.session.AccessToken)
	if err == nil || !isAuthFailure(err) {
		return data, err
	}

	if refreshErr := c.refresh(ctx); refreshErr != nil {
		c.dropTokens()
		_ = c.store.Save(c.session)
		return nil, errs.ErrSessionExpired
	}

	return c.doJSON(ctx, method, path, body, c.session.AccessToken)
}

// refresh mints a new access token from the cached refresh token. The
// refresh token is not rotated by the server.
func (c *APIClient) refresh(ctx context.Context) error {
	if c.session.RefreshToken == "" {
		return errs.ErrSessionExpired
	}

	body := models.RefreshRequest{RefreshToken: c.session.RefreshToken}
	data, err := c.doJSON(ctx, http.MethodPost, "/auth/refresh", body, "")
	if err != nil {
		return err
	}

	var resp models.RefreshResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return fmt.Errorf("unexpected refresh response: %w", err)
	}

	c.session.AccessToken = resp.AccessToken
	return c.store.Save(c.session)
}

func (c *APIClient) dropTokens() {
	c.session.AccessToken = ""
	c.session.RefreshToken = ""
	c.session.Username = ""
}

// doJSON performs one HTTP round trip and unwraps the response envelope.
// Transport-level failures map to errs.ErrNetwork; server-reported failures
// map to the shared sentinels with the server message attached.
func (c *APIClient) doJSON(ctx context.Context, method, path string, body interface{}, bearer string) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrNetwork, err)
	}
	defer resp.Body.Close()

	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("unexpected response (%d): %w", resp.StatusCode, err)
	}

	if envelope.Success {
		return envelope.Data, nil
	}

	message := "server error"
	code := ""
	if envelope.Error != nil {
		message = envelope.Error.Message
		code = envelope.Error.Code
	}

	switch {
	case resp.StatusCode == http.StatusBadRequest && code == "CONFLICT":
		return nil, fmt.Errorf("%w: %s", errs.ErrConflict, message)
	case resp.StatusCode == http.StatusBadRequest:
		return nil, fmt.Errorf("%w: %s", errs.ErrValidation, message)
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: %s", errs.ErrUnauthorized, message)
	default:
		return nil, fmt.Errorf("%w: %s", errs.ErrInternal, message)
	}
}

func isAuthFailure(err error) bool {
	return errors.Is(err, errs.ErrUnauthorized)
}
