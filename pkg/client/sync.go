package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"linkloom/pkg/errs"
	"linkloom/pkg/models"
)

// CollectionAPI is the server surface the sync client needs. *APIClient
// satisfies it.
type CollectionAPI interface {
	GetLinks(ctx context.Context) ([]models.Folder, error)
	PutLinks(ctx context.Context, folders []models.Folder) ([]models.Folder, error)
}

// Renderer is notified whenever the local folder state changes and the UI
// should repaint.
type Renderer func(folders []models.Folder)

// Notifier surfaces user-facing messages (validation failures, sync errors).
type Notifier func(message string)

// Confirmer asks the user to approve a destructive action.
type Confirmer func(prompt string) bool

// compensation selects how a failed persist is rolled back: additions undo
// the optimistic local change, while removals and reorders reload the whole
// collection from the server because the inverse is not reliably computable
// locally.
type compensation int

const (
	compensateUndo compensation = iota
	compensateReload
)

// SyncClient keeps a local mirror of the folder sequence and pushes every
// mutation to the server optimistically. One mutation is in flight at a
// time; a failed push is compensated before the next mutation is accepted.
type SyncClient struct {
	mu      sync.Mutex
	api     CollectionAPI
	folders []models.Folder

	render  Renderer
	notify  Notifier
	confirm Confirmer
}

// NewSyncClient builds a sync client around the given API. The hooks may be
// nil, in which case rendering and notifications are dropped and destructive
// actions are auto-approved.
func NewSyncClient(api CollectionAPI, render Renderer, notify Notifier, confirm Confirmer) *SyncClient {
	if render == nil {
		render = func([]models.Folder) {}
	}
	if notify == nil {
		notify = func(string) {}
	}
	if confirm == nil {
		confirm = func(string) bool { return true }
	}
	return &SyncClient{
		api:     api,
		folders: []models.Folder{},
		render:  render,
		notify:  notify,
		confirm: confirm,
	}
}

// Folders returns a deep copy of the current local state.
func (s *SyncClient) Folders() []models.Folder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.CloneFolders(s.folders)
}

// Load replaces the local state with the server's collection. On failure the
// previous local state is kept.
func (s *SyncClient) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	folders, err := s.api.GetLinks(ctx)
	if err != nil {
		s.notify(syncFailureMessage(err))
		return err
	}

	s.folders = folders
	s.render(models.CloneFolders(s.folders))
	return nil
}

// AddFolder appends an empty named folder.
func (s *SyncClient) AddFolder(ctx context.Context, name string) error {
	if name == "" {
		s.notify("Please enter a collection name")
		return errs.ErrValidation
	}

	return s.applyMutation(ctx, compensateUndo, func(folders []models.Folder) ([]models.Folder, error) {
		return append(folders, models.Folder{Name: name, Links: []models.Link{}}), nil
	})
}

// AddLink appends a link to the folder at folderIndex. The URL is normalized
// to carry an http(s) scheme before it is stored.
func (s *SyncClient) AddLink(ctx context.Context, folderIndex int, title, rawURL string) error {
	if title == "" || rawURL == "" {
		s.notify("Please fill in both fields")
		return errs.ErrValidation
	}

	return s.applyMutation(ctx, compensateUndo, func(folders []models.Folder) ([]models.Folder, error) {
		if folderIndex < 0 || folderIndex >= len(folders) {
			return nil, fmt.Errorf("%w: no folder at index %d", errs.ErrValidation, folderIndex)
		}
		link := models.Link{Title: title, URL: models.NormalizeURL(rawURL)}
		folders[folderIndex].Links = append(folders[folderIndex].Links, link)
		return folders, nil
	})
}

// DeleteLink removes one link after user confirmation.
func (s *SyncClient) DeleteLink(ctx context.Context, folderIndex, linkIndex int) error {
	if !s.confirm("Are you sure you want to delete this link?") {
		return nil
	}

	return s.applyMutation(ctx, compensateReload, func(folders []models.Folder) ([]models.Folder, error) {
		if folderIndex < 0 || folderIndex >= len(folders) {
			return nil, fmt.Errorf("%w: no folder at index %d", errs.ErrValidation, folderIndex)
		}
		links := folders[folderIndex].Links
		if linkIndex < 0 || linkIndex >= len(links) {
			return nil, fmt.Errorf("%w: no link at index %d", errs.ErrValidation, linkIndex)
		}
		folders[folderIndex].Links = append(links[:linkIndex], links[linkIndex+1:]...)
		return folders, nil
	})
}

// DeleteFolder removes a whole folder and its links after user confirmation.
func (s *SyncClient) DeleteFolder(ctx context.Context, folderIndex int) error {
	if !s.confirm("Are you sure you want to delete this folder?") {
		return nil
	}

	return s.applyMutation(ctx, compensateReload, func(folders []models.Folder) ([]models.Folder, error) {
		if folderIndex < 0 || folderIndex >= len(folders) {
			return nil, fmt.Errorf("%w: no folder at index %d", errs.ErrValidation, folderIndex)
		}
		return append(folders[:folderIndex], folders[folderIndex+1:]...), nil
	})
}

// Reorder moves the folder at oldIndex so that it sits at newIndex. Equal
// indices are a no-op and nothing is persisted.
func (s *SyncClient) Reorder(ctx context.Context, oldIndex, newIndex int) error {
	if oldIndex == newIndex {
		return nil
	}

	return s.applyMutation(ctx, compensateReload, func(folders []models.Folder) ([]models.Folder, error) {
		if oldIndex < 0 || oldIndex >= len(folders) || newIndex < 0 || newIndex >= len(folders) {
			return nil, fmt.Errorf("%w: reorder indices out of range", errs.ErrValidation)
		}
		return models.MoveFolder(folders, oldIndex, newIndex), nil
	})
}

// Import replaces the whole collection with a folder sequence read from r.
// The payload must be a JSON array; anything else is rejected before any
// state is touched.
func (s *SyncClient) Import(ctx context.Context, r io.Reader) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		s.notify("Invalid file format")
		return fmt.Errorf("%w: %v", errs.ErrValidation, err)
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		s.notify("Invalid file format")
		return fmt.Errorf("%w: import payload must be a JSON array", errs.ErrValidation)
	}

	var folders []models.Folder
	if err := json.Unmarshal(trimmed, &folders); err != nil {
		s.notify("Invalid file format")
		return fmt.Errorf("%w: %v", errs.ErrValidation, err)
	}
	models.NormalizeFolders(folders)

	return s.applyMutation(ctx, compensateReload, func([]models.Folder) ([]models.Folder, error) {
		return folders, nil
	})
}

// Export writes the current local state as indented JSON. No network call is
// made; the export reflects the local mirror.
func (s *SyncClient) Export(w io.Writer) error {
	s.mu.Lock()
	folders := models.CloneFolders(s.folders)
	s.mu.Unlock()

	raw, err := json.MarshalIndent(folders, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode collection: %w", err)
	}
	if _, err := w.Write(raw); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	return nil
}

// applyMutation runs one optimistic mutation: mutate a working copy, render
// it, push it, and on push failure either restore the saved copy or reload
// from the server depending on the compensation policy.
func (s *SyncClient) applyMutation(ctx context.Context, policy compensation, mutate func([]models.Folder) ([]models.Folder, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	saved := models.CloneFolders(s.folders)

	next, err := mutate(models.CloneFolders(s.folders))
	if err != nil {
		if errors.Is(err, errs.ErrValidation) {
			s.notify(err.Error())
		}
		return err
	}

	s.folders = next
	s.render(models.CloneFolders(s.folders))

	persisted, err := s.api.PutLinks(ctx, s.folders)
	if err != nil {
		s.compensate(ctx, policy, saved)
		s.notify(syncFailureMessage(err))
		return err
	}

	s.folders = persisted
	return nil
}

// compensate rolls local state back after a failed push. Reload falls back
// to the saved copy when the server cannot be reached either.
func (s *SyncClient) compensate(ctx context.Context, policy compensation, saved []models.Folder) {
	switch policy {
	case compensateUndo:
		s.folders = saved
	case compensateReload:
		folders, err := s.api.GetLinks(ctx)
		if err != nil {
			s.folders = saved
		} else {
			s.folders = folders
		}
	}
	s.render(models.CloneFolders(s.folders))
}

func syncFailureMessage(err error) string {
	switch {
	case errors.Is(err, errs.ErrSessionExpired):
		return "Session expired, please log in again"
	case errors.Is(err, errs.ErrNetwork):
		return "Could not reach the server, changes were not saved"
	default:
		return "Failed to save changes"
	}
}
