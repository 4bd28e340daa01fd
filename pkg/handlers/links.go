package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"

	"linkloom/pkg/config"
	"linkloom/pkg/database"
	"linkloom/pkg/logger"
	"linkloom/pkg/middleware"
	"linkloom/pkg/models"
	"linkloom/pkg/utils"
)

// LinksHandler serves the collection endpoints. The collection is a single
// document per user: reads return the whole folder sequence and writes
// replace it wholesale — there is no per-folder or per-link endpoint.
type LinksHandler struct {
	config *config.Config
	db     database.DatabaseInterface
	log    logger.Logger
}

func NewLinksHandler(cfg *config.Config, db database.DatabaseInterface, log logger.Logger) *LinksHandler {
	return &LinksHandler{config: cfg, db: db, log: log}
}

// GetLinks returns the user's folder sequence, lazily creating an empty
// collection on first read.
func (h *LinksHandler) GetLinks(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	coll, err := h.db.GetCollection(user.ID)
	if err != nil {
		h.log.Error("get links failed", logger.String("user_id", user.ID), logger.Error(err))
		utils.WriteInternalServerErrorResponse(w, "Server error")
		return
	}

	utils.WriteSuccessResponse(w, coll.Folders)
}

// UpdateLinks replaces the stored folder sequence with the request body.
// The body must be {"folders": [...]}; anything that is not a JSON array is
// rejected before any write. Link URLs are scheme-normalized before storage.
// Concurrent replaces race last-write-wins; the later write silently wins.
func (h *LinksHandler) UpdateLinks(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	var req struct {
		Folders json.RawMessage `json:"folders"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}

	folders, ok := decodeFolderSequence(req.Folders)
	if !ok {
		utils.WriteValidationErrorResponse(w, "Invalid data format")
		return
	}

	models.NormalizeFolders(folders)

	coll, err := h.db.ReplaceFolders(user.ID, folders)
	if err != nil {
		h.log.Error("replace links failed", logger.String("user_id", user.ID), logger.Error(err))
		utils.WriteInternalServerErrorResponse(w, "Server error")
		return
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{
		"folders": coll.Folders,
	})
}

// DeleteLinks resets the user's folder sequence to empty.
func (h *LinksHandler) DeleteLinks(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	if err := h.db.ClearFolders(user.ID); err != nil {
		h.log.Error("clear links failed", logger.String("user_id", user.ID), logger.Error(err))
		utils.WriteInternalServerErrorResponse(w, "Server error")
		return
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{
		"message": "All links deleted successfully",
	})
}

// decodeFolderSequence accepts only a JSON array of folders. A missing body,
// an object, or a scalar all fail validation.
func decodeFolderSequence(raw json.RawMessage) ([]models.Folder, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, false
	}

	var folders []models.Folder
	if err := json.Unmarshal(trimmed, &folders); err != nil {
		return nil, false
	}
	if folders == nil {
		folders = []models.Folder{}
	}
	return folders, true
}
