package handlers

import (
	"errors"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"linkloom/pkg/config"
	"linkloom/pkg/database"
	"linkloom/pkg/errs"
	"linkloom/pkg/logger"
	"linkloom/pkg/models"
	"linkloom/pkg/utils"
)

// AuthHandler serves the credential endpoints: register, login, refresh.
type AuthHandler struct {
	config *config.Config
	db     database.DatabaseInterface
	jwt    *utils.JWTService
	log    logger.Logger
}

func NewAuthHandler(cfg *config.Config, db database.DatabaseInterface, jwt *utils.JWTService, log logger.Logger) *AuthHandler {
	return &AuthHandler{config: cfg, db: db, jwt: jwt, log: log}
}

// Register creates a new account and its empty link collection. No tokens
// are issued; the caller logs in separately.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}

	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	password := req.Password

	if username == "" || email == "" || password == "" {
		utils.WriteValidationErrorResponse(w, "All fields are required")
		return
	}
	if len(username) < 3 {
		utils.WriteValidationErrorResponse(w, "Username must be at least 3 characters")
		return
	}
	if len(password) < 6 {
		utils.WriteValidationErrorResponse(w, "Password must be at least 6 characters")
		return
	}

	// Single combined lookup; an email conflict is reported preferentially
	// over a username conflict.
	existing, err := h.db.GetUserByEmailOrUsername(email, username)
	if err != nil && !errors.Is(err, errs.ErrNotFound) {
		h.log.Error("register: existence lookup failed", logger.Error(err))
		utils.WriteInternalServerErrorResponse(w, "Server error")
		return
	}
	if existing != nil {
		if strings.EqualFold(existing.Email, email) {
			utils.WriteConflictResponse(w, "Email already registered")
		} else {
			utils.WriteConflictResponse(w, "Username already taken")
		}
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		h.log.Error("register: hashing failed", logger.Error(err))
		utils.WriteInternalServerErrorResponse(w, "Server error")
		return
	}

	user := &models.User{
		Username: username,
		Email:    email,
		Password: string(hash),
	}
	if err := h.db.CreateUser(user); err != nil {
		if errors.Is(err, errs.ErrConflict) {
			// Raced with a concurrent registration for the same identity.
			utils.WriteConflictResponse(w, "Email already registered")
			return
		}
		h.log.Error("register: create user failed", logger.Error(err))
		utils.WriteInternalServerErrorResponse(w, "Server error")
		return
	}

	if _, err := h.db.ReplaceFolders(user.ID, []models.Folder{}); err != nil {
		h.log.Error("register: collection bootstrap failed",
			logger.String("user_id", user.ID), logger.Error(err))
		utils.WriteInternalServerErrorResponse(w, "Server error")
		return
	}

	utils.WriteCreatedResponse(w, map[string]interface{}{
		"message": "User registered successfully",
	})
}

// Login verifies credentials and issues the access/refresh token pair.
// Unknown email and wrong password are deliberately indistinguishable.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		utils.WriteValidationErrorResponse(w, "All fields are required")
		return
	}

	user, err := h.db.GetUserByEmail(email)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			utils.WriteUnauthorizedResponse(w, "Invalid email or password")
			return
		}
		h.log.Error("login: user lookup failed", logger.Error(err))
		utils.WriteInternalServerErrorResponse(w, "Server error")
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		utils.WriteUnauthorizedResponse(w, "Invalid email or password")
		return
	}

	accessToken, refreshToken, err := h.jwt.GenerateTokenPair(user.ID, user.Username)
	if err != nil {
		h.log.Error("login: token generation failed", logger.Error(err))
		utils.WriteInternalServerErrorResponse(w, "Server error")
		return
	}

	utils.WriteSuccessResponse(w, models.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Username:     user.Username,
	})
}

// Refresh issues a new access token from a valid refresh token. The refresh
// token itself is not rotated.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}

	if strings.TrimSpace(req.RefreshToken) == "" {
		utils.WriteUnauthorizedResponse(w, "Refresh token required")
		return
	}

	claims, err := h.jwt.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		utils.WriteForbiddenResponse(w, "Invalid refresh token")
		return
	}

	user, err := h.db.GetUserByID(claims.UserID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			utils.WriteForbiddenResponse(w, "User not found")
			return
		}
		h.log.Error("refresh: user lookup failed", logger.Error(err))
		utils.WriteInternalServerErrorResponse(w, "Server error")
		return
	}

	accessToken, err := h.jwt.GenerateAccessToken(user.ID, user.Username)
	if err != nil {
		h.log.Error("refresh: token generation failed", logger.Error(err))
		utils.WriteInternalServerErrorResponse(w, "Server error")
		return
	}

	utils.WriteSuccessResponse(w, models.RefreshResponse{AccessToken: accessToken})
}

// HealthCheck reports service identity and storage reachability.
func (h *AuthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"service":     "linkloom",
		"environment": h.config.Environment,
		"database":    "ok",
	}
	if err := h.db.HealthCheck(); err != nil {
		status["database"] = "unreachable"
		utils.WriteJSONResponse(w, http.StatusServiceUnavailable, status)
		return
	}
	utils.WriteSuccessResponse(w, status)
}
