package utils

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"linkloom/pkg/models"
)

// JWTService signs and validates the access/refresh token pair. Access tokens
// carry the username for display; refresh tokens carry the user id only and
// are never rotated on refresh.
type JWTService struct {
	secretKey  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewJWTService creates a token service. Zero TTLs fall back to the
// 15-minute / 7-day defaults.
func NewJWTService(secretKey string, accessTTL, refreshTTL time.Duration) *JWTService {
	if accessTTL == 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL == 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &JWTService{
		secretKey:  []byte(secretKey),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// GenerateTokenPair issues an access token and a refresh token for the user.
func (j *JWTService) GenerateTokenPair(userID, username string) (accessToken, refreshToken string, err error) {
	accessToken, err = j.GenerateAccessToken(userID, username)
	if err != nil {
		return "", "", err
	}

	now := time.Now()
	refreshClaims := &models.TokenClaims{
		UserID: userID,
		Type:   "refresh",
		Exp:    now.Add(j.refreshTTL).Unix(),
		Iat:    now.Unix(),
	}

	refreshToken, err = jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims).SignedString(j.secretKey)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return accessToken, refreshToken, nil
}

// GenerateAccessToken issues an access token binding user id and username.
func (j *JWTService) GenerateAccessToken(userID, username string) (string, error) {
	now := time.Now()
	claims := &models.TokenClaims{
		UserID:   userID,
		Username: username,
		Type:     "access",
		Exp:      now.Add(j.accessTTL).Unix(),
		Iat:      now.Unix(),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to generate access token: %w", err)
	}
	return token, nil
}

// ValidateToken parses a token and checks signature and expiry.
func (j *JWTService) ValidateToken(tokenString string) (*models.TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secretKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(*models.TokenClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}

	if time.Now().Unix() > claims.Exp {
		return nil, fmt.Errorf("token expired")
	}

	return claims, nil
}

// ValidateRefreshToken validates a token and requires the refresh type.
func (j *JWTService) ValidateRefreshToken(tokenString string) (*models.TokenClaims, error) {
	claims, err := j.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}

	if claims.Type != "refresh" {
		return nil, fmt.Errorf("invalid token type: expected refresh, got %s", claims.Type)
	}

	return claims, nil
}
