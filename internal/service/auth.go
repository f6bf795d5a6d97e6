package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"teslabooking/internal/config"
	"teslabooking/internal/model"
	"teslabooking/internal/repository"
)

// AuthService issues access tokens, rotates refresh tokens with reuse
// detection and manages single-use password reset tokens.
type AuthService struct {
	userRepo         repository.UserRepository
	refreshTokenRepo repository.RefreshTokenRepository
	resetRepo        repository.PasswordResetRepository
	config           *config.Config
	logger           *slog.Logger
	now              func() time.Time
}

func NewAuthService(userRepo repository.UserRepository, refreshTokenRepo repository.RefreshTokenRepository, resetRepo repository.PasswordResetRepository, cfg *config.Config) *AuthService {
	return &AuthService{
		userRepo:         userRepo,
		refreshTokenRepo: refreshTokenRepo,
		resetRepo:        resetRepo,
		config:           cfg,
		logger:           slog.Default().With("component", "auth"),
		now:              time.Now,
	}
}

// GenerateTokenPair issues a new access token and persists a refresh token.
func (s *AuthService) GenerateTokenPair(ctx context.Context, user *model.User, deviceInfo, ipAddress string) (*model.TokenPair, error) {
	pair, _, err := s.issue(ctx, user, deviceInfo, ipAddress)
	return pair, err
}

// issue also returns the id of the stored refresh token.
func (s *AuthService) issue(ctx context.Context, user *model.User, deviceInfo, ipAddress string) (*model.TokenPair, string, error) {
	now := s.now()
	expiresAt := now.Add(time.Duration(s.config.AccessTokenMaxAge) * time.Second)

	accessToken, err := s.generateAccessToken(user, now, expiresAt)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshTokenRaw := uuid.New().String()
	refreshToken := &model.RefreshToken{
		UserID:    user.ID,
		TokenHash: hashToken(refreshTokenRaw),
		ExpiresAt: now.Add(time.Duration(s.config.RefreshTokenMaxAge) * time.Second),
	}
	if deviceInfo != "" {
		refreshToken.DeviceInfo = &deviceInfo
	}
	if ipAddress != "" {
		refreshToken.IPAddress = &ipAddress
	}

	if err := s.refreshTokenRepo.Create(ctx, refreshToken); err != nil {
		return nil, "", fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &model.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshTokenRaw,
		ExpiresIn:    s.config.AccessTokenMaxAge,
		ExpiresAt:    expiresAt.Unix(),
	}, refreshToken.ID, nil
}

// RefreshTokens validates the refresh token and rotates a new pair. A revoked
// token being presented again revokes every token of its user.
func (s *AuthService) RefreshTokens(ctx context.Context, refreshTokenRaw, deviceInfo, ipAddress string) (*model.TokenPair, *model.User, error) {
	token, err := s.refreshTokenRepo.FindByTokenHash(ctx, hashToken(refreshTokenRaw))
	if err != nil {
		if errors.Is(err, model.ErrRefreshTokenNotFound) {
			return nil, nil, model.ErrRefreshTokenNotFound
		}
		return nil, nil, err
	}

	if token.IsRevoked() {
		if err := s.refreshTokenRepo.RevokeAllForUser(ctx, token.UserID); err != nil {
			s.logger.Error("revoke token family failed", "user_id", token.UserID, "error", err)
		}
		return nil, nil, model.ErrRefreshTokenReused
	}
	if token.IsExpired() {
		return nil, nil, model.ErrRefreshTokenExpired
	}

	user, err := s.userRepo.GetByID(ctx, token.UserID)
	if err != nil {
		return nil, nil, err
	}

	pair, newID, err := s.issue(ctx, user, deviceInfo, ipAddress)
	if err != nil {
		return nil, nil, err
	}

	var replacedBy *string
	if newID != "" {
		replacedBy = &newID
	}
	if err := s.refreshTokenRepo.Revoke(ctx, token.ID, replacedBy); err != nil {
		s.logger.Warn("revoke rotated refresh token failed", "token_id", token.ID, "error", err)
	}

	return pair, user, nil
}

// RevokeRefreshToken ends one session. Unknown tokens are not an error.
func (s *AuthService) RevokeRefreshToken(ctx context.Context, refreshTokenRaw string) error {
	token, err := s.refreshTokenRepo.FindByTokenHash(ctx, hashToken(refreshTokenRaw))
	if err != nil {
		if errors.Is(err, model.ErrRefreshTokenNotFound) {
			return nil
		}
		return err
	}
	return s.refreshTokenRepo.Revoke(ctx, token.ID, nil)
}

func (s *AuthService) RevokeAllUserTokens(ctx context.Context, userID string) error {
	return s.refreshTokenRepo.RevokeAllForUser(ctx, userID)
}

// PurgeExpired deletes refresh tokens that expired more than olderThan ago.
func (s *AuthService) PurgeExpired(ctx context.Context, olderThan time.Duration) (int64, error) {
	return s.refreshTokenRepo.DeleteExpired(ctx, olderThan)
}

// IssuePasswordReset stores a hashed reset token and returns the raw one.
func (s *AuthService) IssuePasswordReset(ctx context.Context, userID string) (string, error) {
	raw := uuid.New().String()
	reset := &model.PasswordReset{
		UserID:    userID,
		TokenHash: hashToken(raw),
		ExpiresAt: s.now().Add(time.Duration(s.config.PasswordResetMaxAge) * time.Second),
	}
	if err := s.resetRepo.Create(ctx, reset); err != nil {
		return "", fmt.Errorf("store password reset: %w", err)
	}
	return raw, nil
}

// RedeemPasswordReset consumes a reset token and returns its user id.
func (s *AuthService) RedeemPasswordReset(ctx context.Context, raw string) (string, error) {
	reset, err := s.resetRepo.FindByTokenHash(ctx, hashToken(raw))
	if err != nil {
		return "", err
	}
	if !reset.Usable() {
		return "", model.ErrResetTokenInvalid
	}
	if err := s.resetRepo.MarkUsed(ctx, reset.ID); err != nil {
		return "", err
	}
	return reset.UserID, nil
}

// Claims are the verified contents of an access token.
type Claims struct {
	UserID string
	Email  string
}

// ParseAccessToken verifies an HS256 access token.
func (s *AuthService) ParseAccessToken(tokenString string) (*Claims, error) {
	return ParseAccessToken(tokenString, s.config.JWTSecret)
}

// ParseAccessToken verifies tokenString with secret and extracts its claims.
// Expired tokens return an error wrapping jwt.ErrTokenExpired.
func ParseAccessToken(tokenString, secret string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	userID, _ := claims["user_id"].(string)
	if userID == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	email, _ := claims["email"].(string)
	return &Claims{UserID: userID, Email: email}, nil
}

func (s *AuthService) generateAccessToken(user *model.User, now, expiresAt time.Time) (string, error) {
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"exp":     expiresAt.Unix(),
		"iat":     now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}

func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
