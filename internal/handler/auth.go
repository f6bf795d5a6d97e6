package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"teslabooking/internal/httputil"
	"teslabooking/internal/i18n"
	"teslabooking/internal/model"
	"teslabooking/internal/service"
	"teslabooking/internal/transport/http/middleware"
	"teslabooking/internal/validation"
)

// AuthHandler groups the identity provider endpoints under /auth/v1.
type AuthHandler struct {
	userService *service.UserService
	authService *service.AuthService
	logger      *slog.Logger
}

func NewAuthHandler(userService *service.UserService, authService *service.AuthService) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		authService: authService,
		logger:      slog.Default().With("component", "auth"),
	}
}

// SignUp handles POST /auth/v1/signup
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req model.SignUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}
	lang := requestLanguage(r, "")
	t := i18n.Lookup(lang)

	user, err := h.userService.SignUp(r.Context(), &req, lang)
	if err != nil {
		var verrs validation.Errors
		switch {
		case errors.As(err, &verrs):
			httputil.WriteValidationError(w, t.T(i18n.KeyUnknownError), verrs)
		case errors.Is(err, model.ErrEmailExists):
			httputil.WriteError(w, http.StatusConflict, model.CodeEmailExists, t.T(i18n.KeyEmailExists))
		default:
			h.logger.Error("sign up failed", "error", err)
			httputil.WriteInternalError(w, t.T(i18n.KeyInternalError))
		}
		return
	}

	h.writeSession(w, r, http.StatusCreated, user)
}

// SignIn handles POST /auth/v1/token
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req model.SignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}
	lang := requestLanguage(r, "")
	t := i18n.Lookup(lang)

	user, err := h.userService.SignIn(r.Context(), &req, lang)
	if err != nil {
		var verrs validation.Errors
		switch {
		case errors.As(err, &verrs):
			httputil.WriteValidationError(w, t.T(i18n.KeyInvalidCredentials), verrs)
		case errors.Is(err, model.ErrInvalidCredentials):
			httputil.WriteUnauthorizedWithCode(w, model.CodeInvalidCredentials, t.T(i18n.KeyInvalidCredentials))
		default:
			h.logger.Error("sign in failed", "error", err)
			httputil.WriteInternalError(w, t.T(i18n.KeyInternalError))
		}
		return
	}

	h.writeSession(w, r, http.StatusOK, user)
}

func (h *AuthHandler) writeSession(w http.ResponseWriter, r *http.Request, status int, user *model.User) {
	pair, err := h.authService.GenerateTokenPair(r.Context(), user, r.Header.Get("User-Agent"), httputil.ClientIP(r))
	if err != nil {
		h.logger.Error("issue tokens failed", "user_id", user.ID, "error", err)
		httputil.WriteInternalError(w, "Failed to generate tokens")
		return
	}
	httputil.WriteJSON(w, status, model.SessionResponse{User: user, TokenPair: *pair})
}

// Refresh handles POST /auth/v1/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req model.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}
	if req.RefreshToken == "" {
		httputil.WriteBadRequest(w, "Refresh token is required")
		return
	}

	pair, user, err := h.authService.RefreshTokens(r.Context(), req.RefreshToken, r.Header.Get("User-Agent"), httputil.ClientIP(r))
	if err != nil {
		switch {
		case errors.Is(err, model.ErrRefreshTokenNotFound):
			httputil.WriteUnauthorized(w, "Invalid refresh token")
		case errors.Is(err, model.ErrRefreshTokenExpired):
			httputil.WriteUnauthorizedWithCode(w, model.CodeTokenExpired, "Refresh token has expired")
		case errors.Is(err, model.ErrRefreshTokenReused):
			httputil.WriteUnauthorizedWithCode(w, model.CodeTokenReused, "Refresh token reuse detected. Please sign in again.")
		default:
			h.logger.Error("refresh failed", "error", err)
			httputil.WriteInternalError(w, "Failed to refresh tokens")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, model.SessionResponse{User: user, TokenPair: *pair})
}

// Logout handles POST /auth/v1/logout. Unknown or already revoked tokens
// still succeed.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req model.LogoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	if req.RefreshToken != "" {
		if err := h.authService.RevokeRefreshToken(r.Context(), req.RefreshToken); err != nil {
			h.logger.Error("logout failed", "error", err)
			httputil.WriteInternalError(w, "Failed to logout")
			return
		}
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Logged out successfully",
	})
}

// User handles GET /auth/v1/user
func (h *AuthHandler) User(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}

	user, err := h.userService.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			httputil.WriteNotFound(w, "User not found")
			return
		}
		httputil.WriteInternalError(w, "Failed to get user")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, user)
}

// Roles handles GET /rest/v1/roles
func (h *AuthHandler) Roles(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}

	roles, err := h.userService.Roles(r.Context(), userID)
	if err != nil {
		h.logger.Error("role lookup failed", "user_id", userID, "error", err)
		httputil.WriteInternalError(w, "Failed to load roles")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, model.RolesResponse{Roles: roles})
}

// Recover handles POST /auth/v1/recover. The answer does not reveal
// whether the email is registered.
func (h *AuthHandler) Recover(w http.ResponseWriter, r *http.Request) {
	var req model.RecoverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}
	lang := requestLanguage(r, "")
	t := i18n.Lookup(lang)

	if err := h.userService.Recover(r.Context(), &req, lang); err != nil {
		var verrs validation.Errors
		if errors.As(err, &verrs) {
			httputil.WriteValidationError(w, t.T(i18n.KeyEmailInvalid), verrs)
			return
		}
		h.logger.Error("recover failed", "error", err)
		httputil.WriteInternalError(w, t.T(i18n.KeyInternalError))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": t.T(i18n.KeyResetSent)})
}

// Reset handles POST /auth/v1/reset
func (h *AuthHandler) Reset(w http.ResponseWriter, r *http.Request) {
	var req model.ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}
	lang := requestLanguage(r, "")
	t := i18n.Lookup(lang)

	if err := h.userService.ResetPassword(r.Context(), &req, lang); err != nil {
		var verrs validation.Errors
		switch {
		case errors.As(err, &verrs):
			httputil.WriteValidationError(w, t.T(i18n.KeyUnknownError), verrs)
		case errors.Is(err, model.ErrResetTokenInvalid):
			httputil.WriteBadRequestWithCode(w, model.CodeResetTokenInvalid, "Reset link is invalid or has expired")
		default:
			h.logger.Error("password reset failed", "error", err)
			httputil.WriteInternalError(w, t.T(i18n.KeyInternalError))
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "Password updated"})
}
