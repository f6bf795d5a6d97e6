package model

import (
	"errors"
	"strings"
	"time"
)

// RoleAdmin is the user_roles.role value that grants access to the dashboard
// and to admin push notifications.
const RoleAdmin = "admin"

// User is an identity registered with the auth API.
type User struct {
	ID             string    `db:"id" json:"id"`
	Email          string    `db:"email" json:"email"`
	PasswordHashed string    `db:"password_hashed" json:"-"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// SignUpRequest is the body of POST /auth/v1/signup.
type SignUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignInRequest is the body of POST /auth/v1/token.
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RecoverRequest is the body of POST /auth/v1/recover.
type RecoverRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest is the body of POST /auth/v1/reset.
type ResetPasswordRequest struct {
	Token           string `json:"token"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// RolesResponse lists the roles assigned to the caller.
type RolesResponse struct {
	Roles []string `json:"roles"`
}

// NormalizeEmail lower-cases and trims an address. Every lookup and write of
// an email goes through it.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// HasRole reports whether role is present in roles.
func HasRole(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailExists        = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Auth API error codes
const (
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeEmailExists        = "EMAIL_EXISTS"
)
