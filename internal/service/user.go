package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"teslabooking/internal/i18n"
	"teslabooking/internal/model"
	"teslabooking/internal/repository"
	"teslabooking/internal/validation"
)

// Mailer delivers a plain text email.
type Mailer interface {
	Send(ctx context.Context, to, subject, text string) error
}

// UserService handles sign-up, sign-in and password recovery.
type UserService struct {
	repo     repository.UserRepository
	roleRepo repository.RoleRepository
	auth     *AuthService
	mailer   Mailer // nil when mail is not configured
	baseURL  string
	logger   *slog.Logger
}

func NewUserService(repo repository.UserRepository, roleRepo repository.RoleRepository, auth *AuthService, mailer Mailer, baseURL string) *UserService {
	return &UserService{
		repo:     repo,
		roleRepo: roleRepo,
		auth:     auth,
		mailer:   mailer,
		baseURL:  baseURL,
		logger:   slog.Default().With("component", "users"),
	}
}

// SignUp registers a new identity. Invalid input is returned as
// validation.Errors localized to lang.
func (s *UserService) SignUp(ctx context.Context, req *model.SignUpRequest, lang string) (*model.User, error) {
	email := model.NormalizeEmail(req.Email)
	errs := validation.Signup(i18n.Lookup(lang)).Validate(map[string]string{
		validation.FieldEmail:    email,
		validation.FieldPassword: req.Password,
	})
	if !errs.OK() {
		return nil, errs
	}

	exists, err := s.repo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return nil, model.ErrEmailExists
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{Email: email, PasswordHashed: string(hashed)}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// SignIn authenticates with email and password. Password strength is not
// checked here so legacy weak passwords keep working.
func (s *UserService) SignIn(ctx context.Context, req *model.SignInRequest, lang string) (*model.User, error) {
	email := model.NormalizeEmail(req.Email)
	errs := validation.Login(i18n.Lookup(lang)).Validate(map[string]string{
		validation.FieldEmail:    email,
		validation.FieldPassword: req.Password,
	})
	if !errs.OK() {
		return nil, errs
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		// Don't reveal whether the email exists
		if errors.Is(err, model.ErrUserNotFound) {
			return nil, model.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHashed), []byte(req.Password)); err != nil {
		return nil, model.ErrInvalidCredentials
	}
	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, id string) (*model.User, error) {
	return s.repo.GetByID(ctx, id)
}

// Roles returns the roles of a user, never nil.
func (s *UserService) Roles(ctx context.Context, userID string) ([]string, error) {
	roles, err := s.roleRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if roles == nil {
		roles = []string{}
	}
	return roles, nil
}

// IsAdmin fails closed: lookup errors report false along with the error.
func (s *UserService) IsAdmin(ctx context.Context, userID string) (bool, error) {
	roles, err := s.roleRepo.ListByUser(ctx, userID)
	if err != nil {
		return false, err
	}
	return model.HasRole(roles, model.RoleAdmin), nil
}

// Recover mails a reset link when the email is registered. Unknown emails
// succeed silently.
func (s *UserService) Recover(ctx context.Context, req *model.RecoverRequest, lang string) error {
	t := i18n.Lookup(lang)
	email := model.NormalizeEmail(req.Email)
	if errs := validation.ForgotPassword(t).Validate(map[string]string{validation.FieldEmail: email}); !errs.OK() {
		return errs
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return nil
		}
		return err
	}

	token, err := s.auth.IssuePasswordReset(ctx, user.ID)
	if err != nil {
		return err
	}

	link := fmt.Sprintf("%s/reset-password?token=%s", s.baseURL, token)
	if s.mailer == nil {
		s.logger.Warn("mail not configured, reset link not sent", "user_id", user.ID)
		return nil
	}
	if err := s.mailer.Send(ctx, user.Email, t.T(i18n.KeyResetSubject), t.Tf(i18n.KeyResetBody, link)); err != nil {
		s.logger.Error("send reset email failed", "user_id", user.ID, "error", err)
	}
	return nil
}

// ResetPassword redeems a reset token, stores the new password and signs
// the user out everywhere.
func (s *UserService) ResetPassword(ctx context.Context, req *model.ResetPasswordRequest, lang string) error {
	errs := validation.ResetPassword(i18n.Lookup(lang)).Validate(map[string]string{
		validation.FieldPassword:        req.Password,
		validation.FieldConfirmPassword: req.ConfirmPassword,
	})
	if !errs.OK() {
		return errs
	}
	if req.Token == "" {
		return model.ErrResetTokenInvalid
	}

	userID, err := s.auth.RedeemPasswordReset(ctx, req.Token)
	if err != nil {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.repo.UpdatePassword(ctx, userID, string(hashed)); err != nil {
		return err
	}
	if err := s.auth.RevokeAllUserTokens(ctx, userID); err != nil {
		s.logger.Error("revoke tokens after reset failed", "user_id", userID, "error", err)
	}
	return nil
}
