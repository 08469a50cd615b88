package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/meridian-bo/meridian/internal/authz"
	"github.com/meridian-bo/meridian/internal/credential"
	"github.com/meridian-bo/meridian/internal/rbac"
	"github.com/meridian-bo/meridian/internal/secret"
	"github.com/meridian-bo/meridian/internal/shared"
)

// Service wraps account and session business rules.
type Service struct {
	logger  *slog.Logger
	repo    Repository
	secrets *secret.Store
	tokens  *credential.TokenCodec
	rbac    *rbac.Service
	mail    CodeSender
}

// NewService constructs a Service.
func NewService(logger *slog.Logger, repo Repository, secrets *secret.Store, tokens *credential.TokenCodec, rbacSvc *rbac.Service, mail CodeSender) *Service {
	return &Service{logger: logger, repo: repo, secrets: secrets, tokens: tokens, rbac: rbacSvc, mail: mail}
}

// LoginInput identifies an account by exactly one of ID or Email.
type LoginInput struct {
	ID       *int64
	Email    string
	Password string
}

// Login validates credentials and issues an access token. The failure
// message never distinguishes an unknown account from a wrong password.
func (s *Service) Login(ctx context.Context, in LoginInput) (string, error) {
	var (
		account User
		err     error
	)
	switch {
	case in.ID != nil && in.Email != "":
		return "", fmt.Errorf("%w: supply either id or email, not both", shared.ErrInvalidParameter)
	case in.ID != nil:
		account, err = s.repo.Get(ctx, *in.ID)
	case in.Email != "":
		account, err = s.repo.FindByEmail(ctx, in.Email)
	default:
		return "", fmt.Errorf("%w: id or email is required", shared.ErrInvalidParameter)
	}
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return "", fmt.Errorf("%w: account or password incorrect", shared.ErrInvalidCredentials)
		}
		return "", err
	}
	if !credential.VerifyPassword(in.Password, account.Salt, account.Password) {
		return "", fmt.Errorf("%w: account or password incorrect", shared.ErrInvalidCredentials)
	}
	return s.tokens.Encode(account.ID)
}

// LoginViaEmail validates a verification code and issues an access token.
// The code stays in the store; only password flows consume it.
func (s *Service) LoginViaEmail(ctx context.Context, email, code string) (string, error) {
	if err := s.checkEmailCode(ctx, email, code, false); err != nil {
		return "", err
	}
	account, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return "", fmt.Errorf("%w: email or verification code incorrect", shared.ErrInvalidParameter)
		}
		return "", err
	}
	return s.tokens.Encode(account.ID)
}

// Register creates an account after verifying the email code, then consumes
// the code.
func (s *Service) Register(ctx context.Context, email, code, password string) error {
	if err := s.checkEmailCode(ctx, email, code, false); err != nil {
		return err
	}
	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return fmt.Errorf("%w: account %s is already registered", shared.ErrConflict, email)
	} else if !errors.Is(err, shared.ErrNotFound) {
		return err
	}
	salt, err := credential.GenerateSalt(credential.SaltLength)
	if err != nil {
		return err
	}
	if _, err := s.repo.Add(ctx, User{
		Email:    email,
		Salt:     salt,
		Password: credential.HashPassword(password, salt),
	}); err != nil {
		return err
	}
	return s.RemoveEmailCode(ctx, email)
}

// ModifyPassword changes a password after verifying the email code and the
// old password, re-salting the new digest. The code is consumed.
func (s *Service) ModifyPassword(ctx context.Context, id int64, code, oldPassword, newPassword string) error {
	account, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.checkEmailCode(ctx, account.Email, code, false); err != nil {
		return err
	}
	if !credential.VerifyPassword(oldPassword, account.Salt, account.Password) {
		return fmt.Errorf("%w: old password incorrect", shared.ErrInvalidParameter)
	}
	salt, err := credential.GenerateSalt(credential.SaltLength)
	if err != nil {
		return err
	}
	account.Salt = salt
	account.Password = credential.HashPassword(newPassword, salt)
	if err := s.repo.Update(ctx, account); err != nil {
		return err
	}
	return s.RemoveEmailCode(ctx, account.Email)
}

// ResetPassword sets a new password for the account identified by email
// after verifying the code (case-insensitively). The code is consumed.
func (s *Service) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if err := s.checkEmailCode(ctx, email, code, true); err != nil {
		return err
	}
	account, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return fmt.Errorf("%w: password reset failed", shared.ErrInvalidParameter)
		}
		return err
	}
	salt, err := credential.GenerateSalt(credential.SaltLength)
	if err != nil {
		return err
	}
	account.Salt = salt
	account.Password = credential.HashPassword(newPassword, salt)
	if err := s.repo.Update(ctx, account); err != nil {
		return err
	}
	return s.RemoveEmailCode(ctx, email)
}

// SendEmailCode generates a verification code, stores it for five minutes
// and dispatches it. While a code is outstanding for the address, resends
// are rejected as busy, even if the pending code was never read.
func (s *Service) SendEmailCode(ctx context.Context, email string) error {
	busy, err := s.secrets.Has(ctx, secret.EmailCodeKey(email))
	if err != nil {
		return err
	}
	if busy {
		return fmt.Errorf("%w: a verification code was already sent to %s", shared.ErrBusy, email)
	}
	code, err := credential.RandomNumericCode(EmailCodeLength)
	if err != nil {
		return err
	}
	if err := s.secrets.Set(ctx, secret.EmailCodeKey(email), code, secret.CodeTTL); err != nil {
		return err
	}
	s.logger.Info("verification code issued", slog.String("email", email))
	return s.mail.SendCode(ctx, email, "Your verification code", code)
}

// RemoveEmailCode deletes the outstanding verification code for an address.
func (s *Service) RemoveEmailCode(ctx context.Context, email string) error {
	return s.secrets.Delete(ctx, secret.EmailCodeKey(email))
}

// checkEmailCode compares the submitted code against the stored one. An
// expired or absent code compares like an empty string and always mismatches.
func (s *Service) checkEmailCode(ctx context.Context, email, code string, foldCase bool) error {
	stored, _, err := s.secrets.Get(ctx, secret.EmailCodeKey(email))
	if err != nil {
		return err
	}
	match := stored == code
	if foldCase {
		match = strings.EqualFold(stored, code)
	}
	if stored == "" || code == "" || !match {
		return fmt.Errorf("%w: verification code incorrect", shared.ErrInvalidParameter)
	}
	return nil
}

// IssueOAuthCode stores the user id under the application's exchange code
// for five minutes.
func (s *Service) IssueOAuthCode(ctx context.Context, userID int64, appKey, code string) error {
	return s.secrets.Set(ctx, secret.OAuthCodeKey(appKey, code), strconv.FormatInt(userID, 10), secret.CodeTTL)
}

// ExchangeOAuthCode resolves an exchange code to a user id. An absent or
// expired code is rejected as forbidden.
func (s *Service) ExchangeOAuthCode(ctx context.Context, appKey, code string) (int64, error) {
	value, ok, err := s.secrets.Get(ctx, secret.OAuthCodeKey(appKey, code))
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%w: app key or code incorrect", shared.ErrForbidden)
	}
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("user: corrupt oauth code value: %w", err)
	}
	return id, nil
}

// RevokeOAuthCode deletes an exchange code explicitly.
func (s *Service) RevokeOAuthCode(ctx context.Context, appKey, code string) error {
	return s.secrets.Delete(ctx, secret.OAuthCodeKey(appKey, code))
}

// IssueCookie stores a cookie-based session for one day.
func (s *Service) IssueCookie(ctx context.Context, userID int64, cookie string) error {
	return s.secrets.Set(ctx, secret.CookieKey(cookie), strconv.FormatInt(userID, 10), secret.CookieTTL)
}

// ResolveCookie returns the user id behind a session cookie, or nil when the
// cookie is unknown or expired. Absence is a normal outcome, not an error.
func (s *Service) ResolveCookie(ctx context.Context, cookie string) (*int64, error) {
	value, ok, err := s.secrets.Get(ctx, secret.CookieKey(cookie))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("user: corrupt cookie value: %w", err)
	}
	return &id, nil
}

// Create adds an account on behalf of an administrator. An empty password
// falls back to the salted default.
func (s *Service) Create(ctx context.Context, email, password string) (int64, error) {
	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return 0, fmt.Errorf("%w: email %s already in use", shared.ErrConflict, email)
	} else if !errors.Is(err, shared.ErrNotFound) {
		return 0, err
	}
	if password == "" {
		password = DefaultPassword
	}
	salt, err := credential.GenerateSalt(credential.SaltLength)
	if err != nil {
		return 0, err
	}
	return s.repo.Add(ctx, User{
		Email:    email,
		Salt:     salt,
		Password: credential.HashPassword(password, salt),
	})
}

// Delete removes an account. Root users cannot be deleted.
func (s *Service) Delete(ctx context.Context, id int64) error {
	account, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if account.IsRoot {
		return fmt.Errorf("%w: built-in user cannot be deleted", shared.ErrForbiddenDelete)
	}
	return s.repo.Delete(ctx, id)
}

// Actor loads the acting user for the authorization pipeline.
func (s *Service) Actor(ctx context.Context, id int64) (authz.Actor, error) {
	account, err := s.repo.Get(ctx, id)
	if err != nil {
		return authz.Actor{}, err
	}
	return authz.Actor{ID: account.ID, Root: account.IsRoot, Roles: account.Roles}, nil
}

// Menus returns the menu tree visible to the user.
func (s *Service) Menus(ctx context.Context, userID int64) ([]rbac.Menu, error) {
	account, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.rbac.MenuTreeForUser(ctx, account.IsRoot, account.Roles)
}

// Permissions returns the deduplicated permission set granted to the user.
func (s *Service) Permissions(ctx context.Context, userID int64) ([]rbac.Permission, error) {
	account, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.rbac.PermissionsForUser(ctx, account.IsRoot, account.Roles)
}
