package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"photoquest/internal/domain"
	"photoquest/internal/logger"
	"photoquest/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

// AuthService registers users and exchanges credentials for tokens.
type AuthService struct {
	users *repository.UserRepository
	auth  Authenticator
	audit *AuditService
}

func NewAuthService(users *repository.UserRepository, auth Authenticator, audit *AuditService) *AuthService {
	return &AuthService{users: users, auth: auth, audit: audit}
}

type Session struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

func (s *AuthService) Register(ctx context.Context, email, password, displayName string) (*domain.User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if len(password) < minPasswordLength {
		return nil, domain.Validation("password must be at least %d characters", minPasswordLength)
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, domain.Validation("display_name is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	u := &domain.User{Email: email, PasswordHash: string(hash), DisplayName: displayName, Role: domain.RoleUser}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}

	s.audit.Log(ctx, u.ID, domain.AuditActionRegister, domain.AuditCategoryAuth, nil)
	logger.WithContext(ctx).Info("user registered", "user_id", u.ID)
	return u, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.Unauthorized("invalid email or password")
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, domain.Unauthorized("invalid email or password")
	}

	token, err := s.auth.IssueToken(domain.Principal{UserID: u.ID, Role: u.Role})
	if err != nil {
		return nil, err
	}

	s.audit.Log(ctx, u.ID, domain.AuditActionLogin, domain.AuditCategoryAuth, nil)
	return &Session{Token: token, User: u}, nil
}

// EnsureAdmin creates or promotes the admin account.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password, displayName string) (*domain.User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if len(password) < minPasswordLength {
		return nil, domain.Validation("password must be at least %d characters", minPasswordLength)
	}
	if displayName == "" {
		displayName = "Admin"
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return s.users.UpsertAdmin(ctx, email, string(hash), displayName)
}

// Profile returns the caller's account.
func (s *AuthService) Profile(ctx context.Context, userID int64) (*domain.User, error) {
	return s.users.GetByID(ctx, userID)
}

// IssueToken signs a token for an existing user.
func (s *AuthService) IssueToken(u *domain.User) (string, error) {
	return s.auth.IssueToken(domain.Principal{UserID: u.ID, Role: u.Role})
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", domain.Validation("invalid email %q", email)
	}
	return email, nil
}
