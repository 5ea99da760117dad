package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nekogravitycat/space-reservation-backend/internal/auth"
	"github.com/nekogravitycat/space-reservation-backend/internal/pkg/logger"
)

// UpdateRequest carries optional fields for an admin edit. Nil means unchanged.
type UpdateRequest struct {
	DisplayName *string
	IsActive    *bool
	Role        *auth.Role
}

// Service defines business logic related to users.
type Service interface {
	Register(ctx context.Context, email, password, displayName string) (*User, error)
	Login(ctx context.Context, email, password string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	List(ctx context.Context, filter UserFilter) ([]*User, int, error)
	Update(ctx context.Context, id string, req UpdateRequest) (*User, error)
	Delete(ctx context.Context, id string) error
	EnsureAdmin(ctx context.Context, email, password string) error
}

type service struct {
	repo     Repository
	hasher   auth.PasswordHasher
	sessions auth.SessionStore
	now      func() time.Time

	minPasswordLength int
}

// NewService creates a new user Service. sessions may be nil when revocation is disabled.
func NewService(repo Repository, hasher auth.PasswordHasher, sessions auth.SessionStore) Service {
	return &service{
		repo:              repo,
		hasher:            hasher,
		sessions:          sessions,
		now:               time.Now,
		minPasswordLength: 8,
	}
}

func (s *service) Register(ctx context.Context, email, password, displayName string) (*User, error) {
	return s.create(ctx, email, password, displayName, auth.RoleUser)
}

func (s *service) create(ctx context.Context, email, password, displayName string, role auth.Role) (*User, error) {
	cleanEmail := normalizeEmail(email)
	if cleanEmail == "" {
		return nil, ErrEmailRequired
	}

	if len(password) < s.minPasswordLength {
		return nil, ErrPasswordTooShort
	}

	_, err := s.repo.GetByEmail(ctx, cleanEmail)
	if err == nil {
		return nil, ErrEmailAlreadyUsed
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing email: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	var displayNamePtr *string
	if d := strings.TrimSpace(displayName); d != "" {
		displayNamePtr = &d
	}

	u := &User{
		Email:        cleanEmail,
		PasswordHash: hash,
		DisplayName:  displayNamePtr,
		Role:         role,
		IsActive:     true,
	}

	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, ErrEmailAlreadyUsed) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return u, nil
}

func (s *service) Login(ctx context.Context, email, password string) (*User, error) {
	cleanEmail := normalizeEmail(email)
	if cleanEmail == "" || strings.TrimSpace(password) == "" {
		return nil, ErrInvalidCredentials
	}

	u, err := s.repo.GetByEmail(ctx, cleanEmail)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to fetch user by email: %w", err)
	}

	if err := s.hasher.Compare(u.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}

	if !u.IsActive {
		return nil, ErrInactiveUser
	}

	// Best effort; a failed timestamp update does not fail the login.
	now := s.now().UTC()
	if err := s.repo.UpdateLastLogin(ctx, u.ID, now); err != nil {
		logger.Warn("failed to update last login", zap.String("user_id", u.ID), zap.Error(err))
	} else {
		u.LastLoginAt = &now
	}

	return u, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) List(ctx context.Context, filter UserFilter) ([]*User, int, error) {
	return s.repo.List(ctx, filter)
}

// Update edits profile and access fields. Changing role or active state ends
// every session of the user so the next request re-reads them from a fresh token.
func (s *service) Update(ctx context.Context, id string, req UpdateRequest) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	revoke := false
	if req.DisplayName != nil {
		if d := strings.TrimSpace(*req.DisplayName); d != "" {
			u.DisplayName = &d
		} else {
			u.DisplayName = nil
		}
	}
	if req.IsActive != nil && *req.IsActive != u.IsActive {
		u.IsActive = *req.IsActive
		revoke = true
	}
	if req.Role != nil && *req.Role != u.Role {
		if !req.Role.Valid() {
			return nil, ErrInvalidRole
		}
		u.Role = *req.Role
		revoke = true
	}

	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}

	if revoke {
		if err := s.revokeSessions(ctx, u.ID); err != nil {
			return nil, err
		}
	}
	return u, nil
}

func (s *service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	return s.revokeSessions(ctx, id)
}

// EnsureAdmin creates the bootstrap administrator, or promotes an existing
// account with that email. Empty credentials disable it.
func (s *service) EnsureAdmin(ctx context.Context, email, password string) error {
	if normalizeEmail(email) == "" || password == "" {
		return nil
	}

	existing, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	switch {
	case err == nil:
		if existing.Role == auth.RoleAdmin && existing.IsActive {
			return nil
		}
		existing.Role = auth.RoleAdmin
		existing.IsActive = true
		if err := s.repo.Update(ctx, existing); err != nil {
			return fmt.Errorf("failed to promote admin: %w", err)
		}
		logger.Info("promoted bootstrap admin", zap.String("user_id", existing.ID))
		return s.revokeSessions(ctx, existing.ID)
	case errors.Is(err, ErrNotFound):
		u, err := s.create(ctx, email, password, "", auth.RoleAdmin)
		if err != nil {
			return fmt.Errorf("failed to create admin: %w", err)
		}
		logger.Info("created bootstrap admin", zap.String("user_id", u.ID))
		return nil
	default:
		return fmt.Errorf("failed to look up admin: %w", err)
	}
}

func (s *service) revokeSessions(ctx context.Context, userID string) error {
	if s.sessions == nil {
		return nil
	}
	if err := s.sessions.RevokeUser(ctx, userID); err != nil {
		return fmt.Errorf("failed to revoke sessions: %w", err)
	}
	return nil
}

// normalizeEmail trims spaces and lowercases the email.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
