package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rolodexapp/rolodex-server/internal/auth"
	"github.com/rolodexapp/rolodex-server/internal/domain"
	domainerrors "github.com/rolodexapp/rolodex-server/internal/errors"
	"github.com/rolodexapp/rolodex-server/internal/store"
)

// UserService handles profile reads and self-service account updates.
type UserService struct {
	store  *store.Store
	logger *slog.Logger
}

// NewUserService creates a new user service.
func NewUserService(store *store.Store, logger *slog.Logger) *UserService {
	return &UserService{
		store:  store,
		logger: logger,
	}
}

// UpdateUsernameRequest contains the new username.
type UpdateUsernameRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
}

// UpdatePasswordRequest contains the old and new passwords.
type UpdatePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8,max=1024"`
}

// GetProfile returns the user's profile with the password hash stripped.
func (s *UserService) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.store.Users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("user not found")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return sanitizeUser(user), nil
}

// UpdateUsername changes the user's username.
// The store's unique index makes the check-and-set race-free: a concurrent
// claim of the same name surfaces as a conflict, never a silent overwrite.
// Setting the current username again is a no-op that succeeds.
func (s *UserService) UpdateUsername(ctx context.Context, userID string, req UpdateUsernameRequest) (*domain.User, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	user, err := s.store.Users.Mutate(ctx, userID, func(u *domain.User) error {
		u.Username = req.Username
		u.Touch()
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return nil, domainerrors.NotFound("user not found")
		case errors.Is(err, store.ErrAlreadyExists):
			return nil, domainerrors.Conflict("username already taken")
		}
		return nil, fmt.Errorf("update username: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("Username updated", "user_id", userID, "username", user.Username)
	}

	return sanitizeUser(user), nil
}

// UpdatePassword changes the user's password after verifying the old one.
func (s *UserService) UpdatePassword(ctx context.Context, userID string, req UpdatePasswordRequest) error {
	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}

	user, err := s.store.Users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domainerrors.NotFound("user not found")
		}
		return fmt.Errorf("get user: %w", err)
	}

	match, err := auth.VerifyPassword(user.PasswordHash, req.OldPassword)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}
	if !match {
		return domainerrors.InvalidCredentials("old password incorrect")
	}

	newHash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if _, err := s.store.Users.Mutate(ctx, userID, func(u *domain.User) error {
		u.PasswordHash = newHash
		u.Touch()
		return nil
	}); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("Password updated", "user_id", userID)
	}

	return nil
}
