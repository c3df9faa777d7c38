package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/conduit/internal/apperror"
	"github.com/sakif/conduit/internal/model"
	"github.com/sakif/conduit/internal/repository"
)

const MaxUsernameLength = 255

// UpdateUserInput is a partial update of the caller's account: nil fields
// keep their current value. Password is stored as given.
type UpdateUserInput struct {
	Username *string `json:"username" validate:"omitempty,min=1,max=255"`
	Email    *string `json:"email"    validate:"omitempty,email"`
	Password *string `json:"password" validate:"omitempty,min=1"`
	Bio      *string `json:"bio"`
	Image    *string `json:"image"`
}

// UserService edits accounts on behalf of their owner.
type UserService struct {
	db       repository.Database
	validate *validator.Validate
	logger   *slog.Logger
}

func NewUserService(db repository.Database, logger *slog.Logger) *UserService {
	return &UserService{
		db:       db,
		validate: newValidator(),
		logger:   logger,
	}
}

// Update merges in into callerID's account and returns the stored result.
// The read and the write share one transaction. A username or email held
// by another account is apperror.ErrConflict.
func (s *UserService) Update(ctx context.Context, callerID string, in UpdateUserInput) (*model.User, error) {
	if callerID == "" {
		return nil, apperror.ValidationFailed("user", "a user is required to update an account")
	}

	in.Username = trimPtr(in.Username)
	in.Email = trimPtr(in.Email)
	if err := validate(s.validate, in); err != nil {
		return nil, err
	}

	var updated *model.User
	err := s.db.WithTx(ctx, func(tx repository.Store) error {
		user, err := tx.GetUserByID(ctx, callerID)
		if err != nil {
			return err
		}

		if in.Username != nil {
			user.Username = *in.Username
		}
		if in.Email != nil {
			user.Email = *in.Email
		}
		if in.Password != nil {
			user.Password = *in.Password
		}
		if in.Bio != nil {
			user.Bio = *in.Bio
		}
		if in.Image != nil {
			user.Image = *in.Image
		}

		if err := tx.UpdateUser(ctx, user); err != nil {
			return err
		}
		updated = user
		return nil
	})
	if err != nil {
		if isClientError(err) {
			return nil, err
		}
		s.logger.Error("failed to update user", slog.String("user_id", callerID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("updating user: %w", err)
	}

	s.logger.Info("user updated", slog.String("user_id", updated.ID), slog.String("username", updated.Username))
	return updated, nil
}

func trimPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	return &v
}
