package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/sakif/conduit/internal/apperror"
	"github.com/sakif/conduit/internal/model"
	"github.com/sakif/conduit/internal/repository"
)

// ProfileService resolves usernames to public profiles and follows or
// unfollows them on behalf of a viewer.
type ProfileService struct {
	users     repository.UserRepository
	relations *RelationService
	logger    *slog.Logger
}

func NewProfileService(users repository.UserRepository, relations *RelationService, logger *slog.Logger) *ProfileService {
	return &ProfileService{
		users:     users,
		relations: relations,
		logger:    logger,
	}
}

// Get returns username's profile. Following is relative to viewerID and is
// false for an anonymous viewer.
func (s *ProfileService) Get(ctx context.Context, viewerID, username string) (*model.Profile, error) {
	user, err := s.lookup(ctx, username)
	if err != nil {
		return nil, err
	}

	following, err := s.relations.IsFollowing(ctx, viewerID, user.ID)
	if err != nil {
		s.logger.Error("failed to check follow",
			slog.String("viewer_id", viewerID),
			slog.String("username", username),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	profile := model.ProfileOf(user, following)
	return &profile, nil
}

// Follow makes viewerID follow username. Following an already followed
// user is a no-op; following yourself is apperror.ErrBadRequest.
func (s *ProfileService) Follow(ctx context.Context, viewerID, username string) (*model.Profile, error) {
	return s.toggle(ctx, viewerID, username, true)
}

func (s *ProfileService) Unfollow(ctx context.Context, viewerID, username string) (*model.Profile, error) {
	return s.toggle(ctx, viewerID, username, false)
}

func (s *ProfileService) toggle(ctx context.Context, viewerID, username string, follow bool) (*model.Profile, error) {
	if viewerID == "" {
		return nil, apperror.ValidationFailed("user", "a user is required to follow a profile")
	}

	user, err := s.lookup(ctx, username)
	if err != nil {
		return nil, err
	}

	if follow {
		err = s.relations.Follow(ctx, viewerID, user.ID)
	} else {
		err = s.relations.Unfollow(ctx, viewerID, user.ID)
	}
	if err != nil {
		return nil, err
	}

	profile := model.ProfileOf(user, follow)
	return &profile, nil
}

func (s *ProfileService) lookup(ctx context.Context, username string) (*model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, apperror.ValidationFailed("username", "username is required")
	}
	return s.users.GetUserByUsername(ctx, username)
}
