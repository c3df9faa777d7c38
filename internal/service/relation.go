package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/conduit/internal/apperror"
	"github.com/sakif/conduit/internal/metrics"
	"github.com/sakif/conduit/internal/repository"
)

// RelationService owns the favorite and follow edges.
//
// Every toggle is idempotent: adding an edge that exists or removing one
// that does not is a silent no-op. The existence check and the write run in
// one transaction, and for favorites the article counter moves by exactly
// +1 or -1 in that same transaction. The counter is never recomputed.
type RelationService struct {
	db      repository.Database
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewRelationService(db repository.Database, m *metrics.Metrics, logger *slog.Logger) *RelationService {
	return &RelationService{
		db:      db,
		metrics: m,
		logger:  logger,
	}
}

// edgeKind binds one relation to its repository methods. The method
// expressions let add and remove run against whatever Store the
// transaction hands them.
type edgeKind struct {
	name    string
	has     func(repository.Store, context.Context, string, string) (bool, error)
	insert  func(repository.Store, context.Context, string, string) error
	delete  func(repository.Store, context.Context, string, string) (bool, error)
	counted bool // right side carries a favorites counter
}

var (
	favoriteEdge = edgeKind{
		name:    metrics.RelationFavorite,
		has:     repository.Store.HasFavorite,
		insert:  repository.Store.InsertFavorite,
		delete:  repository.Store.DeleteFavorite,
		counted: true,
	}
	followEdge = edgeKind{
		name:   metrics.RelationFollow,
		has:    repository.Store.HasFollow,
		insert: repository.Store.InsertFollow,
		delete: repository.Store.DeleteFollow,
	}
)

// AddFavorite records that userID favorites articleID and bumps the
// article's counter. A missing article is apperror.ErrNotFound.
func (s *RelationService) AddFavorite(ctx context.Context, userID, articleID string) error {
	return s.add(ctx, favoriteEdge, userID, articleID)
}

// RemoveFavorite drops the favorite and decrements the counter if the edge
// existed.
func (s *RelationService) RemoveFavorite(ctx context.Context, userID, articleID string) error {
	return s.remove(ctx, favoriteEdge, userID, articleID)
}

// Follow records that followerID follows followingID.
// Following yourself is apperror.ErrBadRequest.
func (s *RelationService) Follow(ctx context.Context, followerID, followingID string) error {
	if followerID == followingID {
		return apperror.InvalidRelation("follower and following can't be equal")
	}
	return s.add(ctx, followEdge, followerID, followingID)
}

func (s *RelationService) Unfollow(ctx context.Context, followerID, followingID string) error {
	if followerID == followingID {
		return apperror.InvalidRelation("follower and following can't be equal")
	}
	return s.remove(ctx, followEdge, followerID, followingID)
}

func (s *RelationService) IsFollowing(ctx context.Context, followerID, followingID string) (bool, error) {
	if followerID == "" || followerID == followingID {
		return false, nil
	}
	ok, err := s.db.HasFollow(ctx, followerID, followingID)
	if err != nil {
		return false, fmt.Errorf("checking follow: %w", err)
	}
	return ok, nil
}

func (s *RelationService) IsFavorite(ctx context.Context, userID, articleID string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	ok, err := s.db.HasFavorite(ctx, userID, articleID)
	if err != nil {
		return false, fmt.Errorf("checking favorite: %w", err)
	}
	return ok, nil
}

// FavoriteIDs returns the set of article IDs userID has favorited.
func (s *RelationService) FavoriteIDs(ctx context.Context, userID string) (map[string]struct{}, error) {
	if userID == "" {
		return map[string]struct{}{}, nil
	}
	ids, err := s.db.FavoriteArticleIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing favorites: %w", err)
	}
	return toSet(ids), nil
}

// FollowingIDs returns the set of user IDs followerID follows.
func (s *RelationService) FollowingIDs(ctx context.Context, followerID string) (map[string]struct{}, error) {
	if followerID == "" {
		return map[string]struct{}{}, nil
	}
	ids, err := s.db.FollowingIDs(ctx, followerID)
	if err != nil {
		return nil, fmt.Errorf("listing follows: %w", err)
	}
	return toSet(ids), nil
}

func (s *RelationService) add(ctx context.Context, kind edgeKind, left, right string) error {
	outcome := metrics.OutcomeApplied

	err := s.db.WithTx(ctx, func(tx repository.Store) error {
		exists, err := kind.has(tx, ctx, left, right)
		if err != nil {
			return err
		}
		if exists {
			outcome = metrics.OutcomeNoop
			return nil
		}

		if err := kind.insert(tx, ctx, left, right); err != nil {
			// Another writer inserted the same edge after our check. The
			// end state is what the caller asked for, and that writer
			// already moved the counter.
			if apperror.IsConflict(err) {
				outcome = metrics.OutcomeConflictAbsorbed
				return nil
			}
			return err
		}

		if kind.counted {
			return tx.AdjustFavoritesCount(ctx, right, +1)
		}
		return nil
	})
	return s.finish(kind, metrics.OpAdd, outcome, left, right, err)
}

func (s *RelationService) remove(ctx context.Context, kind edgeKind, left, right string) error {
	outcome := metrics.OutcomeApplied

	err := s.db.WithTx(ctx, func(tx repository.Store) error {
		removed, err := kind.delete(tx, ctx, left, right)
		if err != nil {
			return err
		}
		if !removed {
			outcome = metrics.OutcomeNoop
			return nil
		}

		if kind.counted {
			return tx.AdjustFavoritesCount(ctx, right, -1)
		}
		return nil
	})
	return s.finish(kind, metrics.OpRemove, outcome, left, right, err)
}

// finish logs and counts one transition.
func (s *RelationService) finish(kind edgeKind, op, outcome, left, right string, err error) error {
	attrs := []any{
		slog.String("relation", kind.name),
		slog.String("op", op),
		slog.String("left", left),
		slog.String("right", right),
	}

	if err != nil {
		s.metrics.RecordRelation(kind.name, op, metrics.OutcomeError)
		if isClientError(err) {
			return err
		}
		s.logger.Error("relation update failed", append(attrs, slog.String("error", err.Error()))...)
		return fmt.Errorf("%s %s: %w", op, kind.name, err)
	}

	s.metrics.RecordRelation(kind.name, op, outcome)
	if outcome == metrics.OutcomeApplied {
		s.logger.Info("relation updated", attrs...)
	} else {
		s.logger.Debug("relation unchanged", append(attrs, slog.String("outcome", outcome))...)
	}
	return nil
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
