package sqlite

import (
	"context"
	"fmt"

	"github.com/sakif/conduit/internal/apperror"
	"github.com/sakif/conduit/internal/repository"
)

var (
	_ repository.FavoriteRepository = (*store)(nil)
	_ repository.FollowRepository   = (*store)(nil)
)

// edgeTable describes one many-to-many relation table. Both relations share
// the same queries and differ only in names.
type edgeTable struct {
	resource string
	table    string
	left     string
	right    string
}

var (
	favoritesTable = edgeTable{resource: "favorite", table: "favorites", left: "user_id", right: "article_id"}
	followsTable   = edgeTable{resource: "follow", table: "follows", left: "follower_id", right: "following_id"}
)

func (s *store) HasFavorite(ctx context.Context, userID, articleID string) (bool, error) {
	return s.hasEdge(ctx, favoritesTable, userID, articleID)
}

func (s *store) InsertFavorite(ctx context.Context, userID, articleID string) error {
	return s.insertEdge(ctx, favoritesTable, userID, articleID)
}

func (s *store) DeleteFavorite(ctx context.Context, userID, articleID string) (bool, error) {
	return s.deleteEdge(ctx, favoritesTable, userID, articleID)
}

func (s *store) FavoriteArticleIDs(ctx context.Context, userID string) ([]string, error) {
	return s.rightIDs(ctx, favoritesTable, userID)
}

func (s *store) HasFollow(ctx context.Context, followerID, followingID string) (bool, error) {
	return s.hasEdge(ctx, followsTable, followerID, followingID)
}

func (s *store) InsertFollow(ctx context.Context, followerID, followingID string) error {
	return s.insertEdge(ctx, followsTable, followerID, followingID)
}

func (s *store) DeleteFollow(ctx context.Context, followerID, followingID string) (bool, error) {
	return s.deleteEdge(ctx, followsTable, followerID, followingID)
}

func (s *store) FollowingIDs(ctx context.Context, followerID string) ([]string, error) {
	return s.rightIDs(ctx, followsTable, followerID)
}

func (s *store) hasEdge(ctx context.Context, t edgeTable, left, right string) (bool, error) {
	var exists bool
	err := s.q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM `+t.table+` WHERE `+t.left+` = ? AND `+t.right+` = ?)`,
		left, right,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking %s %s/%s: %w", t.resource, left, right, err)
	}
	return exists, nil
}

// insertEdge adds an edge. An existing edge is reported as
// apperror.ErrConflict, a missing endpoint as apperror.ErrNotFound and a
// self-edge on follows as apperror.ErrBadRequest.
func (s *store) insertEdge(ctx context.Context, t edgeTable, left, right string) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO `+t.table+` (`+t.left+`, `+t.right+`, created_at) VALUES (?, ?, ?)`,
		left, right, toUnix(s.now()),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict(t.resource, left+"/"+right)
		}
		if isForeignKeyViolation(err) {
			return apperror.NotFound(t.resource+" endpoint", left+"/"+right)
		}
		if isCheckViolation(err) {
			return apperror.InvalidRelation(t.resource + " endpoints must differ")
		}
		return fmt.Errorf("sqlite: inserting %s %s/%s: %w", t.resource, left, right, err)
	}
	return nil
}

func (s *store) deleteEdge(ctx context.Context, t edgeTable, left, right string) (bool, error) {
	result, err := s.q.ExecContext(ctx,
		`DELETE FROM `+t.table+` WHERE `+t.left+` = ? AND `+t.right+` = ?`,
		left, right,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: deleting %s %s/%s: %w", t.resource, left, right, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

func (s *store) rightIDs(ctx context.Context, t edgeTable, left string) ([]string, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+t.right+` FROM `+t.table+` WHERE `+t.left+` = ?`, left)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing %s edges of %s: %w", t.resource, left, err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlite: scanning %s edge: %w", t.resource, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating %s edges: %w", t.resource, err)
	}
	return ids, nil
}
