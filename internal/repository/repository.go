// Package repository declares the record-store contract the services depend on.
//
// Services never import a storage engine. They receive a Database, which is a
// Store plus a transaction boundary:
//
//	err := db.WithTx(ctx, func(tx repository.Store) error {
//		// every call on tx runs in the same transaction
//	})
//
// Implementations must report unique-constraint violations as
// apperror.ErrConflict and lookup misses as apperror.ErrNotFound, so the
// service layer can tell them apart from infrastructure failures.
package repository

import (
	"context"

	"github.com/sakif/conduit/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

// TagMatch selects how ArticleFilter.Tag is compared with an article's tags.
type TagMatch int

const (
	// TagExact matches when the tag is one of the article's tags.
	TagExact TagMatch = iota
	// TagSuffix matches when the comma-joined tag list ends with the tag.
	// This is the legacy behaviour and also matches partial tag names
	// ("javascript" matches tag "script").
	TagSuffix
)

// ArticleFilter is a conjunction of optional predicates. The same value must
// be used for CountArticles and ListArticles so the count and the page never
// disagree.
type ArticleFilter struct {
	Tag      string
	TagMatch TagMatch

	// AuthorIDs restricts to articles written by one of these users.
	// nil means no restriction; an empty non-nil slice matches nothing.
	AuthorIDs []string

	// IDs restricts to these article IDs.
	// nil means no restriction; an empty non-nil slice matches nothing.
	IDs []string
}

type ArticleRepository interface {
	CreateArticle(ctx context.Context, article *model.Article) error
	GetArticleBySlug(ctx context.Context, slug string) (*model.Article, error)
	GetArticleByID(ctx context.Context, id string) (*model.Article, error)
	UpdateArticle(ctx context.Context, article *model.Article) error
	DeleteArticle(ctx context.Context, id string) error

	// CountArticles and ListArticles order by created_at DESC, id DESC.
	CountArticles(ctx context.Context, filter ArticleFilter) (int, error)
	ListArticles(ctx context.Context, filter ArticleFilter, opts ListOptions) ([]model.Article, error)

	// AdjustFavoritesCount adds delta to the article's counter.
	AdjustFavoritesCount(ctx context.Context, articleID string, delta int) error

	// ListTagLists returns the tag list of every article.
	ListTagLists(ctx context.Context) ([][]string, error)
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetUsersByIDs(ctx context.Context, ids []string) ([]model.User, error)
	// UpdateUser overwrites username, email, password, bio and image.
	// A taken username or email is apperror.ErrConflict.
	UpdateUser(ctx context.Context, user *model.User) error
}

// FavoriteRepository stores (user, article) edges. Insert fails with
// apperror.ErrConflict when the edge already exists.
type FavoriteRepository interface {
	HasFavorite(ctx context.Context, userID, articleID string) (bool, error)
	InsertFavorite(ctx context.Context, userID, articleID string) error
	// DeleteFavorite reports whether an edge was removed.
	DeleteFavorite(ctx context.Context, userID, articleID string) (bool, error)
	FavoriteArticleIDs(ctx context.Context, userID string) ([]string, error)
}

// FollowRepository stores (follower, following) edges. Insert fails with
// apperror.ErrConflict when the edge already exists.
type FollowRepository interface {
	HasFollow(ctx context.Context, followerID, followingID string) (bool, error)
	InsertFollow(ctx context.Context, followerID, followingID string) error
	// DeleteFollow reports whether an edge was removed.
	DeleteFollow(ctx context.Context, followerID, followingID string) (bool, error)
	FollowingIDs(ctx context.Context, followerID string) ([]string, error)
}

// Store groups every repository behind one handle.
type Store interface {
	ArticleRepository
	UserRepository
	FavoriteRepository
	FollowRepository
}

// Database is a Store that can also run a function atomically.
//
// WithTx commits when fn returns nil and rolls back otherwise. fn must only
// use the Store it is given; calls on the outer Database are not part of the
// transaction.
type Database interface {
	Store
	WithTx(ctx context.Context, fn func(tx Store) error) error
}
