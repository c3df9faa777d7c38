package service

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sakif/conduit/internal/metrics"
	"github.com/sakif/conduit/internal/model"
	"github.com/sakif/conduit/internal/repository"
	"github.com/sakif/conduit/internal/repository/sqlite"
	"github.com/sakif/conduit/internal/slug"
)

// =========================================================================
// TEST HARNESS
// =========================================================================
//
// Service tests run against a real in-memory SQLite store: the behaviour
// under test (transactions, counters, constraint mapping) lives partly in
// the store, and a hand-written fake would have to re-implement all of it.
// The wrappers further down inject failures or count calls where a test
// needs to see or break something the real store would not.

type testEnv struct {
	db        *sqlite.DB
	metrics   *metrics.Metrics
	relations *RelationService
	articles  *ArticleService
	profiles  *ProfileService
	tags      *TagService
	users     *UserService
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openTestDB(t *testing.T, path string) *sqlite.DB {
	t.Helper()
	db, err := sqlite.New(path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWith(t, openTestDB(t, ":memory:"), ArticleOptions{})
}

// newTestEnvWith wires every service around db. db may be a wrapper around
// the real store.
func newTestEnvWith(t *testing.T, db repository.Database, opts ArticleOptions) *testEnv {
	t.Helper()

	logger := discardLogger()
	m := metrics.New(nil)
	relations := NewRelationService(db, m, logger)

	env := &testEnv{
		metrics:   m,
		relations: relations,
		articles:  NewArticleService(db, relations, opts, m, logger),
		profiles:  NewProfileService(db, relations, logger),
		tags:      NewTagService(db, logger),
		users:     NewUserService(db, logger),
	}
	if sdb, ok := db.(*sqlite.DB); ok {
		env.db = sdb
	}
	return env
}

func createUser(t *testing.T, db repository.UserRepository, username string) *model.User {
	t.Helper()
	u := &model.User{Username: username, Email: username + "@example.com"}
	require.NoError(t, db.CreateUser(context.Background(), u))
	return u
}

func createArticle(t *testing.T, svc *ArticleService, authorID, title string, tags ...string) *model.ArticleView {
	t.Helper()
	a, err := svc.Create(context.Background(), authorID, CreateArticleInput{
		Title:       title,
		Description: "about " + title,
		Body:        "body of " + title,
		TagList:     tags,
	})
	require.NoError(t, err)
	return a
}

func intPtr(n int) *int { return &n }

func strPtr(s string) *string { return &s }

// sequenceSlugs returns a generator whose suffixes are "aaaaaa", "bbbbbb"...
// in call order, so a test can force collisions.
func sequenceSlugs(letters ...byte) *slug.Generator {
	var calls atomic.Int64
	return slug.New(func(int) int {
		i := int(calls.Add(1)-1) / slug.SuffixLength
		if i >= len(letters) {
			i = len(letters) - 1
		}
		return int(letters[i]-'a') + 10
	})
}

// =========================================================================
// STORE WRAPPERS
// =========================================================================

// faultyDB wraps a Database and hands fn a faultyStore inside WithTx.
type faultyDB struct {
	repository.Database
	faults *faults
}

type faults struct {
	adjustErr    error // returned by AdjustFavoritesCount
	hideEdges    bool  // HasFavorite/HasFollow always report false
	articleReads atomic.Int64
}

func (d *faultyDB) WithTx(ctx context.Context, fn func(tx repository.Store) error) error {
	return d.Database.WithTx(ctx, func(tx repository.Store) error {
		return fn(&faultyStore{Store: tx, faults: d.faults})
	})
}

func (d *faultyDB) CountArticles(ctx context.Context, f repository.ArticleFilter) (int, error) {
	d.faults.articleReads.Add(1)
	return d.Database.CountArticles(ctx, f)
}

func (d *faultyDB) ListArticles(ctx context.Context, f repository.ArticleFilter, opts repository.ListOptions) ([]model.Article, error) {
	d.faults.articleReads.Add(1)
	return d.Database.ListArticles(ctx, f, opts)
}

type faultyStore struct {
	repository.Store
	faults *faults
}

func (s *faultyStore) AdjustFavoritesCount(ctx context.Context, articleID string, delta int) error {
	if s.faults.adjustErr != nil {
		return s.faults.adjustErr
	}
	return s.Store.AdjustFavoritesCount(ctx, articleID, delta)
}

func (s *faultyStore) HasFavorite(ctx context.Context, userID, articleID string) (bool, error) {
	if s.faults.hideEdges {
		return false, nil
	}
	return s.Store.HasFavorite(ctx, userID, articleID)
}

func (s *faultyStore) HasFollow(ctx context.Context, followerID, followingID string) (bool, error) {
	if s.faults.hideEdges {
		return false, nil
	}
	return s.Store.HasFollow(ctx, followerID, followingID)
}

func newFaultyEnv(t *testing.T) (*testEnv, *sqlite.DB, *faults) {
	t.Helper()
	inner := openTestDB(t, ":memory:")
	f := &faults{}
	env := newTestEnvWith(t, &faultyDB{Database: inner, faults: f}, ArticleOptions{})
	return env, inner, f
}
