package app

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/conduit/internal/config"
	"github.com/sakif/conduit/internal/service"
)

func newTestApp(t *testing.T, cfg *config.Config) *App {
	t.Helper()
	a, err := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func memoryConfig() *config.Config {
	cfg := config.Default()
	cfg.Database.Path = ":memory:"
	return &cfg
}

func TestSeed(t *testing.T) {
	a := newTestApp(t, memoryConfig())
	ctx := context.Background()

	wrote, err := a.Seed(ctx)
	require.NoError(t, err)
	assert.True(t, wrote)

	page, err := a.Articles.List(ctx, "", service.ListQuery{Tag: "coffee"})
	require.NoError(t, err)
	assert.Equal(t, 2, page.TotalCount)

	page, err = a.Articles.List(ctx, "", service.ListQuery{Tag: "dragons", Author: DemoUsername})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "First article", page.Items[0].Title)

	tags, err := a.Tags.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"coffee", "dragons", "nestjs"}, tags)

	wrote, err = a.Seed(ctx)
	require.NoError(t, err)
	assert.False(t, wrote, "second run must not duplicate data")

	page, err = a.Articles.List(ctx, "", service.ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, 2, page.TotalCount)
}

func TestNew_CreatesDatabaseDirectory(t *testing.T) {
	cfg := config.Default()
	cfg.Database.Path = filepath.Join(t.TempDir(), "nested", "dir", "conduit.db")

	a := newTestApp(t, &cfg)
	_, err := a.Seed(context.Background())
	require.NoError(t, err)
	assert.FileExists(t, cfg.Database.Path)
}

func TestNew_HonoursArticleConfig(t *testing.T) {
	cfg := memoryConfig()
	cfg.Articles.DefaultLimit = 1
	a := newTestApp(t, cfg)
	ctx := context.Background()

	_, err := a.Seed(ctx)
	require.NoError(t, err)

	page, err := a.Articles.List(ctx, "", service.ListQuery{})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, 2, page.TotalCount)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel("WARN"))
	assert.Equal(t, slog.LevelInfo, parseLevel("nonsense"))
}
