package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTagList(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tags, err := env.tags.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, tags)

	author := createUser(t, env.db, "jake")
	createArticle(t, env.articles, author.ID, "One", "go", "sql")
	createArticle(t, env.articles, author.ID, "Two", "sql", "dragons")
	createArticle(t, env.articles, author.ID, "Three")

	tags, err = env.tags.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"dragons", "go", "sql"}, tags)
}
