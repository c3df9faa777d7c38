package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/conduit/internal/apperror"
	"github.com/sakif/conduit/internal/model"
	"github.com/sakif/conduit/internal/service"
)

// DemoUsername names the user Seed creates.
const DemoUsername = "ante-admin"

var demoArticles = []service.CreateArticleInput{
	{
		Title:       "First article",
		Description: "First article description",
		Body:        "This is article body",
		TagList:     []string{"coffee", "dragons"},
	},
	{
		Title:       "Second article",
		Description: "Second article description",
		Body:        "This is second article body",
		TagList:     []string{"coffee", "nestjs"},
	},
}

// Seed inserts a demo user and two articles. It does nothing when the demo
// user already exists, so running it twice is safe. It reports whether
// anything was written.
func (a *App) Seed(ctx context.Context) (bool, error) {
	_, err := a.DB.GetUserByUsername(ctx, DemoUsername)
	if err == nil {
		a.logger.Info("demo data already present", slog.String("username", DemoUsername))
		return false, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return false, fmt.Errorf("looking up demo user: %w", err)
	}

	user := &model.User{
		Username: DemoUsername,
		Email:    "admin@mail.com",
	}
	if err := a.DB.CreateUser(ctx, user); err != nil {
		return false, fmt.Errorf("creating demo user: %w", err)
	}

	for _, in := range demoArticles {
		article, err := a.Articles.Create(ctx, user.ID, in)
		if err != nil {
			return false, fmt.Errorf("creating demo article %q: %w", in.Title, err)
		}
		a.logger.Debug("demo article created", slog.String("slug", article.Slug))
	}

	return true, nil
}
