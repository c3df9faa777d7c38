package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/sakif/conduit/internal/apperror"
	"github.com/sakif/conduit/internal/metrics"
	"github.com/sakif/conduit/internal/model"
	"github.com/sakif/conduit/internal/repository"
	"github.com/sakif/conduit/internal/slug"
)

const (
	MaxTitleLength       = 255
	MaxDescriptionLength = 1000

	// MaxSlugAttempts bounds how many fresh slugs Create and Update try
	// before surfacing apperror.ErrConflict.
	MaxSlugAttempts = 3
)

// CreateArticleInput carries the author-supplied fields of a new article.
// A nil TagList is stored as an empty list.
type CreateArticleInput struct {
	Title       string   `json:"title"       validate:"required,max=255"`
	Description string   `json:"description" validate:"max=1000"`
	Body        string   `json:"body"`
	TagList     []string `json:"tagList"     validate:"omitempty,dive,required,excludes=0x2C"`
}

// UpdateArticleInput is a partial update: nil fields keep their current
// value. A nil TagList keeps the tags; an empty non-nil one clears them.
type UpdateArticleInput struct {
	Title       *string  `json:"title"       validate:"omitempty,min=1,max=255"`
	Description *string  `json:"description" validate:"omitempty,max=1000"`
	Body        *string  `json:"body"`
	TagList     []string `json:"tagList"     validate:"omitempty,dive,required,excludes=0x2C"`
}

// ListQuery filters a listing. Empty strings mean "no filter on this
// field". A nil or non-positive Limit returns every matching row unless
// ArticleOptions sets a default.
type ListQuery struct {
	Tag         string
	Author      string // username
	FavoritedBy string // username
	Limit       *int
	Offset      *int
}

// ArticleOptions tunes an ArticleService. The zero value lists without a
// limit or a cap.
type ArticleOptions struct {
	// DefaultLimit applies when the caller gives no limit. Zero means all
	// rows.
	DefaultLimit int
	// MaxLimit caps every page, including the default one. Zero means no cap.
	MaxLimit int

	// LegacyTagMatch matches a tag when the comma-joined tag list ends with
	// it, which also hits partial names ("script" matches "javascript").
	// Off means exact membership.
	LegacyTagMatch bool

	// Slugs generates article slugs; nil uses a math/rand backed generator.
	Slugs *slug.Generator
}

// ArticleService handles the article lifecycle and listings.
//
// Writes are author-only: Update and Delete compare the caller ID with the
// stored author and fail with apperror.ErrForbidden otherwise. Favorite
// toggles go through the RelationService so the counter stays in step with
// the edges.
type ArticleService struct {
	db        repository.Database
	relations *RelationService
	slugs     *slug.Generator
	validate  *validator.Validate
	opts      ArticleOptions
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func NewArticleService(
	db repository.Database,
	relations *RelationService,
	opts ArticleOptions,
	m *metrics.Metrics,
	logger *slog.Logger,
) *ArticleService {
	opts.DefaultLimit = max(opts.DefaultLimit, 0)
	opts.MaxLimit = max(opts.MaxLimit, 0)
	slugs := opts.Slugs
	if slugs == nil {
		slugs = slug.New(nil)
	}

	return &ArticleService{
		db:        db,
		relations: relations,
		slugs:     slugs,
		validate:  newValidator(),
		opts:      opts,
		metrics:   m,
		logger:    logger,
	}
}

// Create validates and stores a new article written by authorID.
//
// The slug comes from the title. If it collides with an existing slug a
// new suffix is drawn, up to MaxSlugAttempts times.
func (s *ArticleService) Create(ctx context.Context, authorID string, in CreateArticleInput) (*model.ArticleView, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.TagList = trimTags(in.TagList)
	if err := validate(s.validate, in); err != nil {
		return nil, err
	}

	author, err := s.db.GetUserByID(ctx, authorID)
	if err != nil {
		return nil, err
	}

	tags := in.TagList
	if tags == nil {
		tags = []string{}
	}
	article := &model.Article{
		Title:       in.Title,
		Description: in.Description,
		Body:        in.Body,
		TagList:     tags,
		AuthorID:    author.ID,
	}

	err = s.withFreshSlug(article, func() error {
		return s.db.CreateArticle(ctx, article)
	})
	if err != nil {
		if !isClientError(err) {
			s.logger.Error("failed to create article",
				slog.String("author_id", authorID),
				slog.String("error", err.Error()),
			)
			return nil, fmt.Errorf("creating article: %w", err)
		}
		return nil, err
	}

	s.metrics.RecordArticle(metrics.ArticleCreate)
	s.logger.Info("article created",
		slog.String("id", article.ID),
		slog.String("slug", article.Slug),
		slog.String("author_id", author.ID),
	)

	return &model.ArticleView{
		Article: *article,
		Author:  model.ProfileOf(author, false),
	}, nil
}

// FindBySlug returns the article as seen by viewerID, which may be empty.
func (s *ArticleService) FindBySlug(ctx context.Context, viewerID, slug string) (*model.ArticleView, error) {
	article, err := s.db.GetArticleBySlug(ctx, strings.TrimSpace(slug))
	if err != nil {
		return nil, err
	}

	views, err := s.annotate(ctx, viewerID, []model.Article{*article})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// Update merges the supplied fields into the article. Only the author may
// update. A new title always produces a new slug; the old one is dropped.
func (s *ArticleService) Update(ctx context.Context, slug, callerID string, in UpdateArticleInput) (*model.ArticleView, error) {
	article, err := s.authorize(ctx, slug, callerID)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		in.Title = &title
	}
	if in.Description != nil {
		description := strings.TrimSpace(*in.Description)
		in.Description = &description
	}
	in.TagList = trimTags(in.TagList)
	if err := validate(s.validate, in); err != nil {
		return nil, err
	}

	if in.Title != nil {
		article.Title = *in.Title
	}
	if in.Description != nil {
		article.Description = *in.Description
	}
	if in.Body != nil {
		article.Body = *in.Body
	}
	if in.TagList != nil {
		article.TagList = in.TagList
	}

	save := func() error { return s.db.UpdateArticle(ctx, article) }
	if in.Title != nil {
		err = s.withFreshSlug(article, save)
	} else {
		err = save()
	}
	if err != nil {
		if !isClientError(err) {
			s.logger.Error("failed to update article",
				slog.String("id", article.ID),
				slog.String("error", err.Error()),
			)
			return nil, fmt.Errorf("updating article: %w", err)
		}
		return nil, err
	}

	s.metrics.RecordArticle(metrics.ArticleUpdate)
	s.logger.Info("article updated",
		slog.String("id", article.ID),
		slog.String("slug", article.Slug),
	)

	// Reload so FavoritesCount is current; the copy read above may be stale.
	fresh, err := s.db.GetArticleByID(ctx, article.ID)
	if err != nil {
		return nil, err
	}
	views, err := s.annotate(ctx, callerID, []model.Article{*fresh})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// Delete removes the article. Only the author may delete. Favorite edges
// are removed by the store along with it.
func (s *ArticleService) Delete(ctx context.Context, slug, callerID string) error {
	article, err := s.authorize(ctx, slug, callerID)
	if err != nil {
		return err
	}

	if err := s.db.DeleteArticle(ctx, article.ID); err != nil {
		if !isClientError(err) {
			s.logger.Error("failed to delete article",
				slog.String("id", article.ID),
				slog.String("error", err.Error()),
			)
			return fmt.Errorf("deleting article: %w", err)
		}
		return err
	}

	s.metrics.RecordArticle(metrics.ArticleDelete)
	s.logger.Info("article deleted",
		slog.String("id", article.ID),
		slog.String("slug", article.Slug),
	)
	return nil
}

// Favorite marks the article as a favorite of userID and returns the
// refreshed view. Favoriting twice is a no-op.
func (s *ArticleService) Favorite(ctx context.Context, slug, userID string) (*model.ArticleView, error) {
	return s.toggleFavorite(ctx, slug, userID, s.relations.AddFavorite)
}

// Unfavorite removes the favorite, if any, and returns the refreshed view.
func (s *ArticleService) Unfavorite(ctx context.Context, slug, userID string) (*model.ArticleView, error) {
	return s.toggleFavorite(ctx, slug, userID, s.relations.RemoveFavorite)
}

func (s *ArticleService) toggleFavorite(
	ctx context.Context,
	slug, userID string,
	toggle func(ctx context.Context, userID, articleID string) error,
) (*model.ArticleView, error) {
	if userID == "" {
		return nil, apperror.ValidationFailed("user", "a user is required to favorite an article")
	}

	article, err := s.db.GetArticleBySlug(ctx, strings.TrimSpace(slug))
	if err != nil {
		return nil, err
	}
	if err := toggle(ctx, userID, article.ID); err != nil {
		return nil, err
	}

	// Reload so FavoritesCount reflects the transition.
	article, err = s.db.GetArticleByID(ctx, article.ID)
	if err != nil {
		return nil, err
	}
	views, err := s.annotate(ctx, userID, []model.Article{*article})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// List returns one page of articles matching every supplied filter,
// newest first, plus the size of the whole filtered set.
//
// Author and FavoritedBy name users by username. An unknown username is
// apperror.ErrNotFound and no article query runs. A user with no
// favorites yields an empty page.
func (s *ArticleService) List(ctx context.Context, viewerID string, q ListQuery) (*model.ArticlePage, error) {
	filter := repository.ArticleFilter{
		Tag:      strings.TrimSpace(q.Tag),
		TagMatch: repository.TagExact,
	}
	// Tags are stored comma-joined, so a comma in the filter would match
	// across two neighbouring tags.
	if strings.Contains(filter.Tag, ",") {
		return nil, apperror.ValidationFailed("tag", "tag must not contain commas")
	}
	if s.opts.LegacyTagMatch {
		filter.TagMatch = repository.TagSuffix
	}

	// The two lookups are independent; each goroutine writes its own
	// variable and the filter is assembled after Wait.
	var authorIDs, favoriteIDs []string
	g, gctx := errgroup.WithContext(ctx)

	if author := strings.TrimSpace(q.Author); author != "" {
		g.Go(func() error {
			u, err := s.db.GetUserByUsername(gctx, author)
			if err != nil {
				return err
			}
			authorIDs = []string{u.ID}
			return nil
		})
	}

	if favoritedBy := strings.TrimSpace(q.FavoritedBy); favoritedBy != "" {
		g.Go(func() error {
			u, err := s.db.GetUserByUsername(gctx, favoritedBy)
			if err != nil {
				return err
			}
			ids, err := s.db.FavoriteArticleIDs(gctx, u.ID)
			if err != nil {
				return err
			}
			favoriteIDs = ids
			if favoriteIDs == nil {
				favoriteIDs = []string{}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if isClientError(err) {
			return nil, err
		}
		s.logger.Error("failed to resolve listing filters", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing articles: %w", err)
	}

	filter.AuthorIDs = authorIDs
	filter.IDs = favoriteIDs
	if filter.IDs != nil && len(filter.IDs) == 0 {
		return emptyPage(), nil
	}

	return s.page(ctx, viewerID, filter, q.Limit, q.Offset)
}

// Feed lists articles written by users viewerID follows.
func (s *ArticleService) Feed(ctx context.Context, viewerID string, limit, offset *int) (*model.ArticlePage, error) {
	if viewerID == "" {
		return nil, apperror.ValidationFailed("user", "a user is required to read a feed")
	}

	following, err := s.db.FollowingIDs(ctx, viewerID)
	if err != nil {
		s.logger.Error("failed to load follows", slog.String("user_id", viewerID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("loading feed: %w", err)
	}
	if len(following) == 0 {
		return emptyPage(), nil
	}

	return s.page(ctx, viewerID, repository.ArticleFilter{AuthorIDs: following}, limit, offset)
}

// page counts the filtered set, then fetches one window of it. The same
// filter value drives both queries so the total and the items agree.
func (s *ArticleService) page(ctx context.Context, viewerID string, filter repository.ArticleFilter, limit, offset *int) (*model.ArticlePage, error) {
	opts := s.listOptions(limit, offset)

	total, err := s.db.CountArticles(ctx, filter)
	if err != nil {
		s.logger.Error("failed to count articles", slog.String("error", err.Error()))
		return nil, fmt.Errorf("counting articles: %w", err)
	}

	articles, err := s.db.ListArticles(ctx, filter, opts)
	if err != nil {
		s.logger.Error("failed to list articles", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing articles: %w", err)
	}

	views, err := s.annotate(ctx, viewerID, articles)
	if err != nil {
		return nil, err
	}

	return &model.ArticlePage{Items: views, TotalCount: total}, nil
}

// listOptions applies limit as given, falling back to the configured
// default, and floors offset at zero. A Limit of zero reaches the store as
// "no limit" unless MaxLimit is set.
func (s *ArticleService) listOptions(limit, offset *int) repository.ListOptions {
	opts := repository.ListOptions{Limit: s.opts.DefaultLimit}
	if limit != nil && *limit > 0 {
		opts.Limit = *limit
	}
	if s.opts.MaxLimit > 0 && (opts.Limit == 0 || opts.Limit > s.opts.MaxLimit) {
		opts.Limit = s.opts.MaxLimit
	}
	if offset != nil && *offset > 0 {
		opts.Offset = *offset
	}
	return opts
}

// annotate turns articles into views for viewerID: the viewer's favorite
// set and follow set are fetched once, and each distinct author once.
func (s *ArticleService) annotate(ctx context.Context, viewerID string, articles []model.Article) ([]model.ArticleView, error) {
	views := make([]model.ArticleView, 0, len(articles))
	if len(articles) == 0 {
		return views, nil
	}

	authorIDs := make([]string, 0, len(articles))
	seen := make(map[string]struct{}, len(articles))
	for _, a := range articles {
		if _, ok := seen[a.AuthorID]; !ok {
			seen[a.AuthorID] = struct{}{}
			authorIDs = append(authorIDs, a.AuthorID)
		}
	}

	var (
		favorites map[string]struct{}
		following map[string]struct{}
		authors   []model.User
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		favorites, err = s.relations.FavoriteIDs(gctx, viewerID)
		return err
	})
	g.Go(func() error {
		var err error
		following, err = s.relations.FollowingIDs(gctx, viewerID)
		return err
	})
	g.Go(func() error {
		var err error
		authors, err = s.db.GetUsersByIDs(gctx, authorIDs)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("failed to annotate articles", slog.String("error", err.Error()))
		return nil, fmt.Errorf("annotating articles: %w", err)
	}

	profiles := make(map[string]model.Profile, len(authors))
	for i := range authors {
		u := &authors[i]
		_, follows := following[u.ID]
		profiles[u.ID] = model.ProfileOf(u, follows)
	}

	for _, a := range articles {
		_, favorited := favorites[a.ID]
		views = append(views, model.ArticleView{
			Article:   a,
			Favorited: favorited,
			Author:    profiles[a.AuthorID],
		})
	}
	return views, nil
}

// authorize loads the article behind slug and checks callerID wrote it.
func (s *ArticleService) authorize(ctx context.Context, slug, callerID string) (*model.Article, error) {
	article, err := s.db.GetArticleBySlug(ctx, strings.TrimSpace(slug))
	if err != nil {
		return nil, err
	}
	if callerID == "" || article.AuthorID != callerID {
		return nil, apperror.Forbidden("only the author can change this article")
	}
	return article, nil
}

// withFreshSlug assigns a new slug from article.Title and runs save,
// drawing another slug while save reports a conflict.
func (s *ArticleService) withFreshSlug(article *model.Article, save func() error) error {
	var err error
	for attempt := 1; attempt <= MaxSlugAttempts; attempt++ {
		article.Slug = s.slugs.Generate(article.Title)
		if err = save(); !apperror.IsConflict(err) {
			return err
		}
		if attempt < MaxSlugAttempts {
			s.metrics.RecordSlugRetry()
			s.logger.Debug("slug collision, retrying", slog.String("slug", article.Slug))
		}
	}
	return err
}

func trimTags(tags []string) []string {
	if tags == nil {
		return nil
	}
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = strings.TrimSpace(t)
	}
	return out
}

func emptyPage() *model.ArticlePage {
	return &model.ArticlePage{Items: []model.ArticleView{}, TotalCount: 0}
}
