package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/sakif/conduit/internal/repository"
)

type TagService struct {
	articles repository.ArticleRepository
	logger   *slog.Logger
}

func NewTagService(articles repository.ArticleRepository, logger *slog.Logger) *TagService {
	return &TagService{
		articles: articles,
		logger:   logger,
	}
}

// List returns every tag in use, sorted and without duplicates.
func (s *TagService) List(ctx context.Context) ([]string, error) {
	lists, err := s.articles.ListTagLists(ctx)
	if err != nil {
		s.logger.Error("failed to list tags", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing tags: %w", err)
	}

	tags := make([]string, 0)
	for _, list := range lists {
		for _, tag := range list {
			if tag != "" {
				tags = append(tags, tag)
			}
		}
	}
	slices.Sort(tags)
	return slices.Compact(tags), nil
}
