package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/xid"
	"github.com/sakif/conduit/internal/apperror"
	"github.com/sakif/conduit/internal/model"
	"github.com/sakif/conduit/internal/repository"
)

var _ repository.ArticleRepository = (*store)(nil)

const (
	articleColumns = `id, slug, title, description, body, tag_list, favorites_count, author_id, created_at, updated_at`

	// tagSeparator joins TagList into the tag_list column.
	tagSeparator = ","
)

// CreateArticle inserts an article. The ID is assigned here; CreatedAt is
// set to now unless the caller already set it. FavoritesCount always
// starts at zero.
//
// A taken slug is reported as apperror.ErrConflict so the caller can retry
// with a fresh one.
func (s *store) CreateArticle(ctx context.Context, article *model.Article) error {
	article.ID = xid.New().String()
	if article.CreatedAt.IsZero() {
		article.CreatedAt = s.now()
	}
	article.UpdatedAt = article.CreatedAt
	article.FavoritesCount = 0
	if article.TagList == nil {
		article.TagList = []string{}
	}

	_, err := s.q.ExecContext(ctx,
		`INSERT INTO articles (`+articleColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		article.ID,
		article.Slug,
		article.Title,
		article.Description,
		article.Body,
		joinTags(article.TagList),
		article.FavoritesCount,
		article.AuthorID,
		toUnix(article.CreatedAt),
		toUnix(article.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("article slug", article.Slug)
		}
		if isForeignKeyViolation(err) {
			return apperror.NotFound("user", article.AuthorID)
		}
		return fmt.Errorf("sqlite: creating article: %w", err)
	}

	return nil
}

func (s *store) GetArticleBySlug(ctx context.Context, slug string) (*model.Article, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+articleColumns+` FROM articles WHERE slug = ?`, slug)

	a, err := scanArticle(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("article", slug)
		}
		return nil, fmt.Errorf("sqlite: getting article %s: %w", slug, err)
	}
	return a, nil
}

func (s *store) GetArticleByID(ctx context.Context, id string) (*model.Article, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+articleColumns+` FROM articles WHERE id = ?`, id)

	a, err := scanArticle(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("article", id)
		}
		return nil, fmt.Errorf("sqlite: getting article %s: %w", id, err)
	}
	return a, nil
}

// UpdateArticle writes the editable fields and the slug.
//
// favorites_count, author_id and created_at are NOT written: the counter is
// owned by AdjustFavoritesCount, and writing back a value read earlier would
// lose concurrent favorites.
func (s *store) UpdateArticle(ctx context.Context, article *model.Article) error {
	article.UpdatedAt = s.now()

	result, err := s.q.ExecContext(ctx,
		`UPDATE articles
		 SET slug = ?, title = ?, description = ?, body = ?, tag_list = ?, updated_at = ?
		 WHERE id = ?`,
		article.Slug,
		article.Title,
		article.Description,
		article.Body,
		joinTags(article.TagList),
		toUnix(article.UpdatedAt),
		article.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("article slug", article.Slug)
		}
		return fmt.Errorf("sqlite: updating article %s: %w", article.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("article", article.ID)
	}

	return nil
}

// DeleteArticle removes an article; its favorite edges go with it
// (ON DELETE CASCADE).
func (s *store) DeleteArticle(ctx context.Context, id string) error {
	result, err := s.q.ExecContext(ctx, `DELETE FROM articles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting article %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("article", id)
	}

	return nil
}

func (s *store) CountArticles(ctx context.Context, filter repository.ArticleFilter) (int, error) {
	where, args := buildArticleWhere(filter)

	var count int
	if err := s.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM articles`+where, args...,
	).Scan(&count); err != nil {
		return 0, fmt.Errorf("sqlite: counting articles: %w", err)
	}
	return count, nil
}

// ListArticles returns one page of the filtered set, newest first.
// opts.Limit <= 0 means no limit.
func (s *store) ListArticles(ctx context.Context, filter repository.ArticleFilter, opts repository.ListOptions) ([]model.Article, error) {
	where, args := buildArticleWhere(filter)

	limit := opts.Limit
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}
	args = append(args, limit, offset)

	rows, err := s.q.QueryContext(ctx,
		`SELECT `+articleColumns+` FROM articles`+where+`
		 ORDER BY created_at DESC, id DESC
		 LIMIT ? OFFSET ?`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing articles: %w", err)
	}
	defer rows.Close()

	articles := make([]model.Article, 0)
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning article row: %w", err)
		}
		articles = append(articles, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating articles: %w", err)
	}

	return articles, nil
}

// AdjustFavoritesCount applies delta in place. The CHECK constraint keeps
// the counter from going negative.
func (s *store) AdjustFavoritesCount(ctx context.Context, articleID string, delta int) error {
	result, err := s.q.ExecContext(ctx,
		`UPDATE articles SET favorites_count = favorites_count + ? WHERE id = ?`,
		delta, articleID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: adjusting favorites count of %s by %d: %w", articleID, delta, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("article", articleID)
	}
	return nil
}

func (s *store) ListTagLists(ctx context.Context) ([][]string, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT tag_list FROM articles WHERE tag_list <> ''`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing tags: %w", err)
	}
	defer rows.Close()

	var lists [][]string
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("sqlite: scanning tag list: %w", err)
		}
		lists = append(lists, splitTags(raw))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating tag lists: %w", err)
	}
	return lists, nil
}

// buildArticleWhere turns a filter into a WHERE clause. Every predicate is
// AND'ed; an empty filter yields "".
func buildArticleWhere(f repository.ArticleFilter) (string, []any) {
	var (
		clauses []string
		args    []any
	)

	if f.Tag != "" {
		switch f.TagMatch {
		case repository.TagSuffix:
			clauses = append(clauses, `tag_list GLOB ?`)
			args = append(args, "*"+escapeGlob(f.Tag))
		default:
			// Wrapping both sides in separators turns membership into a
			// substring test that cannot straddle two tags.
			clauses = append(clauses, `instr(',' || tag_list || ',', ?) > 0`)
			args = append(args, tagSeparator+f.Tag+tagSeparator)
		}
	}

	if f.AuthorIDs != nil {
		clause, inArgs := inClause("author_id", f.AuthorIDs)
		clauses = append(clauses, clause)
		args = append(args, inArgs...)
	}

	if f.IDs != nil {
		clause, inArgs := inClause("id", f.IDs)
		clauses = append(clauses, clause)
		args = append(args, inArgs...)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// inClause renders "column IN (...)". An empty set matches nothing.
func inClause(column string, values []string) (string, []any) {
	if len(values) == 0 {
		return "1 = 0", nil
	}
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return column + " IN (" + placeholders(len(values)) + ")", args
}

// escapeGlob quotes GLOB metacharacters so the tag is matched literally.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[':
			b.WriteByte('[')
			b.WriteRune(r)
			b.WriteByte(']')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func joinTags(tags []string) string {
	return strings.Join(tags, tagSeparator)
}

func splitTags(raw string) []string {
	if raw == "" {
		return []string{}
	}
	return strings.Split(raw, tagSeparator)
}

func scanArticle(r rowScanner) (*model.Article, error) {
	var (
		a                    model.Article
		tagList              string
		createdAt, updatedAt int64
	)
	if err := r.Scan(
		&a.ID,
		&a.Slug,
		&a.Title,
		&a.Description,
		&a.Body,
		&tagList,
		&a.FavoritesCount,
		&a.AuthorID,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}
	a.TagList = splitTags(tagList)
	a.CreatedAt = fromUnix(createdAt)
	a.UpdatedAt = fromUnix(updatedAt)
	return &a, nil
}
