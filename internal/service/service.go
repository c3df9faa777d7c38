// Package service contains the business logic layer of the application.
//
// THE LAYERS:
//
//	Caller (request layer, CLI, seed tool) → Service → repository.Database
//
// Services take plain values (IDs, usernames, input structs) and return
// models or typed apperror values. They never see a request object and
// never import a storage engine; main wires a concrete repository in.
//
// WHO DOES WHAT:
//   - RelationService: favorite and follow edges, idempotent, transactional
//   - ArticleService: article lifecycle and the filtered listing engine
//   - ProfileService: profile lookups and follow/unfollow by username
//   - TagService: the distinct tag list
//   - UserService: partial updates of the caller's own account
//
// IDENTITY:
// The caller's user ID arrives as a string that some external layer has
// already authenticated. An empty viewer ID means "anonymous": listings
// still work, every Favorited and Following flag is false.
package service

import (
	"errors"

	"github.com/sakif/conduit/internal/apperror"
)

// isClientError reports whether err is an expected outcome the caller must
// handle, as opposed to an infrastructure failure worth logging.
func isClientError(err error) bool {
	return errors.Is(err, apperror.ErrNotFound) ||
		errors.Is(err, apperror.ErrBadRequest) ||
		errors.Is(err, apperror.ErrForbidden) ||
		errors.Is(err, apperror.ErrConflict)
}
