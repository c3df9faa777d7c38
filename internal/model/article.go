// Package model defines the data structures used throughout the application.
package model

import "time"

// Article is a short piece of content owned by exactly one user.
//
// TagList keeps the order the author gave. The store persists it as a
// comma-joined string, so individual tags never contain commas.
//
// FavoritesCount is denormalized: it must always equal the number of
// favorite edges pointing at this article. Only the relation service
// changes it, and only as a +1/-1 delta inside the same transaction as the
// edge write.
type Article struct {
	ID             string    `json:"-"`
	Slug           string    `json:"slug"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Body           string    `json:"body"`
	TagList        []string  `json:"tagList"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
	FavoritesCount int       `json:"favoritesCount"`
	AuthorID       string    `json:"-"`
}

// ArticleView is an article as seen by a particular viewer.
// Favorited is always false for anonymous viewers.
type ArticleView struct {
	Article
	Favorited bool    `json:"favorited"`
	Author    Profile `json:"author"`
}

// ArticlePage is one page of a filtered listing.
// TotalCount counts the whole filtered set, not just Items.
type ArticlePage struct {
	Items      []ArticleView `json:"articles"`
	TotalCount int           `json:"articlesCount"`
}
