// Package slug builds URL identifiers for articles.
//
// A slug is the normalized title followed by a random base-36 suffix:
//
//	"How to train your dragon" → "how-to-train-your-dragon-k3x9qa"
//
// Generation never checks uniqueness. The store's unique index on the slug
// column catches the rare collision and reports it as apperror.ErrConflict.
package slug

import (
	"math/rand/v2"
	"strings"

	gosimple "github.com/gosimple/slug"
)

const (
	// SuffixLength is the number of base-36 characters appended to a slug.
	SuffixLength = 6

	alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// Generator produces slugs. The zero value is not usable; call New.
type Generator struct {
	intN func(n int) int
}

// New returns a Generator. intN must return a value in [0, n) and be safe
// for concurrent use; nil selects math/rand/v2.IntN.
func New(intN func(n int) int) *Generator {
	if intN == nil {
		intN = rand.IntN
	}
	return &Generator{intN: intN}
}

var defaultGenerator = New(nil)

// Generate returns a slug for title using the default generator.
func Generate(title string) string {
	return defaultGenerator.Generate(title)
}

// Generate returns "<normalized-title>-<suffix>", or only the suffix when
// nothing of the title survives normalization.
func (g *Generator) Generate(title string) string {
	suffix := g.suffix()
	base := Normalize(title)
	if base == "" {
		return suffix
	}
	return base + "-" + suffix
}

// Normalize lower-cases title, transliterates it to ASCII and joins the
// remaining words with single hyphens.
func Normalize(title string) string {
	return strings.Trim(gosimple.Make(title), "-")
}

func (g *Generator) suffix() string {
	var b strings.Builder
	b.Grow(SuffixLength)
	for range SuffixLength {
		b.WriteByte(alphabet[g.intN(len(alphabet))])
	}
	return b.String()
}
