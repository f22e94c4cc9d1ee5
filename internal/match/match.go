// Package match filters posts by required terms and required symbols.
package match

import (
	"context"
	"errors"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/restockwatch/internal/source"
)

// Symbols returns the set of unique code points in text.
func Symbols(text string) mapset.Set[rune] {
	set := mapset.NewThreadUnsafeSetWithSize[rune](len(text))
	for _, r := range text {
		set.Add(r)
	}
	return set
}

// Criteria is a compiled AND-combination of terms and symbols.
type Criteria struct {
	terms   []string // lowercased
	symbols []rune
}

// NewCriteria lowercases terms once so they can be reused across posts.
// The inputs are not retained.
func NewCriteria(terms []string, symbols []rune) Criteria {
	lowered := make([]string, len(terms))
	for i, t := range terms {
		lowered[i] = strings.ToLower(t)
	}
	return Criteria{
		terms:   lowered,
		symbols: append([]rune(nil), symbols...),
	}
}

// Matches reports whether text contains every term (case-insensitively) and
// every symbol code point. Empty criteria match any text.
func (c Criteria) Matches(text string) bool {
	textLower := strings.ToLower(text)
	for _, term := range c.terms {
		if !strings.Contains(textLower, term) {
			return false
		}
	}

	if len(c.symbols) == 0 {
		return true
	}
	present := Symbols(text)
	for _, sym := range c.symbols {
		if !present.Contains(sym) {
			return false
		}
	}
	return true
}

// Matches reports whether text satisfies terms and symbols.
func Matches(text string, terms []string, symbols []rune) bool {
	return NewCriteria(terms, symbols).Matches(text)
}

// FindMatches returns the raw text of every matching post in feed order.
// The result is empty, never nil, when nothing matches.
func FindMatches(posts []source.Post, terms []string, symbols []rune) []string {
	c := NewCriteria(terms, symbols)
	matches := make([]string, 0, len(posts))
	for _, p := range posts {
		if c.Matches(p.Text) {
			matches = append(matches, p.Text)
		}
	}
	return matches
}

// FindMatchesConcurrent evaluates posts on up to workers goroutines and
// returns the same result as FindMatches.
func FindMatchesConcurrent(ctx context.Context, posts []source.Post, terms []string, symbols []rune, workers int) ([]string, error) {
	if workers < 1 {
		return nil, errors.New("match: workers must be at least 1")
	}

	c := NewCriteria(terms, symbols)
	hits := make([]bool, len(posts))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range posts {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			hits[i] = c.Matches(posts[i].Text)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	matches := make([]string, 0, len(posts))
	for i, hit := range hits {
		if hit {
			matches = append(matches, posts[i].Text)
		}
	}
	return matches, nil
}
