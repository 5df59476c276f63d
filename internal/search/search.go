// Package search implements catalog filtering and type-ahead suggestions.
package search

import (
	"fmt"
	"strings"

	"lendingdesk/pkg/domain"
)

// Field selects which catalog attribute a search matches against.
type Field string

const (
	ByTitle  Field = "title"
	ByAuthor Field = "author"
	ByGenre  Field = "genre"
)

// ParseField validates a caller-supplied field name.
func ParseField(s string) (Field, error) {
	switch Field(strings.ToLower(s)) {
	case ByTitle:
		return ByTitle, nil
	case ByAuthor:
		return ByAuthor, nil
	case ByGenre:
		return ByGenre, nil
	}
	return "", fmt.Errorf("invalid search field %q", s)
}

func (f Field) value(t domain.Title) string {
	switch f {
	case ByAuthor:
		return t.Author
	case ByGenre:
		return t.Genre
	default:
		return t.Name
	}
}

// Filter returns the titles whose selected field contains the query,
// case-insensitively. An empty query matches everything.
func Filter(titles []domain.Title, field Field, query string) []domain.Title {
	q := strings.ToLower(query)
	out := make([]domain.Title, 0, len(titles))
	for _, t := range titles {
		if strings.Contains(strings.ToLower(field.value(t)), q) {
			out = append(out, t)
		}
	}
	return out
}

// Suggest returns the distinct field values matching the query, in catalog
// order, for type-ahead completion. An empty query yields no suggestions.
func Suggest(titles []domain.Title, field Field, query string) []string {
	if query == "" {
		return nil
	}
	q := strings.ToLower(query)
	seen := make(map[string]struct{})
	var out []string
	for _, t := range titles {
		v := field.value(t)
		if v == "" || !strings.Contains(strings.ToLower(v), q) {
			continue
		}
		key := strings.ToLower(v)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}
