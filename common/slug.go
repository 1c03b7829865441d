package common

import (
	"errors"
	"regexp"
	"strings"
)

var (
	ErrEmptySlug = errors.New("slug cannot be empty")
	nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)
)

// Slugify lowercases input and collapses every run of non-alphanumerics into
// a single hyphen. fallback is used when input slugifies to nothing.
func Slugify(input, fallback string) (string, error) {
	slug := slugify(input)
	if slug == "" {
		slug = slugify(fallback)
	}
	if slug == "" {
		return "", ErrEmptySlug
	}
	return slug, nil
}

// SlugPath slugifies each part and joins the non-empty ones with "/".
// Used for object-store keys built from platform ids.
func SlugPath(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := slugify(p); s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, "/")
}

func slugify(s string) string {
	lower := strings.ToLower(strings.TrimSpace(s))
	slug := nonSlugChars.ReplaceAllString(lower, "-")
	return strings.Trim(slug, "-")
}
