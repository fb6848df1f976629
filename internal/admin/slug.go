package admin

import (
	"strings"

	"github.com/gosimple/slug"
)

// SlugMaxLength matches the width of the slug columns.
const SlugMaxLength = 50

// Slugify turns s into a lowercase, hyphenated slug of at most SlugMaxLength characters.
func Slugify(s string) string {
	out := slug.Make(s)
	if len(out) > SlugMaxLength {
		out = strings.TrimRight(out[:SlugMaxLength], "-")
	}
	return out
}
