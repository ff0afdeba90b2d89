package handlers

import (
	"regexp"
	"strings"
)

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// slugify derives the URL slug for a title: lowercase, non-alphanumeric runs
// collapsed to single hyphens. Regenerated whenever the title changes;
// uniqueness is enforced by the slug index, not here.
func slugify(title string) string {
	slug := strings.ToLower(strings.TrimSpace(title))

	replacer := strings.NewReplacer(
		"ç", "c", "ğ", "g", "ı", "i", "ö", "o", "ş", "s", "ü", "u",
	)
	slug = replacer.Replace(slug)

	slug = nonSlugChars.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}
