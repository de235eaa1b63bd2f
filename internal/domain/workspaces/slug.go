package workspaces

import (
	"regexp"
	"strings"
)

var (
	nonSlug   = regexp.MustCompile(`[^a-z0-9\-]+`)
	multiDash = regexp.MustCompile(`-+`)
)

// MakeSlug generates a URL-safe slug from a workspace name.
// Example: "Acme Inc." -> "acme-inc"
func MakeSlug(name string) string {
	base := strings.ToLower(strings.TrimSpace(name))
	base = strings.ReplaceAll(base, " ", "-")
	base = nonSlug.ReplaceAllString(base, "")
	base = multiDash.ReplaceAllString(base, "-")
	base = strings.Trim(base, "-")

	if base == "" {
		base = "workspace"
	}
	return base
}

// ValidSlug reports whether s is usable as a workspace URL segment.
func ValidSlug(s string) bool {
	return s != "" && MakeSlug(s) == s
}
