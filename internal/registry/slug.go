package registry

import (
	"regexp"
	"strings"

	"github.com/bidhall/bidhall/internal/apperrors"
)

// Reserved words that collide with routes or operational tooling.
var reservedSlugs = map[string]struct{}{
	"api":         {},
	"admin":       {},
	"auth":        {},
	"tournaments": {},
	"tournament":  {},
	"health":      {},
	"metrics":     {},
	"static":      {},
	"assets":      {},
	"www":         {},
	"root":        {},
	"system":      {},
	"internal":    {},
	"test":        {},
	"new":         {},
}

var (
	slugCharset = regexp.MustCompile(`^[a-z0-9-]+$`)
	numericOnly = regexp.MustCompile(`^[0-9]+$`)
)

// NormalizeSlug lowercases and trims the requested slug before validation.
func NormalizeSlug(slug string) string {
	return strings.ToLower(strings.TrimSpace(slug))
}

// ValidateSlug checks a normalized slug against the registration rules:
// length 3-50, lowercase letters/digits/hyphens, no hyphen at either end, no
// consecutive hyphens, not purely numeric, not reserved.
func ValidateSlug(slug string) *apperrors.AppError {
	if len(slug) < 3 || len(slug) > 50 {
		return apperrors.New(apperrors.CodeValidation, "slug must be between 3 and 50 characters")
	}
	if !slugCharset.MatchString(slug) {
		return apperrors.New(apperrors.CodeValidation, "slug may only contain lowercase letters, digits and hyphens")
	}
	if strings.HasPrefix(slug, "-") || strings.HasSuffix(slug, "-") {
		return apperrors.New(apperrors.CodeValidation, "slug must not start or end with a hyphen")
	}
	if strings.Contains(slug, "--") {
		return apperrors.New(apperrors.CodeValidation, "slug must not contain consecutive hyphens")
	}
	if numericOnly.MatchString(slug) {
		return apperrors.New(apperrors.CodeValidation, "slug must not be purely numeric")
	}
	if _, reserved := reservedSlugs[slug]; reserved {
		return apperrors.New(apperrors.CodeValidation, "slug is reserved").WithDetail("slug", slug)
	}
	return nil
}
