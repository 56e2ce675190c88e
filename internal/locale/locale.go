// Package locale carries the active locale through context and compares
// record locales against it. There is no process-wide current locale; callers
// scope the locale to the work being done.
package locale

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

type contextKey struct{}

// With returns a context carrying the active locale.
func With(ctx context.Context, tag language.Tag) context.Context {
	return context.WithValue(ctx, contextKey{}, tag)
}

// From returns the locale carried by the context and whether one was set.
func From(ctx context.Context) (language.Tag, bool) {
	tag, ok := ctx.Value(contextKey{}).(language.Tag)
	return tag, ok
}

// FromOr returns the locale carried by the context, or fallback when none
// was set.
func FromOr(ctx context.Context, fallback language.Tag) language.Tag {
	if tag, ok := From(ctx); ok {
		return tag
	}
	return fallback
}

// Parse converts a locale string such as "en" or "pt-BR" into a tag.
func Parse(s string) (language.Tag, error) {
	tag, err := language.Parse(strings.TrimSpace(s))
	if err != nil {
		return language.Und, fmt.Errorf("failed to parse locale %q: %w", s, err)
	}
	return tag, nil
}

// Equal reports whether two tags name the same locale.
func Equal(a, b language.Tag) bool {
	return strings.EqualFold(a.String(), b.String())
}

// Matches reports whether a record's locale field names the given locale.
// Unparseable record locales fall back to a case-insensitive string compare
// so legacy rows with odd codes still match themselves.
func Matches(recordLocale string, tag language.Tag) bool {
	trimmed := strings.TrimSpace(recordLocale)
	if trimmed == "" {
		return false
	}
	parsed, err := language.Parse(trimmed)
	if err != nil {
		return strings.EqualFold(trimmed, tag.String())
	}
	return Equal(parsed, tag)
}
