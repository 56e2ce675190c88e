package naming

import (
	"strings"

	"github.com/jinzhu/inflection"
)

// Pluralize converts a singular word to its plural form.
// Checks custom overrides first, then falls back to the inflection library.
func (n *Namer) Pluralize(word string) string {
	if out, ok := applyOverride(word, n.config.PluralOverrides); ok {
		return out
	}
	return inflection.Plural(word)
}

// Singularize converts a plural word to its singular form.
// Checks custom overrides first, then falls back to the inflection library.
func (n *Namer) Singularize(word string) string {
	if out, ok := applyOverride(word, n.config.SingularOverrides); ok {
		return out
	}
	return inflection.Singular(word)
}

// applyOverride checks overrides for the whole word first, then for the final
// snake_case token so "staff_person" honors a "person" override.
func applyOverride(word string, overrides map[string]string) (string, bool) {
	if override, ok := overrides[word]; ok {
		return override, true
	}
	if i := strings.LastIndex(word, "_"); i >= 0 {
		if override, ok := overrides[word[i+1:]]; ok {
			return word[:i+1] + override, true
		}
	}
	return "", false
}
