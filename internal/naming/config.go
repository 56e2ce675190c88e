// Package naming provides centralized naming logic for mapping SQL schema
// names to record type and association names, including pluralization and
// translation table detection.
package naming

// Config holds naming customization options
type Config struct {
	// PluralOverrides maps singular -> custom plural
	// Example: {"person": "people", "status": "statuses"}
	PluralOverrides map[string]string `mapstructure:"plural_overrides"`

	// SingularOverrides maps plural -> custom singular
	// Example: {"people": "person", "data": "datum"}
	SingularOverrides map[string]string `mapstructure:"singular_overrides"`

	// TranslationSuffix is the table name suffix that marks a per-locale
	// translation table. Defaults to "_translations".
	TranslationSuffix string `mapstructure:"translation_suffix"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		PluralOverrides:   make(map[string]string),
		SingularOverrides: make(map[string]string),
		TranslationSuffix: "_translations",
	}
}
