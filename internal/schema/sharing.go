package schema

import (
	"fmt"
	"sort"
	"strings"
)

// ApplySharingOverrides reconfigures translation sharing for registered
// associations. Keys name associations as "owner.association" over record
// type names. Mode "shared" keeps target rows shared across locales,
// "on_initialize" shares them only while the owner is unsaved, and "off"
// returns the association to per-locale rows.
func ApplySharingOverrides(r *Registry, modes map[string]string) error {
	if r == nil || len(modes) == 0 {
		return nil
	}

	keys := make([]string, 0, len(modes))
	for key := range modes {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		owner, name, ok := strings.Cut(strings.TrimSpace(key), ".")
		if !ok || owner == "" || name == "" {
			return fmt.Errorf("invalid sharing key %q: want owner.association", key)
		}
		shared, onInitialize, err := parseSharingMode(modes[key])
		if err != nil {
			return fmt.Errorf("invalid sharing mode for %q: %w", key, err)
		}
		if err := r.ConfigureSharing(owner, name, shared, onInitialize); err != nil {
			return err
		}
	}
	return nil
}

func parseSharingMode(mode string) (shared, onInitialize bool, err error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "off":
		return false, false, nil
	case "shared":
		return true, false, nil
	case "on_initialize":
		return false, true, nil
	default:
		return false, false, fmt.Errorf("unsupported mode %q (off, shared, on_initialize)", mode)
	}
}
