// Package setutil canonicalizes MySQL SET column values. Payloads carry set
// values as member lists or as the comma-joined form the database returns;
// both canonicalize to a CSV following the column's declaration order.
package setutil

import (
	"fmt"
	"strings"
)

// Canonicalize validates member values against the column's declared members
// and joins them in declaration order. Duplicates collapse; an empty list
// yields the empty string, which clears the set.
func Canonicalize(members []string, declared []string) (string, error) {
	declaredSet := make(map[string]struct{}, len(declared))
	for _, m := range declared {
		declaredSet[m] = struct{}{}
	}

	selected := make(map[string]struct{}, len(members))
	for _, m := range members {
		if _, ok := declaredSet[m]; !ok {
			return "", fmt.Errorf("unknown set member %q", m)
		}
		selected[m] = struct{}{}
	}

	ordered := make([]string, 0, len(selected))
	for _, m := range declared {
		if _, ok := selected[m]; ok {
			ordered = append(ordered, m)
		}
	}
	return strings.Join(ordered, ","), nil
}

// CanonicalizeValue canonicalizes a payload value: a CSV string, a []string,
// or a []any of strings.
func CanonicalizeValue(value any, declared []string) (string, error) {
	switch v := value.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return "", nil
		}
		return Canonicalize(strings.Split(v, ","), declared)
	case []byte:
		return CanonicalizeValue(string(v), declared)
	case []string:
		return Canonicalize(v, declared)
	case []any:
		members := make([]string, 0, len(v))
		for _, item := range v {
			m, ok := item.(string)
			if !ok {
				return "", fmt.Errorf("set members must be strings")
			}
			members = append(members, m)
		}
		return Canonicalize(members, declared)
	default:
		return "", fmt.Errorf("set value must be a member list or CSV string")
	}
}
