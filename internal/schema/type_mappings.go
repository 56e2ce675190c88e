package schema

import (
	"fmt"
	"path"
	"slices"
	"sort"
	"strconv"
	"strings"

	"record-i18n/internal/sqltype"
)

// ApplyUUIDOverrides marks columns as UUID-kinded based on SQL table/column
// glob patterns. Patterns are matched case-insensitively against SQL names.
// Matched columns must be binary(16) or char/varchar of at least 36.
func ApplyUUIDOverrides(r *Registry, patterns map[string][]string) error {
	if r == nil || len(patterns) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range r.types {
		columnPatterns := mergeColumnPatterns(patterns, t.Table)
		if len(columnPatterns) == 0 {
			continue
		}
		for ci := range t.Columns {
			col := &t.Columns[ci]
			if !matchesAnyPattern(col.Name, columnPatterns) {
				continue
			}
			if err := validateUUIDOverrideColumn(*col); err != nil {
				return fmt.Errorf("invalid UUID mapping for %s.%s: %w", t.Table, col.Name, err)
			}
			col.TypeOverride = sqltype.KindUUID
			col.HasTypeOverride = true
		}
	}
	return nil
}

// ApplyTinyIntOverrides forces tinyint(1) columns to bool or int based on SQL
// table/column glob patterns. tinyint(1) reads as bool by default; the int
// patterns opt columns back out to int, and the bool patterns pin the default
// explicitly. Int wins when both match a column.
func ApplyTinyIntOverrides(r *Registry, boolPatterns, intPatterns map[string][]string) error {
	if r == nil || (len(boolPatterns) == 0 && len(intPatterns) == 0) {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range r.types {
		boolColumnPatterns := mergeColumnPatterns(boolPatterns, t.Table)
		intColumnPatterns := mergeColumnPatterns(intPatterns, t.Table)
		if len(boolColumnPatterns) == 0 && len(intColumnPatterns) == 0 {
			continue
		}
		for ci := range t.Columns {
			col := &t.Columns[ci]
			matchedInt := matchesAnyPattern(col.Name, intColumnPatterns)
			matchedBool := matchesAnyPattern(col.Name, boolColumnPatterns)
			if !matchedInt && !matchedBool {
				continue
			}
			if err := validateTinyInt1Column(*col); err != nil {
				return fmt.Errorf("invalid tinyint(1) mapping for %s.%s: %w", t.Table, col.Name, err)
			}
			if matchedInt {
				col.TypeOverride = sqltype.KindInt
			} else {
				col.TypeOverride = sqltype.KindBool
			}
			col.HasTypeOverride = true
		}
	}
	return nil
}

func mergeColumnPatterns(patterns map[string][]string, table string) []string {
	if patterns == nil {
		return nil
	}
	tableLower := strings.ToLower(table)
	keys := make([]string, 0, len(patterns))
	for key := range patterns {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	combined := make([]string, 0)
	for _, key := range keys {
		// Table keys are glob patterns over SQL table names (case-insensitive),
		// so "*" and specific patterns can contribute column patterns.
		pattern := strings.ToLower(strings.TrimSpace(key))
		if pattern == "" {
			continue
		}
		matched, err := path.Match(pattern, tableLower)
		if err != nil || !matched {
			continue
		}
		combined = append(combined, patterns[key]...)
	}
	return slices.Compact(combined)
}

func matchesAnyPattern(value string, patterns []string) bool {
	value = strings.ToLower(value)
	for _, pattern := range patterns {
		if pattern == "" {
			continue
		}
		ok, err := path.Match(strings.ToLower(pattern), value)
		if err != nil {
			continue
		}
		if ok {
			return true
		}
	}
	return false
}

func validateUUIDOverrideColumn(col Column) error {
	baseType := strings.ToLower(strings.TrimSpace(col.DataType))
	switch baseType {
	case "binary", "varbinary":
		length, ok := sqlTypeLength(col)
		if !ok || length != 16 {
			return fmt.Errorf("%s requires length 16 for UUID binary storage", strings.ToUpper(baseType))
		}
		return nil
	case "char", "varchar":
		length, ok := sqlTypeLength(col)
		if !ok || length < 36 {
			return fmt.Errorf("%s requires length >= 36 for UUID text storage", strings.ToUpper(baseType))
		}
		return nil
	default:
		return fmt.Errorf("unsupported SQL type %q for UUID mapping", col.DataType)
	}
}

func validateTinyInt1Column(col Column) error {
	baseType := strings.ToLower(strings.TrimSpace(col.DataType))
	if baseType != "tinyint" {
		return fmt.Errorf("expected tinyint(1), got %q", col.DataType)
	}
	length, ok := sqlTypeLength(col)
	if !ok || length != 1 {
		return fmt.Errorf("expected tinyint(1), got %q", col.ColumnType)
	}
	return nil
}

func sqlTypeLength(col Column) (int, bool) {
	typeSpec := strings.TrimSpace(col.ColumnType)
	if typeSpec == "" {
		typeSpec = strings.TrimSpace(col.DataType)
	}
	start := strings.Index(typeSpec, "(")
	end := strings.Index(typeSpec, ")")
	if start == -1 || end == -1 || end <= start+1 {
		return 0, false
	}
	lengthSpec := strings.TrimSpace(typeSpec[start+1 : end])
	if idx := strings.Index(lengthSpec, ","); idx != -1 {
		lengthSpec = strings.TrimSpace(lengthSpec[:idx])
	}
	if lengthSpec == "" {
		return 0, false
	}
	length, err := strconv.Atoi(lengthSpec)
	if err != nil {
		return 0, false
	}
	return length, true
}
