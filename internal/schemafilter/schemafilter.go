// Package schemafilter applies allow/deny filters during schema discovery.
package schemafilter

import (
	"path"
	"slices"
	"strings"
)

// Config controls allow/deny filters for tables and columns.
type Config struct {
	AllowTables  []string            `mapstructure:"allow_tables"`
	DenyTables   []string            `mapstructure:"deny_tables"`
	AllowColumns map[string][]string `mapstructure:"allow_columns"`
	DenyColumns  map[string][]string `mapstructure:"deny_columns"`
}

// TableAllowed reports whether discovery should register the table.
// Missing allow lists default to allow-all; deny rules always win.
func TableAllowed(cfg Config, table string) bool {
	if matchesAny(table, cfg.DenyTables) {
		return false
	}
	if len(cfg.AllowTables) == 0 {
		return true
	}
	return matchesAny(table, cfg.AllowTables)
}

// ColumnAllowed reports whether discovery should keep the column. Column
// patterns are collected from the "*" table key and the exact table key.
func ColumnAllowed(cfg Config, table, column string) bool {
	denyPatterns := mergePatterns(cfg.DenyColumns, table)
	if matchesAny(column, denyPatterns) {
		return false
	}
	allowPatterns := mergePatterns(cfg.AllowColumns, table)
	if len(allowPatterns) == 0 {
		return true
	}
	return matchesAny(column, allowPatterns)
}

func mergePatterns(patterns map[string][]string, table string) []string {
	if patterns == nil {
		return nil
	}
	combined := append([]string{}, patterns["*"]...)
	combined = append(combined, patterns[table]...)
	return slices.Compact(combined)
}

func matchesAny(value string, patterns []string) bool {
	value = strings.ToLower(value)
	for _, pattern := range patterns {
		if pattern == "" {
			continue
		}
		// matching should be case-insensitive
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
