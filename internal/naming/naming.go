package naming

import (
	"log/slog"
	"strings"
)

// Namer derives record type and association names from SQL schema names.
// All derived names stay snake_case; only number and suffix handling change.
type Namer struct {
	config Config
	logger *slog.Logger
}

// New creates a Namer with the given configuration
func New(cfg Config, logger *slog.Logger) *Namer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.TranslationSuffix == "" {
		cfg.TranslationSuffix = DefaultConfig().TranslationSuffix
	}
	return &Namer{
		config: cfg,
		logger: logger,
	}
}

// Default returns a Namer with default configuration
func Default() *Namer {
	return New(DefaultConfig(), nil)
}

// TypeName converts a table name to a record type name.
// Example: "article_translations" -> "article_translation"
func (n *Namer) TypeName(tableName string) string {
	return n.Singularize(strings.ToLower(tableName))
}

// TableName converts a record type name back to its table name.
// Example: "article_translation" -> "article_translations"
func (n *Namer) TableName(typeName string) string {
	return n.Pluralize(strings.ToLower(typeName))
}

// CollectionName derives the association name for a one-to-many set from
// the child table name. Translation tables collapse to "translations" since
// the owner is already named in the table.
// Example: "comments" -> "comments", "article_translations" -> "translations"
func (n *Namer) CollectionName(ownerTable, childTable string) string {
	if base, ok := n.TranslationBase(childTable); ok && base == strings.ToLower(ownerTable) {
		return strings.TrimPrefix(n.config.TranslationSuffix, "_")
	}
	return strings.ToLower(childTable)
}

// ReferenceName derives the association name for a many-to-one reference
// from the FK column name with common suffixes stripped.
// Example: "author_id" -> "author", "created_by_user_id" -> "created_by_user"
func (n *Namer) ReferenceName(fkColumn string) string {
	name := strings.ToLower(fkColumn)
	for _, suffix := range []string{"_id", "_fk"} {
		if strings.HasSuffix(name, suffix) {
			name = name[:len(name)-len(suffix)]
			break
		}
	}
	return name
}

// TranslationTable returns the conventional translation table name for a
// base table.
// Example: "articles" -> "article_translations"
func (n *Namer) TranslationTable(baseTable string) string {
	return n.Singularize(strings.ToLower(baseTable)) + n.config.TranslationSuffix
}

// TranslationBase reports whether a table follows the translation table
// convention, and if so which base table it translates.
// Example: "article_translations" -> ("articles", true)
func (n *Namer) TranslationBase(tableName string) (string, bool) {
	lower := strings.ToLower(tableName)
	if !strings.HasSuffix(lower, n.config.TranslationSuffix) {
		return "", false
	}
	base := strings.TrimSuffix(lower, n.config.TranslationSuffix)
	if base == "" {
		return "", false
	}
	return n.Pluralize(base), true
}
