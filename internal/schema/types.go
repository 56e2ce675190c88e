// Package schema models record types and their associations: which table
// backs a type, which columns it carries, and how rows relate across foreign
// keys. Types are discovered from the database's information_schema or
// registered by hand, and association metadata drives nested attribute
// assignment.
package schema

import (
	"strings"

	"record-i18n/internal/record"
	"record-i18n/internal/sqltype"
)

// Column represents a database column
type Column struct {
	Name     string
	DataType string
	// ColumnType is the full type spec from INFORMATION_SCHEMA, e.g.
	// "enum('draft','published')" or "binary(16)".
	ColumnType      string
	IsNullable      bool
	IsPrimaryKey    bool
	IsAutoIncrement bool
	// EnumValues holds the member list for enum and set columns.
	EnumValues []string

	// TypeOverride replaces the kind derived from DataType when
	// HasTypeOverride is set. Configured through type mappings.
	TypeOverride    sqltype.Kind
	HasTypeOverride bool
}

// Kind returns the value kind persistence should coerce this column to.
// tinyint(1) reads as bool, following the MySQL convention.
func (c Column) Kind() sqltype.Kind {
	if c.HasTypeOverride {
		return c.TypeOverride
	}
	if strings.EqualFold(c.DataType, "tinyint") {
		if length, ok := sqlTypeLength(c); ok && length == 1 {
			return sqltype.KindBool
		}
	}
	return sqltype.Of(c.DataType)
}

// RecordType describes one record type and the table backing it.
type RecordType struct {
	// Name is the singular record type name, e.g. "article".
	Name string
	// Table is the backing table name, e.g. "articles".
	Table string
	// PrimaryKey is the primary key column name.
	PrimaryKey string
	Columns    []Column
}

// Column returns the named column and whether it exists.
func (t *RecordType) Column(name string) (Column, bool) {
	for _, col := range t.Columns {
		if col.Name == name {
			return col, true
		}
	}
	return Column{}, false
}

// HasColumn reports whether the type carries the named column.
func (t *RecordType) HasColumn(name string) bool {
	_, ok := t.Column(name)
	return ok
}

// ColumnNames returns all column names in table order.
func (t *RecordType) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		names[i] = col.Name
	}
	return names
}

// Translatable reports whether rows of this type are per-locale translations,
// i.e. the table carries both a locale and a content identity column.
func (t *RecordType) Translatable() bool {
	return t.HasColumn(record.FieldLocale) && t.HasColumn(record.FieldContentID)
}

// Association describes one direction of a foreign key relationship between
// two record types, as seen from the owning side of nested assignment.
type Association struct {
	// Owner is the record type the association is declared on.
	Owner string
	// Name is the association name used in nested attribute input,
	// e.g. "translations" or "comments".
	Name string
	// Target is the associated record type.
	Target string
	// ForeignKey is the column joining target rows to the owner (collection)
	// or the owner row to the target (reference).
	ForeignKey string
	// Collection marks a one-to-many association; false means a single
	// reference.
	Collection bool

	// TranslationShared marks an association whose target rows are locale
	// translations sharing a content identity. Assignment may redirect
	// updates to a different locale's row.
	TranslationShared bool
	// TranslationSharedOnInitialize marks an association that only behaves
	// as translation shared while the owner is being created, when payloads
	// cascade to sibling locale variants.
	TranslationSharedOnInitialize bool
}

// IsCollection reports whether the association holds many rows.
func (a *Association) IsCollection() bool { return a.Collection }

// SharedFor reports whether translation sharing applies to an assignment on
// the given owner record. Always-shared associations qualify outright; the
// on-initialize mode qualifies only while the owner is unsaved.
func (a *Association) SharedFor(owner *record.Record) bool {
	if a.TranslationShared {
		return true
	}
	return a.TranslationSharedOnInitialize && owner != nil && owner.IsNewRecord()
}
