// Package junction provides classification logic for database junction tables.
// It identifies many-to-many link tables and classifies them as either pure
// junctions (only FK columns) or attribute junctions (has additional columns).
// Pure junction rows carry no assignable fields, so discovery skips them
// rather than registering record types for them.
package junction

// Type classifies how a junction table should be treated during discovery.
type Type int

const (
	// NotJunction indicates the table is not a junction table.
	NotJunction Type = iota
	// PureJunction indicates a junction with only FK columns.
	PureJunction
	// AttributeJunction indicates a junction with additional non-FK columns.
	// These stay registered as ordinary record types.
	AttributeJunction
)

// String returns a human-readable representation of the junction type.
func (t Type) String() string {
	switch t {
	case NotJunction:
		return "NotJunction"
	case PureJunction:
		return "PureJunction"
	case AttributeJunction:
		return "AttributeJunction"
	default:
		return "Unknown"
	}
}

// Column is the subset of column metadata junction detection needs.
type Column struct {
	Name         string
	IsNullable   bool
	IsPrimaryKey bool
}

// ForeignKey is a single-column foreign key candidate.
type ForeignKey struct {
	ColumnName       string // FK column in junction table (e.g., "category_id")
	ReferencedTable  string // Target table (e.g., "categories")
	ReferencedColumn string // Target column (e.g., "id")
}

// Table carries the classification input for one table.
type Table struct {
	Name        string
	Columns     []Column
	ForeignKeys []ForeignKey
	// UniqueIndexes lists the column names of each unique index.
	UniqueIndexes [][]string
}

// Info contains classification metadata for a junction table.
type Info struct {
	// Table is the junction table name.
	Table string
	// Type indicates pure vs attribute junction.
	Type Type
	// LeftFK is the first foreign key (alphabetically by referenced table).
	LeftFK ForeignKey
	// RightFK is the second foreign key.
	RightFK ForeignKey
	// AttributeColumns lists non-FK column names (for attribute junctions).
	AttributeColumns []string
}

// Classify checks if a table qualifies as a junction and returns its
// classification. A table is classified as a junction when:
//   - It has exactly 2 foreign keys to different tables
//   - All FK columns are NOT NULL
//   - There is a composite PK or unique index covering all FK columns
//   - Both referenced tables exist per tableExists
func Classify(table Table, tableExists func(string) bool) (Info, bool) {
	// Rule 1: Must have exactly 2 foreign keys
	if len(table.ForeignKeys) != 2 {
		return Info{}, false
	}

	fk1 := table.ForeignKeys[0]
	fk2 := table.ForeignKeys[1]

	// Rule 2: FKs must reference different tables (no self-referential)
	if fk1.ReferencedTable == fk2.ReferencedTable {
		return Info{}, false
	}

	if tableExists == nil || !tableExists(fk1.ReferencedTable) || !tableExists(fk2.ReferencedTable) {
		return Info{}, false
	}

	// Build set of FK column names
	fkColNames := map[string]bool{
		fk1.ColumnName: true,
		fk2.ColumnName: true,
	}

	// Rule 3: All FK columns must be NOT NULL
	for _, col := range table.Columns {
		if fkColNames[col.Name] && col.IsNullable {
			return Info{}, false
		}
	}

	// Rule 4: Must have composite PK or unique index covering all FK columns
	if !hasCoveringConstraint(table, fkColNames) {
		return Info{}, false
	}

	// Classify as pure or attribute junction
	attributeCols := findAttributeColumns(table, fkColNames)
	junctionType := PureJunction
	if len(attributeCols) > 0 {
		junctionType = AttributeJunction
	}

	// Order FKs alphabetically by referenced table for consistent reporting
	leftFK, rightFK := orderFKs(fk1, fk2)

	return Info{
		Table:            table.Name,
		Type:             junctionType,
		LeftFK:           leftFK,
		RightFK:          rightFK,
		AttributeColumns: attributeCols,
	}, true
}

// hasCoveringConstraint checks if there's a PK or unique index covering all FK columns.
func hasCoveringConstraint(table Table, fkCols map[string]bool) bool {
	// Check if PK covers all FK columns
	pkCols := make(map[string]bool)
	for _, col := range table.Columns {
		if col.IsPrimaryKey {
			pkCols[col.Name] = true
		}
	}
	if coversAll(pkCols, fkCols) {
		return true
	}

	// Check unique indexes
	for _, idx := range table.UniqueIndexes {
		idxCols := make(map[string]bool)
		for _, col := range idx {
			idxCols[col] = true
		}
		if coversAll(idxCols, fkCols) {
			return true
		}
	}
	return false
}

// coversAll returns true if 'covering' contains all keys from 'required'.
func coversAll(covering, required map[string]bool) bool {
	for col := range required {
		if !covering[col] {
			return false
		}
	}
	return true
}

// findAttributeColumns returns column names that are not part of any FK.
func findAttributeColumns(table Table, fkCols map[string]bool) []string {
	var attrs []string
	for _, col := range table.Columns {
		if !fkCols[col.Name] {
			attrs = append(attrs, col.Name)
		}
	}
	return attrs
}

// orderFKs returns FKs ordered alphabetically by referenced table name.
func orderFKs(fk1, fk2 ForeignKey) (ForeignKey, ForeignKey) {
	if fk1.ReferencedTable > fk2.ReferencedTable {
		return fk2, fk1
	}
	return fk1, fk2
}
