// Package sqltype provides a shared mapping from SQL data types to value kinds.
// This ensures consistent coercion across schema discovery and record persistence.
package sqltype

import "strings"

// Kind represents the value category of a SQL column.
type Kind int

const (
	// KindString is the default kind for text and unknown SQL types.
	KindString Kind = iota
	// KindInt represents integer numeric types.
	KindInt
	// KindFloat represents floating-point and fixed-point numeric types.
	KindFloat
	// KindBool represents boolean types.
	KindBool
	// KindTime represents date and time types.
	KindTime
	// KindJSON represents JSON data types.
	KindJSON
	// KindBinary represents binary string types.
	KindBinary
	// KindEnum represents enum columns, whose values are restricted to the member list.
	KindEnum
	// KindSet represents set columns, which store a comma-joined subset of the member list.
	KindSet
	// KindUUID represents columns carrying UUID values, assigned via type overrides.
	KindUUID
)

// Of converts a SQL data type string to its value kind.
// The input is case-insensitive. Size specifiers like (10,2) or (255) are stripped before matching.
// This handles both INFORMATION_SCHEMA.COLUMNS.DATA_TYPE (base type only) and COLUMN_TYPE (full type with size).
func Of(sqlType string) Kind {
	// Strip size specifiers like (10,2) or (255)
	if idx := strings.Index(sqlType, "("); idx != -1 {
		sqlType = sqlType[:idx]
	}
	switch strings.ToUpper(strings.TrimSpace(sqlType)) {
	// Integer Numeric Data Types
	case "TINYINT", "SMALLINT", "MEDIUMINT", "INT",
		"INTEGER", "BIGINT", "SERIAL", "BIT":
		return KindInt
	// Floating Point Numeric Data Types
	case "FLOAT", "DOUBLE":
		return KindFloat
	// Fixed-Point Numeric Data Types
	case "DECIMAL", "NUMERIC":
		return KindFloat
	// Boolean Data Type
	case "BOOL", "BOOLEAN":
		return KindBool
	// JSON Type
	case "JSON":
		return KindJSON
	// Binary String Data Types
	case "BINARY", "VARBINARY", "BLOB", "TINYBLOB",
		"MEDIUMBLOB", "LONGBLOB":
		return KindBinary
	case "ENUM":
		return KindEnum
	case "SET":
		return KindSet
	// Date and Time Data Types
	case "DATE", "DATETIME", "TIMESTAMP", "TIME", "YEAR":
		return KindTime
	// String Data Types (explicit)
	case "CHAR", "VARCHAR", "TINYTEXT", "TEXT",
		"MEDIUMTEXT", "LONGTEXT":
		return KindString
	default:
		return KindString
	}
}

// String returns a human-readable name for logs and error messages.
func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindTime:
		return "time"
	case KindJSON:
		return "json"
	case KindBinary:
		return "binary"
	case KindEnum:
		return "enum"
	case KindSet:
		return "set"
	case KindUUID:
		return "uuid"
	default:
		return "string"
	}
}
