package sqltype

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOf_IntegerTypes(t *testing.T) {
	intTypes := []string{
		"TINYINT", "tinyint",
		"SMALLINT", "smallint",
		"MEDIUMINT", "mediumint",
		"INT", "int",
		"INTEGER", "integer",
		"BIGINT", "bigint",
		"SERIAL", "serial",
		"BIT", "bit",
	}

	for _, sqlType := range intTypes {
		t.Run(sqlType, func(t *testing.T) {
			assert.Equal(t, KindInt, Of(sqlType))
			assert.Equal(t, "int", Of(sqlType).String())
		})
	}
}

func TestOf_FloatTypes(t *testing.T) {
	floatTypes := []string{
		"FLOAT", "float",
		"DOUBLE", "double",
		"DECIMAL", "decimal",
		"NUMERIC", "numeric",
	}

	for _, sqlType := range floatTypes {
		t.Run(sqlType, func(t *testing.T) {
			assert.Equal(t, KindFloat, Of(sqlType))
			assert.Equal(t, "float", Of(sqlType).String())
		})
	}
}

func TestOf_BooleanTypes(t *testing.T) {
	boolTypes := []string{
		"BOOL", "bool",
		"BOOLEAN", "boolean",
	}

	for _, sqlType := range boolTypes {
		t.Run(sqlType, func(t *testing.T) {
			assert.Equal(t, KindBool, Of(sqlType))
			assert.Equal(t, "bool", Of(sqlType).String())
		})
	}
}

func TestOf_StringTypes(t *testing.T) {
	stringTypes := []string{
		"CHAR", "char",
		"VARCHAR", "varchar",
		"TINYTEXT", "tinytext",
		"TEXT", "text",
		"MEDIUMTEXT", "mediumtext",
		"LONGTEXT", "longtext",
	}

	for _, sqlType := range stringTypes {
		t.Run(sqlType, func(t *testing.T) {
			assert.Equal(t, KindString, Of(sqlType))
			assert.Equal(t, "string", Of(sqlType).String())
		})
	}
}

func TestOf_BinaryTypes(t *testing.T) {
	binaryTypes := []string{
		"BINARY", "binary",
		"VARBINARY", "varbinary",
		"BLOB", "blob",
		"TINYBLOB", "tinyblob",
		"MEDIUMBLOB", "mediumblob",
		"LONGBLOB", "longblob",
	}

	for _, sqlType := range binaryTypes {
		t.Run(sqlType, func(t *testing.T) {
			assert.Equal(t, KindBinary, Of(sqlType))
			assert.Equal(t, "binary", Of(sqlType).String())
		})
	}
}

func TestOf_TimeTypes(t *testing.T) {
	timeTypes := []string{
		"DATE", "date",
		"DATETIME", "datetime",
		"TIMESTAMP", "timestamp",
		"TIME", "time",
		"YEAR", "year",
	}

	for _, sqlType := range timeTypes {
		t.Run(sqlType, func(t *testing.T) {
			assert.Equal(t, KindTime, Of(sqlType))
			assert.Equal(t, "time", Of(sqlType).String())
		})
	}
}

func TestOf_JSONType(t *testing.T) {
	jsonTypes := []string{"JSON", "json"}

	for _, sqlType := range jsonTypes {
		t.Run(sqlType, func(t *testing.T) {
			assert.Equal(t, KindJSON, Of(sqlType))
			assert.Equal(t, "json", Of(sqlType).String())
		})
	}
}

func TestOf_EnumAndSetTypes(t *testing.T) {
	assert.Equal(t, KindEnum, Of("ENUM"))
	assert.Equal(t, KindEnum, Of("enum('draft','published')"))
	assert.Equal(t, KindSet, Of("SET"))
	assert.Equal(t, KindSet, Of("set('a','b','c')"))
}

func TestOf_UnknownTypesDefaultToString(t *testing.T) {
	unknownTypes := []string{
		"GEOMETRY",
		"POINT",
		"LINESTRING",
		"POLYGON",
		"UNKNOWN_TYPE",
		"",
	}

	for _, sqlType := range unknownTypes {
		t.Run(sqlType, func(t *testing.T) {
			assert.Equal(t, KindString, Of(sqlType))
			assert.Equal(t, "string", Of(sqlType).String())
		})
	}
}

func TestOf_NoFalsePositives(t *testing.T) {
	// These types previously matched incorrectly with strings.Contains
	testCases := []struct {
		sqlType  string
		expected Kind
	}{
		// "POINT" should NOT match "int"
		{"POINT", KindString},
		// "MULTIPOINT" should NOT match "int"
		{"MULTIPOINT", KindString},
		// "TINYINT" SHOULD match int
		{"TINYINT", KindInt},
	}

	for _, tc := range testCases {
		t.Run(tc.sqlType, func(t *testing.T) {
			assert.Equal(t, tc.expected, Of(tc.sqlType))
		})
	}
}

func TestOf_WithSizeSpecifiers(t *testing.T) {
	testCases := []struct {
		sqlType      string
		expected     Kind
		expectedName string
	}{
		{"varchar(255)", KindString, "string"},
		{"VARCHAR(100)", KindString, "string"},
		{"char(10)", KindString, "string"},
		{"decimal(10,2)", KindFloat, "float"},
		{"DECIMAL(18,4)", KindFloat, "float"},
		{"int(11)", KindInt, "int"},
		{"INT(10)", KindInt, "int"},
		{"bigint(20)", KindInt, "int"},
		{"tinyint(1)", KindInt, "int"},
		{"binary(16)", KindBinary, "binary"},
	}

	for _, tc := range testCases {
		t.Run(tc.sqlType, func(t *testing.T) {
			assert.Equal(t, tc.expected, Of(tc.sqlType))
			assert.Equal(t, tc.expectedName, Of(tc.sqlType).String())
		})
	}
}

func TestKindUUID_StringName(t *testing.T) {
	// KindUUID is never produced by Of; it is assigned through type overrides.
	assert.Equal(t, "uuid", KindUUID.String())
}
