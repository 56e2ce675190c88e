package store

import (
	"context"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"record-i18n/internal/dbexec"
	"record-i18n/internal/record"
	"record-i18n/internal/schema"
	"record-i18n/internal/sqltype"
	"record-i18n/internal/uuidutil"
)

func coercionType() *schema.RecordType {
	return &schema.RecordType{
		Name:       "product",
		Table:      "products",
		PrimaryKey: "id",
		Columns: []schema.Column{
			{Name: "id", DataType: "bigint", IsPrimaryKey: true, IsAutoIncrement: true},
			{Name: "external_id", DataType: "binary", ColumnType: "binary(16)", TypeOverride: sqltype.KindUUID, HasTypeOverride: true},
			{Name: "tracking_id", DataType: "char", ColumnType: "char(36)", TypeOverride: sqltype.KindUUID, HasTypeOverride: true},
			{Name: "status", DataType: "enum", ColumnType: "enum('draft','published')", EnumValues: []string{"draft", "published"}},
			{Name: "tags", DataType: "set", ColumnType: "set('new','featured','sale')", EnumValues: []string{"new", "featured", "sale"}},
			{Name: "metadata", DataType: "json"},
			{Name: "is_active", DataType: "tinyint", ColumnType: "tinyint(1)"},
			{Name: "position", DataType: "int"},
			{Name: "name", DataType: "varchar"},
		},
	}
}

func coerceOne(t *testing.T, column string, value any) (any, any) {
	t.Helper()

	rec, args, err := coerceWriteFields(coercionType(), map[string]any{column: value})
	require.NoError(t, err)
	return rec[column], args[column]
}

func TestCoerceWriteFields_UUIDBinaryStorage(t *testing.T) {
	u := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

	recValue, arg := coerceOne(t, "external_id", strings.ToUpper(u.String()))
	assert.Equal(t, u.String(), recValue, "record keeps the canonical text form")
	assert.Equal(t, uuidutil.Bytes(u), arg, "binary storage binds the raw bytes")
}

func TestCoerceWriteFields_UUIDTextStorage(t *testing.T) {
	u := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

	recValue, arg := coerceOne(t, "tracking_id", strings.ToUpper(u.String()))
	assert.Equal(t, u.String(), recValue)
	assert.Equal(t, u.String(), arg)
}

func TestCoerceWriteFields_UUIDRejectsMalformedValue(t *testing.T) {
	_, _, err := coerceWriteFields(coercionType(), map[string]any{"external_id": "not-a-uuid"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "products.external_id")
}

func TestCoerceWriteFields_SetCanonicalizesMembers(t *testing.T) {
	recValue, arg := coerceOne(t, "tags", "sale,new,sale")
	assert.Equal(t, "new,sale", recValue, "members dedupe into declaration order")
	assert.Equal(t, "new,sale", arg)

	recValue, arg = coerceOne(t, "tags", []string{"featured", "new"})
	assert.Equal(t, "new,featured", recValue)
	assert.Equal(t, "new,featured", arg)
}

func TestCoerceWriteFields_SetRejectsUnknownMember(t *testing.T) {
	_, _, err := coerceWriteFields(coercionType(), map[string]any{"tags": "new,discounted"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown set member")
	assert.Contains(t, err.Error(), "products.tags")
}

func TestCoerceWriteFields_EnumValidatesMembership(t *testing.T) {
	recValue, arg := coerceOne(t, "status", "published")
	assert.Equal(t, "published", recValue)
	assert.Equal(t, "published", arg)

	recValue, arg = coerceOne(t, "status", []byte("draft"))
	assert.Equal(t, "draft", recValue)
	assert.Equal(t, "draft", arg)
}

func TestCoerceWriteFields_EnumRejectsUnknownValue(t *testing.T) {
	_, _, err := coerceWriteFields(coercionType(), map[string]any{"status": "archived"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid enum value "archived"`)
	assert.Contains(t, err.Error(), "draft, published")
}

func TestCoerceWriteFields_EnumRejectsNonString(t *testing.T) {
	_, _, err := coerceWriteFields(coercionType(), map[string]any{"status": 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "enum value must be a string")
}

func TestCoerceWriteFields_JSONMarshalsStructuredValues(t *testing.T) {
	recValue, arg := coerceOne(t, "metadata", map[string]any{"weight": 2})
	assert.Equal(t, map[string]any{"weight": 2}, recValue, "record keeps the structured value")
	assert.Equal(t, `{"weight":2}`, arg)

	recValue, arg = coerceOne(t, "metadata", `{"raw":true}`)
	assert.Equal(t, `{"raw":true}`, recValue, "pre-encoded JSON passes through")
	assert.Equal(t, `{"raw":true}`, arg)
}

func TestCoerceWriteFields_BoolCoercion(t *testing.T) {
	recValue, arg := coerceOne(t, "is_active", true)
	assert.Equal(t, true, recValue)
	assert.Equal(t, true, arg)

	recValue, arg = coerceOne(t, "is_active", "0")
	assert.Equal(t, false, recValue)
	assert.Equal(t, false, arg)

	recValue, arg = coerceOne(t, "is_active", 1)
	assert.Equal(t, true, recValue)
	assert.Equal(t, true, arg)
}

func TestCoerceWriteFields_IntCoercion(t *testing.T) {
	recValue, arg := coerceOne(t, "position", "42")
	assert.Equal(t, int64(42), recValue)
	assert.Equal(t, int64(42), arg)

	recValue, arg = coerceOne(t, "position", true)
	assert.Equal(t, int64(1), recValue)
	assert.Equal(t, int64(1), arg)

	recValue, arg = coerceOne(t, "position", false)
	assert.Equal(t, int64(0), recValue)
	assert.Equal(t, int64(0), arg)
}

func TestCoerceWriteFields_IntRejectsNonNumeric(t *testing.T) {
	_, _, err := coerceWriteFields(coercionType(), map[string]any{"position": "third"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid integer value")
}

func TestCoerceWriteFields_PassthroughAndNil(t *testing.T) {
	recValue, arg := coerceOne(t, "name", "Widget")
	assert.Equal(t, "Widget", recValue)
	assert.Equal(t, "Widget", arg)

	recValue, arg = coerceOne(t, "name", nil)
	assert.Nil(t, recValue)
	assert.Nil(t, arg)
}

func TestCoerceWriteFields_UnknownColumn(t *testing.T) {
	_, _, err := coerceWriteFields(coercionType(), map[string]any{"color": "red"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown column "color"`)
}

func TestNormalizeValue_UUIDColumns(t *testing.T) {
	u := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	typ := coercionType()

	binaryCol, ok := typ.Column("external_id")
	require.True(t, ok)
	assert.Equal(t, u.String(), normalizeValue(binaryCol, uuidutil.Bytes(u)))

	textCol, ok := typ.Column("tracking_id")
	require.True(t, ok)
	assert.Equal(t, u.String(), normalizeValue(textCol, []byte(strings.ToUpper(u.String()))))
}

func TestNormalizeValue_BinaryAndText(t *testing.T) {
	blob := schema.Column{Name: "payload", DataType: "blob"}
	assert.Equal(t, []byte{0x01, 0x02}, normalizeValue(blob, []byte{0x01, 0x02}))

	text := schema.Column{Name: "title", DataType: "varchar"}
	assert.Equal(t, "Hallo", normalizeValue(text, []byte("Hallo")))
}

func TestSQLStore_Update_CoercesColumnValues(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	registry := schema.NewRegistry()
	require.NoError(t, registry.RegisterType(coercionType()))
	s := NewSQLStore(dbexec.NewStandardExecutor(db), registry, nil)

	u := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	mock.ExpectExec("UPDATE `products` SET `external_id` = \\?, `tags` = \\? WHERE `id` = \\?").
		WithArgs(uuidutil.Bytes(u), "new,sale", int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec := record.Hydrate("product", map[string]any{"id": int64(5)})
	err := s.Update(context.Background(), rec, map[string]any{
		"external_id": strings.ToUpper(u.String()),
		"tags":        "sale,new",
	})
	require.NoError(t, err)

	got, _ := rec.Get("external_id")
	assert.Equal(t, u.String(), got, "record mirrors the canonical form, not the driver bytes")
	got, _ = rec.Get("tags")
	assert.Equal(t, "new,sale", got)
	assert.Empty(t, rec.ChangedFields())

	require.NoError(t, mock.ExpectationsWereMet())
}
