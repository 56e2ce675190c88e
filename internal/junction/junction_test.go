package junction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func existsIn(tables ...string) func(string) bool {
	set := make(map[string]bool, len(tables))
	for _, t := range tables {
		set[t] = true
	}
	return func(name string) bool { return set[name] }
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name          string
		table         Table
		existing      []string
		wantJunction  bool
		wantType      Type
		wantAttrCount int
	}{
		{
			name: "pure junction - only FK columns",
			table: Table{
				Name: "article_categories",
				Columns: []Column{
					{Name: "article_id", IsPrimaryKey: true, IsNullable: false},
					{Name: "category_id", IsPrimaryKey: true, IsNullable: false},
				},
				ForeignKeys: []ForeignKey{
					{ColumnName: "article_id", ReferencedTable: "articles", ReferencedColumn: "id"},
					{ColumnName: "category_id", ReferencedTable: "categories", ReferencedColumn: "id"},
				},
			},
			existing:      []string{"articles", "categories", "article_categories"},
			wantJunction:  true,
			wantType:      PureJunction,
			wantAttrCount: 0,
		},
		{
			name: "attribute junction - has extra columns",
			table: Table{
				Name: "product_suppliers",
				Columns: []Column{
					{Name: "product_id", IsPrimaryKey: true, IsNullable: false},
					{Name: "supplier_id", IsPrimaryKey: true, IsNullable: false},
					{Name: "unit_cost", IsNullable: false},
					{Name: "lead_time_days", IsNullable: false},
				},
				ForeignKeys: []ForeignKey{
					{ColumnName: "product_id", ReferencedTable: "products", ReferencedColumn: "id"},
					{ColumnName: "supplier_id", ReferencedTable: "suppliers", ReferencedColumn: "id"},
				},
			},
			existing:      []string{"products", "suppliers", "product_suppliers"},
			wantJunction:  true,
			wantType:      AttributeJunction,
			wantAttrCount: 2,
		},
		{
			name: "not a junction - single FK",
			table: Table{
				Name: "comments",
				Columns: []Column{
					{Name: "id", IsPrimaryKey: true},
					{Name: "article_id", IsNullable: false},
				},
				ForeignKeys: []ForeignKey{
					{ColumnName: "article_id", ReferencedTable: "articles", ReferencedColumn: "id"},
				},
			},
			existing:     []string{"articles", "comments"},
			wantJunction: false,
		},
		{
			name: "not a junction - nullable FK",
			table: Table{
				Name: "a_b",
				Columns: []Column{
					{Name: "a_id", IsPrimaryKey: true, IsNullable: false},
					{Name: "b_id", IsPrimaryKey: true, IsNullable: true},
				},
				ForeignKeys: []ForeignKey{
					{ColumnName: "a_id", ReferencedTable: "a", ReferencedColumn: "id"},
					{ColumnName: "b_id", ReferencedTable: "b", ReferencedColumn: "id"},
				},
			},
			existing:     []string{"a", "b", "a_b"},
			wantJunction: false,
		},
		{
			name: "not a junction - self-referential",
			table: Table{
				Name: "user_friends",
				Columns: []Column{
					{Name: "user_id", IsPrimaryKey: true, IsNullable: false},
					{Name: "friend_id", IsPrimaryKey: true, IsNullable: false},
				},
				ForeignKeys: []ForeignKey{
					{ColumnName: "user_id", ReferencedTable: "users", ReferencedColumn: "id"},
					{ColumnName: "friend_id", ReferencedTable: "users", ReferencedColumn: "id"},
				},
			},
			existing:     []string{"users", "user_friends"},
			wantJunction: false,
		},
		{
			name: "not a junction - three FKs",
			table: Table{
				Name: "a_b_c",
				Columns: []Column{
					{Name: "a_id", IsPrimaryKey: true, IsNullable: false},
					{Name: "b_id", IsPrimaryKey: true, IsNullable: false},
					{Name: "c_id", IsPrimaryKey: true, IsNullable: false},
				},
				ForeignKeys: []ForeignKey{
					{ColumnName: "a_id", ReferencedTable: "a", ReferencedColumn: "id"},
					{ColumnName: "b_id", ReferencedTable: "b", ReferencedColumn: "id"},
					{ColumnName: "c_id", ReferencedTable: "c", ReferencedColumn: "id"},
				},
			},
			existing:     []string{"a", "b", "c", "a_b_c"},
			wantJunction: false,
		},
		{
			name: "not a junction - no covering constraint",
			table: Table{
				Name: "a_b",
				Columns: []Column{
					{Name: "id", IsPrimaryKey: true, IsNullable: false},
					{Name: "a_id", IsNullable: false},
					{Name: "b_id", IsNullable: false},
				},
				ForeignKeys: []ForeignKey{
					{ColumnName: "a_id", ReferencedTable: "a", ReferencedColumn: "id"},
					{ColumnName: "b_id", ReferencedTable: "b", ReferencedColumn: "id"},
				},
			},
			existing:     []string{"a", "b", "a_b"},
			wantJunction: false,
		},
		{
			name: "junction with unique index instead of PK",
			table: Table{
				Name: "article_categories",
				Columns: []Column{
					{Name: "id", IsPrimaryKey: true, IsNullable: false},
					{Name: "article_id", IsNullable: false},
					{Name: "category_id", IsNullable: false},
				},
				ForeignKeys: []ForeignKey{
					{ColumnName: "article_id", ReferencedTable: "articles", ReferencedColumn: "id"},
					{ColumnName: "category_id", ReferencedTable: "categories", ReferencedColumn: "id"},
				},
				UniqueIndexes: [][]string{{"article_id", "category_id"}},
			},
			existing:     []string{"articles", "categories", "article_categories"},
			wantJunction: true,
			// The surrogate id counts as an attribute, so the table stays a record type.
			wantType:      AttributeJunction,
			wantAttrCount: 1,
		},
		{
			name: "referenced table missing",
			table: Table{
				Name: "article_categories",
				Columns: []Column{
					{Name: "article_id", IsPrimaryKey: true, IsNullable: false},
					{Name: "category_id", IsPrimaryKey: true, IsNullable: false},
				},
				ForeignKeys: []ForeignKey{
					{ColumnName: "article_id", ReferencedTable: "articles", ReferencedColumn: "id"},
					{ColumnName: "category_id", ReferencedTable: "categories", ReferencedColumn: "id"},
				},
			},
			existing:     []string{"articles", "article_categories"},
			wantJunction: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, ok := Classify(tt.table, existsIn(tt.existing...))
			require.Equal(t, tt.wantJunction, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.table.Name, info.Table)
			assert.Equal(t, tt.wantType, info.Type)
			assert.Len(t, info.AttributeColumns, tt.wantAttrCount)
		})
	}
}

func TestClassify_OrdersFKsByReferencedTable(t *testing.T) {
	table := Table{
		Name: "product_suppliers",
		Columns: []Column{
			{Name: "supplier_id", IsPrimaryKey: true, IsNullable: false},
			{Name: "product_id", IsPrimaryKey: true, IsNullable: false},
		},
		ForeignKeys: []ForeignKey{
			{ColumnName: "supplier_id", ReferencedTable: "suppliers", ReferencedColumn: "id"},
			{ColumnName: "product_id", ReferencedTable: "products", ReferencedColumn: "id"},
		},
	}

	info, ok := Classify(table, existsIn("products", "suppliers", "product_suppliers"))
	require.True(t, ok)
	assert.Equal(t, "products", info.LeftFK.ReferencedTable)
	assert.Equal(t, "suppliers", info.RightFK.ReferencedTable)
}

func TestClassify_NilTableExists(t *testing.T) {
	table := Table{
		Name: "a_b",
		Columns: []Column{
			{Name: "a_id", IsPrimaryKey: true, IsNullable: false},
			{Name: "b_id", IsPrimaryKey: true, IsNullable: false},
		},
		ForeignKeys: []ForeignKey{
			{ColumnName: "a_id", ReferencedTable: "a", ReferencedColumn: "id"},
			{ColumnName: "b_id", ReferencedTable: "b", ReferencedColumn: "id"},
		},
	}

	_, ok := Classify(table, nil)
	assert.False(t, ok)
}

func TestTypeString(t *testing.T) {
	assert.Equal(t, "NotJunction", NotJunction.String())
	assert.Equal(t, "PureJunction", PureJunction.String())
	assert.Equal(t, "AttributeJunction", AttributeJunction.String())
	assert.Equal(t, "Unknown", Type(99).String())
}
