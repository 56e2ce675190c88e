package schema

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"record-i18n/internal/junction"
	"record-i18n/internal/naming"
	"record-i18n/internal/schemafilter"
)

// Queryer provides query access for schema discovery.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// foreignKey is one column of a foreign key constraint.
type foreignKey struct {
	ColumnName       string // e.g., "article_id"
	ReferencedTable  string // e.g., "articles"
	ReferencedColumn string // e.g., "id"
	ConstraintName   string // e.g., "comments_ibfk_1"
	OrdinalPosition  int
}

// tableData is the raw metadata loaded for one table before registration.
type tableData struct {
	columns       []Column
	foreignKeys   []foreignKey
	uniqueIndexes [][]string
}

// Discover builds a registry from the database's information_schema. Tables
// become record types and single-column foreign keys become associations in
// both directions. Tables following the translation table convention are
// registered as translation shared collections on their base type.
//
// Filters exclude tables and columns before anything is registered. Pure
// junction tables carry nothing assignable, so they are skipped. Shapes
// nested assignment cannot address, like composite keys, are also skipped
// with a warning rather than failing discovery.
func Discover(ctx context.Context, db Queryer, databaseName string, namer *naming.Namer, filters schemafilter.Config) (*Registry, error) {
	ctx, span := startSpan(ctx, "schema.discover",
		attribute.String("db.name", databaseName),
	)
	defer span.End()

	if namer == nil {
		namer = naming.Default()
	}
	logger := slog.Default()

	tables, err := getTables(ctx, db, databaseName)
	if err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("failed to get tables: %w", err)
	}

	// Load raw metadata for every allowed table first, so junction detection
	// sees all candidates before any type is registered.
	kept := make([]string, 0, len(tables))
	data := make(map[string]*tableData, len(tables))
	for _, tableName := range tables {
		if !schemafilter.TableAllowed(filters, tableName) {
			logger.Debug("table excluded by schema filters",
				slog.String("table", tableName),
			)
			continue
		}

		columns, err := getColumns(ctx, db, databaseName, tableName)
		if err != nil {
			recordSpanError(span, err)
			return nil, fmt.Errorf("failed to get columns for %s: %w", tableName, err)
		}
		columns = filterColumns(filters, logger, tableName, columns)

		fks, err := getForeignKeys(ctx, db, databaseName, tableName)
		if err != nil {
			recordSpanError(span, err)
			return nil, fmt.Errorf("failed to get foreign keys for table %s: %w", tableName, err)
		}
		fks = dropFKsOnExcludedColumns(logger, tableName, columns, fks)

		uniqueIndexes, err := getUniqueIndexes(ctx, db, databaseName, tableName)
		if err != nil {
			recordSpanError(span, err)
			return nil, fmt.Errorf("failed to get indexes for table %s: %w", tableName, err)
		}

		kept = append(kept, tableName)
		data[tableName] = &tableData{
			columns:       columns,
			foreignKeys:   fks,
			uniqueIndexes: uniqueIndexes,
		}
	}

	junctions := classifyJunctions(kept, data)

	registry := NewRegistry()
	typeByTable := make(map[string]*RecordType, len(kept))
	for _, tableName := range kept {
		if info, isJunction := junctions[tableName]; isJunction && info.Type == junction.PureJunction {
			logger.Info("skipping pure junction table",
				slog.String("table", tableName),
				slog.String("left_table", info.LeftFK.ReferencedTable),
				slog.String("right_table", info.RightFK.ReferencedTable),
			)
			continue
		}

		columns := data[tableName].columns
		pk, ok := pickPrimaryKey(columns)
		if !ok {
			logger.Warn("skipping table without a usable single-column primary key",
				slog.String("table", tableName),
			)
			continue
		}

		t := &RecordType{
			Name:       namer.TypeName(tableName),
			Table:      tableName,
			PrimaryKey: pk,
			Columns:    columns,
		}
		if err := registry.RegisterType(t); err != nil {
			logger.Warn("skipping table",
				slog.String("table", tableName),
				slog.String("error", err.Error()),
			)
			continue
		}
		typeByTable[tableName] = t
	}

	for _, tableName := range kept {
		childType, ok := typeByTable[tableName]
		if !ok {
			continue
		}
		registerAssociations(registry, namer, logger, childType, data[tableName].foreignKeys, typeByTable)
	}

	span.SetAttributes(attribute.Int("schema.types", len(registry.TypeNames())))
	return registry, nil
}

// filterColumns drops columns denied by the schema filters.
func filterColumns(filters schemafilter.Config, logger *slog.Logger, tableName string, columns []Column) []Column {
	kept := columns[:0]
	for _, col := range columns {
		if !schemafilter.ColumnAllowed(filters, tableName, col.Name) {
			logger.Debug("column excluded by schema filters",
				slog.String("table", tableName),
				slog.String("column", col.Name),
			)
			continue
		}
		kept = append(kept, col)
	}
	return kept
}

// dropFKsOnExcludedColumns drops foreign key rows whose column the filters
// removed, so they neither form associations nor count toward junction
// detection.
func dropFKsOnExcludedColumns(logger *slog.Logger, tableName string, columns []Column, fks []foreignKey) []foreignKey {
	names := make(map[string]bool, len(columns))
	for _, col := range columns {
		names[col.Name] = true
	}
	kept := fks[:0]
	for _, fk := range fks {
		if !names[fk.ColumnName] {
			logger.Debug("dropping foreign key on excluded column",
				slog.String("table", tableName),
				slog.String("column", fk.ColumnName),
			)
			continue
		}
		kept = append(kept, fk)
	}
	return kept
}

// classifyJunctions runs junction detection over the loaded table metadata.
func classifyJunctions(tables []string, data map[string]*tableData) map[string]junction.Info {
	exists := func(name string) bool { return data[name] != nil }

	result := make(map[string]junction.Info)
	for _, tableName := range tables {
		td := data[tableName]

		cols := make([]junction.Column, len(td.columns))
		for i, col := range td.columns {
			cols[i] = junction.Column{
				Name:         col.Name,
				IsNullable:   col.IsNullable,
				IsPrimaryKey: col.IsPrimaryKey,
			}
		}
		// Composite FK constraints never qualify; only single-column
		// constraints feed detection.
		var fks []junction.ForeignKey
		for _, constraint := range groupByConstraint(td.foreignKeys) {
			if len(constraint) != 1 {
				continue
			}
			fks = append(fks, junction.ForeignKey{
				ColumnName:       constraint[0].ColumnName,
				ReferencedTable:  constraint[0].ReferencedTable,
				ReferencedColumn: constraint[0].ReferencedColumn,
			})
		}

		info, ok := junction.Classify(junction.Table{
			Name:          tableName,
			Columns:       cols,
			ForeignKeys:   fks,
			UniqueIndexes: td.uniqueIndexes,
		}, exists)
		if ok {
			result[tableName] = info
		}
	}
	return result
}

// registerAssociations turns a child table's foreign keys into a reference
// association on the child and a collection association on each parent.
func registerAssociations(registry *Registry, namer *naming.Namer, logger *slog.Logger, childType *RecordType, fks []foreignKey, typeByTable map[string]*RecordType) {
	grouped := groupByConstraint(fks)

	// Count FKs per referenced table so a second FK to the same parent gets a
	// disambiguated collection name, e.g. author_id -> "author_articles".
	perParent := make(map[string]int)
	for _, constraint := range grouped {
		if len(constraint) == 1 {
			perParent[constraint[0].ReferencedTable]++
		}
	}

	for _, constraint := range grouped {
		if len(constraint) > 1 {
			logger.Warn("skipping composite foreign key",
				slog.String("table", childType.Table),
				slog.String("constraint", constraint[0].ConstraintName),
			)
			continue
		}
		fk := constraint[0]

		parentType, ok := typeByTable[fk.ReferencedTable]
		if !ok {
			logger.Warn("skipping foreign key to unknown table",
				slog.String("table", childType.Table),
				slog.String("referenced_table", fk.ReferencedTable),
			)
			continue
		}
		if fk.ReferencedColumn != parentType.PrimaryKey {
			logger.Warn("skipping foreign key not referencing the primary key",
				slog.String("table", childType.Table),
				slog.String("referenced_table", fk.ReferencedTable),
				slog.String("referenced_column", fk.ReferencedColumn),
			)
			continue
		}

		reference := &Association{
			Owner:      childType.Name,
			Name:       namer.ReferenceName(fk.ColumnName),
			Target:     parentType.Name,
			ForeignKey: fk.ColumnName,
		}
		if err := registry.RegisterAssociation(reference); err != nil {
			logger.Warn("skipping reference association",
				slog.String("table", childType.Table),
				slog.String("error", err.Error()),
			)
		}

		collectionName := namer.CollectionName(parentType.Table, childType.Table)
		if perParent[fk.ReferencedTable] > 1 {
			collectionName = namer.ReferenceName(fk.ColumnName) + "_" + childType.Table
		}
		collection := &Association{
			Owner:             parentType.Name,
			Name:              collectionName,
			Target:            childType.Name,
			ForeignKey:        fk.ColumnName,
			Collection:        true,
			TranslationShared: childType.Table == namer.TranslationTable(parentType.Table) && childType.Translatable(),
		}
		if err := registry.RegisterAssociation(collection); err != nil {
			logger.Warn("skipping collection association",
				slog.String("table", parentType.Table),
				slog.String("error", err.Error()),
			)
		}
	}
}

// pickPrimaryKey returns the single primary key column, falling back to an
// "id" column on keyless tables. Composite keys are not usable.
func pickPrimaryKey(columns []Column) (string, bool) {
	var pks []string
	for _, col := range columns {
		if col.IsPrimaryKey {
			pks = append(pks, col.Name)
		}
	}
	switch len(pks) {
	case 1:
		return pks[0], true
	case 0:
		for _, col := range columns {
			if col.Name == "id" {
				return col.Name, true
			}
		}
	}
	return "", false
}

func groupByConstraint(fks []foreignKey) [][]foreignKey {
	var order []string
	byName := make(map[string][]foreignKey)
	for _, fk := range fks {
		if _, seen := byName[fk.ConstraintName]; !seen {
			order = append(order, fk.ConstraintName)
		}
		byName[fk.ConstraintName] = append(byName[fk.ConstraintName], fk)
	}
	out := make([][]foreignKey, 0, len(order))
	for _, name := range order {
		out = append(out, byName[name])
	}
	return out
}

func getTables(ctx context.Context, db Queryer, databaseName string) ([]string, error) {
	ctx, span := startSpan(ctx, "schema.get_tables",
		attribute.String("db.name", databaseName),
	)
	defer span.End()

	query := `
		SELECT TABLE_NAME
		FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_SCHEMA = ?
		AND TABLE_TYPE = 'BASE TABLE'
		ORDER BY TABLE_NAME
	`

	rows, err := db.QueryContext(ctx, query, databaseName)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var tables []string
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			recordSpanError(span, err)
			return nil, err
		}
		tables = append(tables, tableName)
	}

	if err := rows.Err(); err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	return tables, nil
}

func getColumns(ctx context.Context, db Queryer, databaseName, tableName string) ([]Column, error) {
	ctx, span := startSpan(ctx, "schema.get_columns",
		attribute.String("db.name", databaseName),
		attribute.String("db.table", tableName),
	)
	defer span.End()

	query := `
		SELECT
			COLUMN_NAME,
			DATA_TYPE,
			COLUMN_TYPE,
			IS_NULLABLE,
			COLUMN_KEY,
			EXTRA
		FROM INFORMATION_SCHEMA.COLUMNS
		WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
		ORDER BY ORDINAL_POSITION
	`

	rows, err := db.QueryContext(ctx, query, databaseName, tableName)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var columns []Column
	for rows.Next() {
		var col Column
		var isNullable string
		var columnKey sql.NullString
		var extra sql.NullString
		if err := rows.Scan(&col.Name, &col.DataType, &col.ColumnType, &isNullable, &columnKey, &extra); err != nil {
			recordSpanError(span, err)
			return nil, err
		}
		col.IsNullable = strings.ToUpper(isNullable) == "YES"
		col.IsPrimaryKey = columnKey.Valid && strings.EqualFold(columnKey.String, "PRI")
		col.IsAutoIncrement = extra.Valid && strings.Contains(strings.ToLower(extra.String), "auto_increment")
		if strings.EqualFold(col.DataType, "enum") {
			values, err := parseMembers("enum", col.ColumnType)
			if err != nil {
				slog.Default().Warn("failed to parse enum values", slog.String("column", col.Name), slog.String("type", col.ColumnType), slog.String("error", err.Error()))
			} else {
				col.EnumValues = values
			}
		} else if strings.EqualFold(col.DataType, "set") {
			values, err := parseMembers("set", col.ColumnType)
			if err != nil {
				slog.Default().Warn("failed to parse set values", slog.String("column", col.Name), slog.String("type", col.ColumnType), slog.String("error", err.Error()))
			} else {
				col.EnumValues = values
			}
		}
		columns = append(columns, col)
	}

	if err := rows.Err(); err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	return columns, nil
}

func getForeignKeys(ctx context.Context, db Queryer, databaseName, tableName string) ([]foreignKey, error) {
	ctx, span := startSpan(ctx, "schema.get_foreign_keys",
		attribute.String("db.name", databaseName),
		attribute.String("db.table", tableName),
	)
	defer span.End()

	query := `
		SELECT
			COLUMN_NAME,
			REFERENCED_TABLE_NAME,
			REFERENCED_COLUMN_NAME,
			CONSTRAINT_NAME,
			ORDINAL_POSITION
		FROM INFORMATION_SCHEMA.KEY_COLUMN_USAGE
		WHERE TABLE_SCHEMA = ?
			AND TABLE_NAME = ?
			AND REFERENCED_TABLE_NAME IS NOT NULL
		ORDER BY CONSTRAINT_NAME, ORDINAL_POSITION
	`

	rows, err := db.QueryContext(ctx, query, databaseName, tableName)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var foreignKeys []foreignKey
	for rows.Next() {
		var fk foreignKey
		if err := rows.Scan(&fk.ColumnName, &fk.ReferencedTable,
			&fk.ReferencedColumn, &fk.ConstraintName, &fk.OrdinalPosition); err != nil {
			recordSpanError(span, err)
			return nil, err
		}
		foreignKeys = append(foreignKeys, fk)
	}

	if err := rows.Err(); err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	return foreignKeys, nil
}

func getUniqueIndexes(ctx context.Context, db Queryer, databaseName, tableName string) ([][]string, error) {
	ctx, span := startSpan(ctx, "schema.get_unique_indexes",
		attribute.String("db.name", databaseName),
		attribute.String("db.table", tableName),
	)
	defer span.End()

	query := `
		SELECT
			INDEX_NAME,
			SEQ_IN_INDEX,
			COLUMN_NAME
		FROM INFORMATION_SCHEMA.STATISTICS
		WHERE TABLE_SCHEMA = ?
			AND TABLE_NAME = ?
			AND NON_UNIQUE = 0
		ORDER BY INDEX_NAME, SEQ_IN_INDEX
	`

	rows, err := db.QueryContext(ctx, query, databaseName, tableName)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var order []string
	byName := make(map[string][]string)
	for rows.Next() {
		var indexName string
		var seq int
		var columnName string
		if err := rows.Scan(&indexName, &seq, &columnName); err != nil {
			recordSpanError(span, err)
			return nil, err
		}
		if _, seen := byName[indexName]; !seen {
			order = append(order, indexName)
		}
		byName[indexName] = append(byName[indexName], columnName)
	}
	if err := rows.Err(); err != nil {
		recordSpanError(span, err)
		return nil, err
	}

	indexes := make([][]string, 0, len(order))
	for _, name := range order {
		indexes = append(indexes, byName[name])
	}
	return indexes, nil
}

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.Tracer("record-i18n/schema")
	ctx, span := tracer.Start(ctx, name)
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	return ctx, span
}

func recordSpanError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
