package store

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"record-i18n/internal/schema"
	"record-i18n/internal/sqlutil"
)

// SQLQuery represents a planned SQL statement with bound args.
type SQLQuery struct {
	SQL  string
	Args []interface{}
}

// planSelectByID builds the SQL for a primary key lookup.
func planSelectByID(t *schema.RecordType, id int64) (SQLQuery, error) {
	query, args, err := sq.Select(columnNames(t)...).
		From(sqlutil.QuoteIdentifier(t.Table)).
		Where(sq.Eq{sqlutil.QuoteIdentifier(t.PrimaryKey): id}).
		PlaceholderFormat(sq.Question).
		ToSql()
	if err != nil {
		return SQLQuery{}, err
	}

	return SQLQuery{SQL: query, Args: args}, nil
}

// planSelectRelated builds the SQL loading a collection association: all
// rows of the child table joined to the owner by foreign key, in primary key
// order.
func planSelectRelated(child *schema.RecordType, foreignKey string, ownerID int64) (SQLQuery, error) {
	query, args, err := sq.Select(columnNames(child)...).
		From(sqlutil.QuoteIdentifier(child.Table)).
		Where(sq.Eq{sqlutil.QuoteIdentifier(foreignKey): ownerID}).
		OrderBy(sqlutil.QuoteIdentifier(child.PrimaryKey)).
		PlaceholderFormat(sq.Question).
		ToSql()
	if err != nil {
		return SQLQuery{}, err
	}

	return SQLQuery{SQL: query, Args: args}, nil
}

// planInsert builds SQL for inserting a single row with the provided columns.
func planInsert(t *schema.RecordType, columns []string, values []interface{}) (SQLQuery, error) {
	if len(columns) == 0 {
		query := fmt.Sprintf("INSERT INTO %s () VALUES ()", sqlutil.QuoteIdentifier(t.Table))
		return SQLQuery{SQL: query, Args: nil}, nil
	}

	builder := sq.Insert(sqlutil.QuoteIdentifier(t.Table)).
		Columns(sqlutil.QuoteIdentifiers(columns)...).
		Values(values...).
		PlaceholderFormat(sq.Question)

	query, args, err := builder.ToSql()
	if err != nil {
		return SQLQuery{}, err
	}

	return SQLQuery{SQL: query, Args: args}, nil
}

// planUpdate builds SQL for updating a single row by primary key.
func planUpdate(t *schema.RecordType, set map[string]interface{}, id int64) (SQLQuery, error) {
	if len(set) == 0 {
		return SQLQuery{}, fmt.Errorf("update set cannot be empty")
	}

	setMap := make(map[string]interface{}, len(set))
	for col, val := range set {
		setMap[sqlutil.QuoteIdentifier(col)] = val
	}

	query, args, err := sq.Update(sqlutil.QuoteIdentifier(t.Table)).
		SetMap(setMap).
		Where(sq.Eq{sqlutil.QuoteIdentifier(t.PrimaryKey): id}).
		PlaceholderFormat(sq.Question).
		ToSql()
	if err != nil {
		return SQLQuery{}, err
	}

	return SQLQuery{SQL: query, Args: args}, nil
}

// planDelete builds SQL for deleting a single row by primary key.
func planDelete(t *schema.RecordType, id int64) (SQLQuery, error) {
	query, args, err := sq.Delete(sqlutil.QuoteIdentifier(t.Table)).
		Where(sq.Eq{sqlutil.QuoteIdentifier(t.PrimaryKey): id}).
		PlaceholderFormat(sq.Question).
		ToSql()
	if err != nil {
		return SQLQuery{}, err
	}

	return SQLQuery{SQL: query, Args: args}, nil
}

func columnNames(t *schema.RecordType) []string {
	return sqlutil.QuoteIdentifiers(t.ColumnNames())
}
