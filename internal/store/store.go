// Package store persists and loads records. It defines the narrow Store
// contract nested attribute assignment depends on, a SQL implementation
// building queries with squirrel, and an in-memory implementation for tests
// and tooling.
package store

import (
	"context"
	"errors"

	"record-i18n/internal/record"
	"record-i18n/internal/schema"
)

// ErrNotFound reports a lookup that matched no row.
var ErrNotFound = errors.New("record not found")

// Store is the persistence contract assignment works against. FindByID loads
// one record by primary key, Update persists explicit field values for an
// existing record, and ListRelated loads the current rows of a collection
// association.
type Store interface {
	FindByID(ctx context.Context, typeName string, id int64) (*record.Record, error)
	Update(ctx context.Context, rec *record.Record, fields map[string]any) error
	ListRelated(ctx context.Context, owner *record.Record, assoc *schema.Association) ([]*record.Record, error)
}
