package store

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"record-i18n/internal/dbexec"
	"record-i18n/internal/record"
	"record-i18n/internal/schema"
)

// SQLStore persists records through a query executor. It implements Store
// and additionally saves whole record graphs staged by nested assignment.
type SQLStore struct {
	exec     dbexec.QueryExecutor
	registry *schema.Registry
	logger   *slog.Logger
}

var _ Store = (*SQLStore)(nil)

// NewSQLStore creates a store over the given executor and registry.
func NewSQLStore(exec dbexec.QueryExecutor, registry *schema.Registry, logger *slog.Logger) *SQLStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLStore{
		exec:     exec,
		registry: registry,
		logger:   logger,
	}
}

// WithExecutor returns a copy bound to a different executor, typically one
// scoped to a transaction.
func (s *SQLStore) WithExecutor(exec dbexec.QueryExecutor) *SQLStore {
	return &SQLStore{
		exec:     exec,
		registry: s.registry,
		logger:   s.logger,
	}
}

// FindByID loads one record by primary key.
func (s *SQLStore) FindByID(ctx context.Context, typeName string, id int64) (*record.Record, error) {
	ctx, span := startSpan(ctx, "store.find_by_id",
		attribute.String("record.type", typeName),
		attribute.Int64("record.id", id),
	)
	defer span.End()

	t, err := s.recordType(typeName)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}

	query, err := planSelectByID(t, id)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}

	recs, err := s.queryRecords(ctx, t, query)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	if len(recs) == 0 {
		err := fmt.Errorf("%s id %d: %w", typeName, id, ErrNotFound)
		recordSpanError(span, err)
		return nil, err
	}
	return recs[0], nil
}

// Update persists explicit field values for a persisted record and mirrors
// them onto the record, clearing their change tracking.
func (s *SQLStore) Update(ctx context.Context, rec *record.Record, fields map[string]any) error {
	ctx, span := startSpan(ctx, "store.update",
		attribute.String("record.type", rec.TypeName()),
		attribute.Int64("record.id", rec.ID()),
		attribute.Int("fields.count", len(fields)),
	)
	defer span.End()

	if rec.IsNewRecord() || rec.ID() == 0 {
		err := fmt.Errorf("cannot update an unsaved %s record", rec.TypeName())
		recordSpanError(span, err)
		return err
	}
	if len(fields) == 0 {
		return nil
	}

	t, err := s.recordType(rec.TypeName())
	if err != nil {
		recordSpanError(span, err)
		return err
	}
	if err := validateColumns(t, fields); err != nil {
		recordSpanError(span, err)
		return err
	}

	recValues, args, err := coerceWriteFields(t, fields)
	if err != nil {
		recordSpanError(span, err)
		return err
	}

	query, err := planUpdate(t, args, rec.ID())
	if err != nil {
		recordSpanError(span, err)
		return err
	}
	if _, err := s.exec.ExecContext(ctx, query.SQL, query.Args...); err != nil {
		recordSpanError(span, err)
		return fmt.Errorf("failed to update %s id %d: %w", rec.TypeName(), rec.ID(), err)
	}

	names := make([]string, 0, len(recValues))
	for name, value := range recValues {
		rec.Set(name, value)
		names = append(names, name)
	}
	rec.ClearChanged(names...)
	return nil
}

// ListRelated loads the current rows of a collection association in primary
// key order.
func (s *SQLStore) ListRelated(ctx context.Context, owner *record.Record, assoc *schema.Association) ([]*record.Record, error) {
	ctx, span := startSpan(ctx, "store.list_related",
		attribute.String("record.type", owner.TypeName()),
		attribute.Int64("record.id", owner.ID()),
		attribute.String("association", assoc.Name),
	)
	defer span.End()

	if !assoc.IsCollection() {
		err := fmt.Errorf("association %s.%s is not a collection", assoc.Owner, assoc.Name)
		recordSpanError(span, err)
		return nil, err
	}
	if owner.IsNewRecord() || owner.ID() == 0 {
		err := fmt.Errorf("cannot list %s of an unsaved %s record", assoc.Name, owner.TypeName())
		recordSpanError(span, err)
		return nil, err
	}

	target, err := s.recordType(assoc.Target)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}

	query, err := planSelectRelated(target, assoc.ForeignKey, owner.ID())
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}

	recs, err := s.queryRecords(ctx, target, query)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	return recs, nil
}

// Save persists a record and every child staged on its collection
// associations: new children are inserted with their foreign key set,
// changed children updated, and children marked for destroy deleted.
// Reference associations are left alone; saving upward would loop.
func (s *SQLStore) Save(ctx context.Context, rec *record.Record) error {
	ctx, span := startSpan(ctx, "store.save",
		attribute.String("record.type", rec.TypeName()),
	)
	defer span.End()

	if err := s.save(ctx, rec); err != nil {
		recordSpanError(span, err)
		return err
	}
	span.SetAttributes(attribute.Int64("record.id", rec.ID()))
	return nil
}

func (s *SQLStore) save(ctx context.Context, rec *record.Record) error {
	t, err := s.recordType(rec.TypeName())
	if err != nil {
		return err
	}

	if rec.IsNewRecord() {
		if err := s.insert(ctx, t, rec); err != nil {
			return err
		}
	} else if changed := rec.ChangedFields(); len(changed) > 0 {
		delete(changed, t.PrimaryKey)
		if len(changed) > 0 {
			recValues, args, err := coerceWriteFields(t, changed)
			if err != nil {
				return err
			}
			query, err := planUpdate(t, args, rec.ID())
			if err != nil {
				return err
			}
			if _, err := s.exec.ExecContext(ctx, query.SQL, query.Args...); err != nil {
				return fmt.Errorf("failed to update %s id %d: %w", rec.TypeName(), rec.ID(), err)
			}
			names := make([]string, 0, len(recValues))
			for name, value := range recValues {
				rec.Set(name, value)
				names = append(names, name)
			}
			rec.ClearChanged(names...)
		}
	}

	for _, name := range rec.AssociationNames() {
		assoc, ok := s.registry.Association(rec.TypeName(), name)
		if !ok {
			return fmt.Errorf("unknown association %s.%s", rec.TypeName(), name)
		}
		if !assoc.IsCollection() {
			s.logger.Debug("skipping reference association during save",
				slog.String("record_type", rec.TypeName()),
				slog.String("association", name),
			)
			continue
		}

		children, _ := rec.Associated(name)
		for _, child := range children {
			if child.MarkedForDestroy() {
				if err := s.deleteRecord(ctx, child); err != nil {
					return err
				}
				continue
			}
			if fk, _ := child.Get(assoc.ForeignKey); fk == nil || child.IsNewRecord() {
				current, _ := record.CoerceID(fk)
				if current != rec.ID() {
					child.Set(assoc.ForeignKey, rec.ID())
				}
			}
			if err := s.save(ctx, child); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *SQLStore) insert(ctx context.Context, t *schema.RecordType, rec *record.Record) error {
	fields := make(map[string]any)
	for _, name := range rec.FieldNames() {
		if name == t.PrimaryKey && rec.ID() == 0 {
			continue
		}
		if !t.HasColumn(name) {
			return fmt.Errorf("unknown column %q for record type %q", name, t.Name)
		}
		fields[name], _ = rec.Get(name)
	}
	recValues, args, err := coerceWriteFields(t, fields)
	if err != nil {
		return err
	}

	var columns []string
	var values []interface{}
	for _, name := range rec.FieldNames() {
		value, ok := args[name]
		if !ok {
			continue
		}
		columns = append(columns, name)
		values = append(values, value)
		rec.Set(name, recValues[name])
	}

	query, err := planInsert(t, columns, values)
	if err != nil {
		return err
	}
	result, err := s.exec.ExecContext(ctx, query.SQL, query.Args...)
	if err != nil {
		return fmt.Errorf("failed to insert %s: %w", t.Name, err)
	}

	id, err := result.LastInsertId()
	if err != nil || id == 0 {
		id = rec.ID()
	}
	rec.MarkPersisted(id)
	return nil
}

func (s *SQLStore) deleteRecord(ctx context.Context, rec *record.Record) error {
	if rec.IsNewRecord() {
		return nil
	}
	t, err := s.recordType(rec.TypeName())
	if err != nil {
		return err
	}
	query, err := planDelete(t, rec.ID())
	if err != nil {
		return err
	}
	if _, err := s.exec.ExecContext(ctx, query.SQL, query.Args...); err != nil {
		return fmt.Errorf("failed to delete %s id %d: %w", rec.TypeName(), rec.ID(), err)
	}
	return nil
}

func (s *SQLStore) queryRecords(ctx context.Context, t *schema.RecordType, query SQLQuery) ([]*record.Record, error) {
	rows, err := s.exec.QueryContext(ctx, query.SQL, query.Args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()
	return scanRecords(rows, t)
}

func (s *SQLStore) recordType(typeName string) (*schema.RecordType, error) {
	t, ok := s.registry.Type(typeName)
	if !ok {
		return nil, fmt.Errorf("unknown record type %q", typeName)
	}
	return t, nil
}

func validateColumns(t *schema.RecordType, fields map[string]any) error {
	for name := range fields {
		if name == t.PrimaryKey {
			return fmt.Errorf("refusing to update primary key column %q", name)
		}
		if !t.HasColumn(name) {
			return fmt.Errorf("unknown column %q for record type %q", name, t.Name)
		}
	}
	return nil
}

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.Tracer("record-i18n/store")
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
