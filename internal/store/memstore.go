package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"record-i18n/internal/record"
	"record-i18n/internal/schema"
)

// MemStore is an in-memory Store for tests and dry runs. Rows are kept per
// record type and cloned on the way in and out so callers never alias stored
// state. Call counts are tracked so tests can assert which paths hit the
// store.
type MemStore struct {
	mu       sync.RWMutex
	registry *schema.Registry
	rows     map[string]map[int64]*record.Record
	nextID   map[string]int64
	stats    MemStats
}

// MemStats counts store operations.
type MemStats struct {
	FindByID    int
	Update      int
	ListRelated int
	Save        int
}

var _ Store = (*MemStore)(nil)

// NewMemStore creates an empty in-memory store over the registry.
func NewMemStore(registry *schema.Registry) *MemStore {
	return &MemStore{
		registry: registry,
		rows:     make(map[string]map[int64]*record.Record),
		nextID:   make(map[string]int64),
	}
}

// Stats returns a snapshot of operation counts.
func (m *MemStore) Stats() MemStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats
}

// Seed stores records as persisted rows, allocating primary keys when
// missing. The passed records are marked persisted so callers keep usable
// handles.
func (m *MemStore) Seed(recs ...*record.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, rec := range recs {
		if _, ok := m.registry.Type(rec.TypeName()); !ok {
			return fmt.Errorf("unknown record type %q", rec.TypeName())
		}
		id := rec.ID()
		if id == 0 {
			id = m.allocateID(rec.TypeName())
		} else if id > m.nextID[rec.TypeName()] {
			m.nextID[rec.TypeName()] = id
		}
		rec.MarkPersisted(id)
		m.put(rec)
	}
	return nil
}

// FindByID loads one record by primary key.
func (m *MemStore) FindByID(ctx context.Context, typeName string, id int64) (*record.Record, error) {
	m.mu.Lock()
	m.stats.FindByID++
	m.mu.Unlock()

	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.rows[typeName][id]
	if !ok {
		return nil, fmt.Errorf("%s id %d: %w", typeName, id, ErrNotFound)
	}
	return rec.Clone(), nil
}

// Update persists explicit field values for a persisted record and mirrors
// them onto the record, clearing their change tracking.
func (m *MemStore) Update(ctx context.Context, rec *record.Record, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Update++

	if rec.IsNewRecord() || rec.ID() == 0 {
		return fmt.Errorf("cannot update an unsaved %s record", rec.TypeName())
	}
	if len(fields) == 0 {
		return nil
	}

	t, ok := m.registry.Type(rec.TypeName())
	if !ok {
		return fmt.Errorf("unknown record type %q", rec.TypeName())
	}
	if err := validateColumns(t, fields); err != nil {
		return err
	}

	stored, ok := m.rows[rec.TypeName()][rec.ID()]
	if !ok {
		return fmt.Errorf("%s id %d: %w", rec.TypeName(), rec.ID(), ErrNotFound)
	}

	names := make([]string, 0, len(fields))
	for name, value := range fields {
		stored.Set(name, value)
		rec.Set(name, value)
		names = append(names, name)
	}
	stored.ClearChanged(names...)
	rec.ClearChanged(names...)
	return nil
}

// ListRelated loads the current rows of a collection association in primary
// key order.
func (m *MemStore) ListRelated(ctx context.Context, owner *record.Record, assoc *schema.Association) ([]*record.Record, error) {
	m.mu.Lock()
	m.stats.ListRelated++
	m.mu.Unlock()

	if !assoc.IsCollection() {
		return nil, fmt.Errorf("association %s.%s is not a collection", assoc.Owner, assoc.Name)
	}
	if owner.IsNewRecord() || owner.ID() == 0 {
		return nil, fmt.Errorf("cannot list %s of an unsaved %s record", assoc.Name, owner.TypeName())
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*record.Record
	for _, rec := range m.rows[assoc.Target] {
		fk, _ := rec.Get(assoc.ForeignKey)
		if fkID, ok := record.CoerceID(fk); ok && fkID == owner.ID() {
			out = append(out, rec.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out, nil
}

// Save persists a record and every child staged on its collection
// associations, mirroring the SQL store's graph walk.
func (m *MemStore) Save(ctx context.Context, rec *record.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Save++

	return m.save(rec)
}

func (m *MemStore) save(rec *record.Record) error {
	t, ok := m.registry.Type(rec.TypeName())
	if !ok {
		return fmt.Errorf("unknown record type %q", rec.TypeName())
	}

	if rec.IsNewRecord() {
		for _, name := range rec.FieldNames() {
			if !t.HasColumn(name) {
				return fmt.Errorf("unknown column %q for record type %q", name, t.Name)
			}
		}
		id := rec.ID()
		if id == 0 {
			id = m.allocateID(rec.TypeName())
		} else if id > m.nextID[rec.TypeName()] {
			m.nextID[rec.TypeName()] = id
		}
		rec.MarkPersisted(id)
		m.put(rec)
	} else if changed := rec.ChangedFields(); len(changed) > 0 {
		for name := range changed {
			if !t.HasColumn(name) {
				return fmt.Errorf("unknown column %q for record type %q", name, t.Name)
			}
		}
		stored, ok := m.rows[rec.TypeName()][rec.ID()]
		if !ok {
			return fmt.Errorf("%s id %d: %w", rec.TypeName(), rec.ID(), ErrNotFound)
		}
		names := make([]string, 0, len(changed))
		for name, value := range changed {
			stored.Set(name, value)
			names = append(names, name)
		}
		stored.ClearChanged(names...)
		rec.ClearChanged(names...)
	}

	for _, name := range rec.AssociationNames() {
		assoc, ok := m.registry.Association(rec.TypeName(), name)
		if !ok {
			return fmt.Errorf("unknown association %s.%s", rec.TypeName(), name)
		}
		if !assoc.IsCollection() {
			continue
		}

		children, _ := rec.Associated(name)
		for _, child := range children {
			if child.MarkedForDestroy() {
				if !child.IsNewRecord() {
					delete(m.rows[child.TypeName()], child.ID())
				}
				continue
			}
			if fk, _ := child.Get(assoc.ForeignKey); fk == nil || child.IsNewRecord() {
				if current, _ := record.CoerceID(fk); current != rec.ID() {
					child.Set(assoc.ForeignKey, rec.ID())
				}
			}
			if err := m.save(child); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *MemStore) allocateID(typeName string) int64 {
	m.nextID[typeName]++
	return m.nextID[typeName]
}

func (m *MemStore) put(rec *record.Record) {
	byID := m.rows[rec.TypeName()]
	if byID == nil {
		byID = make(map[int64]*record.Record)
		m.rows[rec.TypeName()] = byID
	}
	byID[rec.ID()] = rec.Clone()
}
