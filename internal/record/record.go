// Package record provides the in-memory representation of database rows
// flowing through nested attribute assignment: the Record type with field
// and association tracking, the ordered Payload type for one nested
// attribute mapping, and normalization of raw payload input into Payloads.
package record

import (
	"sort"

	"github.com/google/uuid"
)

// Well-known field names shared by records and payloads.
const (
	FieldID        = "id"
	FieldDestroy   = "_destroy"
	FieldLocale    = "locale"
	FieldContentID = "content_id"
)

// Record is a mutable row image. Field writes are tracked so a store can
// persist only what changed, and associated child records are cached per
// association name so assignment and save see the same set.
type Record struct {
	typeName  string
	fields    map[string]any
	order     []string
	dirty     map[string]struct{}
	persisted bool
	destroy   bool

	assoc       map[string][]*Record
	assocLoaded map[string]bool
}

// New returns an unpersisted record of the given type. Fields are applied
// in sorted key order and all count as changed.
func New(typeName string, fields map[string]any) *Record {
	r := &Record{
		typeName:    typeName,
		fields:      make(map[string]any, len(fields)),
		dirty:       make(map[string]struct{}, len(fields)),
		assoc:       make(map[string][]*Record),
		assocLoaded: make(map[string]bool),
	}
	for _, name := range sortedKeys(fields) {
		r.Set(name, fields[name])
	}
	return r
}

// Hydrate returns a persisted record built from a loaded row. No field
// counts as changed.
func Hydrate(typeName string, fields map[string]any) *Record {
	r := New(typeName, fields)
	r.persisted = true
	r.dirty = make(map[string]struct{})
	return r
}

// TypeName reports the record type this row belongs to.
func (r *Record) TypeName() string { return r.typeName }

// Get returns the value of a field and whether the field is set.
func (r *Record) Get(name string) (any, bool) {
	v, ok := r.fields[name]
	return v, ok
}

// Set writes a field value and marks it changed. First writes append to the
// field order; later writes keep the original position.
func (r *Record) Set(name string, value any) {
	if _, ok := r.fields[name]; !ok {
		r.order = append(r.order, name)
	}
	r.fields[name] = value
	r.dirty[name] = struct{}{}
}

// FieldNames returns the field names in first-write order.
func (r *Record) FieldNames() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Fields returns a copy of all fields.
func (r *Record) Fields() map[string]any {
	out := make(map[string]any, len(r.fields))
	for k, v := range r.fields {
		out[k] = v
	}
	return out
}

// ChangedFields returns the fields written since the record was loaded or
// last marked persisted.
func (r *Record) ChangedFields() map[string]any {
	out := make(map[string]any, len(r.dirty))
	for name := range r.dirty {
		out[name] = r.fields[name]
	}
	return out
}

// ClearChanged drops change tracking for the named fields, typically after
// they were persisted.
func (r *Record) ClearChanged(names ...string) {
	for _, name := range names {
		delete(r.dirty, name)
	}
}

// ID returns the coerced primary key value, or 0 when unset.
func (r *Record) ID() int64 {
	v, ok := r.fields[FieldID]
	if !ok {
		return 0
	}
	id, ok := CoerceID(v)
	if !ok {
		return 0
	}
	return id
}

// Locale returns the locale field as a string, or "" when unset.
func (r *Record) Locale() string {
	return r.stringField(FieldLocale)
}

// ContentID returns the content identity shared across translations of the
// same logical entity, or "" when unset.
func (r *Record) ContentID() string {
	return r.stringField(FieldContentID)
}

func (r *Record) stringField(name string) string {
	v, ok := r.fields[name]
	if !ok || v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return ""
	}
}

// IsNewRecord reports whether the record has not been saved yet.
func (r *Record) IsNewRecord() bool { return !r.persisted }

// MarkPersisted records a successful save: the primary key is set when
// positive and change tracking resets.
func (r *Record) MarkPersisted(id int64) {
	if id > 0 {
		if _, ok := r.fields[FieldID]; !ok {
			r.order = append(r.order, FieldID)
		}
		r.fields[FieldID] = id
	}
	r.persisted = true
	r.dirty = make(map[string]struct{})
}

// MarkForDestroy flags the record for deletion on the next save.
func (r *Record) MarkForDestroy() { r.destroy = true }

// MarkedForDestroy reports whether the record is flagged for deletion.
func (r *Record) MarkedForDestroy() bool { return r.destroy }

// Associated returns the cached child set for an association and whether a
// set was cached at all. A cached empty set is distinct from no cache.
func (r *Record) Associated(name string) ([]*Record, bool) {
	if !r.assocLoaded[name] {
		return nil, false
	}
	return r.assoc[name], true
}

// SetAssociated caches the child set for an association, replacing any
// previous cache. Caching nil records an empty loaded set.
func (r *Record) SetAssociated(name string, children []*Record) {
	r.assoc[name] = children
	r.assocLoaded[name] = true
}

// AppendAssociated adds a child to the cached set, creating the cache when
// absent.
func (r *Record) AppendAssociated(name string, child *Record) {
	r.assoc[name] = append(r.assoc[name], child)
	r.assocLoaded[name] = true
}

// AssociationNames returns the names of all cached associations, sorted.
func (r *Record) AssociationNames() []string {
	names := make([]string, 0, len(r.assocLoaded))
	for name, loaded := range r.assocLoaded {
		if loaded {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Clone returns a copy with independent field and change tracking. Cached
// associations are not copied.
func (r *Record) Clone() *Record {
	out := &Record{
		typeName:    r.typeName,
		fields:      make(map[string]any, len(r.fields)),
		order:       make([]string, len(r.order)),
		dirty:       make(map[string]struct{}, len(r.dirty)),
		persisted:   r.persisted,
		destroy:     r.destroy,
		assoc:       make(map[string][]*Record),
		assocLoaded: make(map[string]bool),
	}
	for k, v := range r.fields {
		out.fields[k] = v
	}
	copy(out.order, r.order)
	for k := range r.dirty {
		out.dirty[k] = struct{}{}
	}
	return out
}

// NewContentID generates a fresh content identity for the first translation
// of a logical entity.
func NewContentID() string {
	return uuid.NewString()
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
