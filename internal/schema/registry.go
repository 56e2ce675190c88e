package schema

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds the known record types and their associations. It is safe
// for concurrent readers once populated; registration may also happen later,
// e.g. after a schema rediscovery.
type Registry struct {
	mu     sync.RWMutex
	types  map[string]*RecordType
	assocs map[string]map[string]*Association
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		types:  make(map[string]*RecordType),
		assocs: make(map[string]map[string]*Association),
	}
}

// RegisterType adds a record type. The name, table and primary key are
// required and the name must be unused.
func (r *Registry) RegisterType(t *RecordType) error {
	if t == nil {
		return fmt.Errorf("record type is required")
	}
	if t.Name == "" || t.Table == "" {
		return fmt.Errorf("record type needs a name and a table, got name=%q table=%q", t.Name, t.Table)
	}
	if t.PrimaryKey == "" {
		return fmt.Errorf("record type %q needs a primary key column", t.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.types[t.Name]; exists {
		return fmt.Errorf("record type %q is already registered", t.Name)
	}
	r.types[t.Name] = t
	return nil
}

// RegisterAssociation adds an association. Owner and target types must be
// registered and the foreign key must exist on the joining side. Sharing
// flags are legal on any target: a non-translatable target routes shared
// assignment through direct updates instead of locale comparison.
func (r *Registry) RegisterAssociation(a *Association) error {
	if a == nil {
		return fmt.Errorf("association is required")
	}
	if a.Owner == "" || a.Name == "" || a.Target == "" || a.ForeignKey == "" {
		return fmt.Errorf("association needs owner, name, target and foreign key, got %+v", a)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	owner, ok := r.types[a.Owner]
	if !ok {
		return fmt.Errorf("association %s.%s: owner type %q is not registered", a.Owner, a.Name, a.Owner)
	}
	target, ok := r.types[a.Target]
	if !ok {
		return fmt.Errorf("association %s.%s: target type %q is not registered", a.Owner, a.Name, a.Target)
	}

	fkSide := owner
	if a.Collection {
		fkSide = target
	}
	if !fkSide.HasColumn(a.ForeignKey) {
		return fmt.Errorf("association %s.%s: foreign key column %q not found on table %q",
			a.Owner, a.Name, a.ForeignKey, fkSide.Table)
	}

	byName := r.assocs[a.Owner]
	if byName == nil {
		byName = make(map[string]*Association)
		r.assocs[a.Owner] = byName
	}
	if _, exists := byName[a.Name]; exists {
		return fmt.Errorf("association %s.%s is already registered", a.Owner, a.Name)
	}
	byName[a.Name] = a
	return nil
}

// ConfigureSharing overrides the sharing mode of a registered association.
// Discovery can infer always-shared translation tables from naming, but the
// on-initialize mode is a behavioral choice that has to be configured.
func (r *Registry) ConfigureSharing(owner, name string, shared, sharedOnInitialize bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.assocs[owner][name]
	if !ok {
		return fmt.Errorf("association %s.%s is not registered", owner, name)
	}
	a.TranslationShared = shared
	a.TranslationSharedOnInitialize = sharedOnInitialize
	return nil
}

// Type returns the named record type.
func (r *Registry) Type(name string) (*RecordType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[name]
	return t, ok
}

// Association returns the named association of an owner type.
func (r *Registry) Association(owner, name string) (*Association, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.assocs[owner][name]
	return a, ok
}

// Associations returns all associations of an owner type, sorted by name.
func (r *Registry) Associations(owner string) []*Association {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byName := r.assocs[owner]
	out := make([]*Association, 0, len(byName))
	for _, a := range byName {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// TypeNames returns all registered type names, sorted.
func (r *Registry) TypeNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
