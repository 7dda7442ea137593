package schema

import (
	"fmt"
	"sync"

	gschema "gorm.io/gorm/schema"
)

// Registry holds the entities known to one session. Construct it at session
// start, register the static entity types, and discard it at session end.
type Registry struct {
	mu       sync.RWMutex
	cache    *sync.Map
	namer    gschema.Namer
	entities map[string]*Entity
	order    []string
}

// NewRegistry creates an empty registry. A nil namer uses gorm's default
// naming strategy, which must match the strategy of the database handle.
func NewRegistry(namer gschema.Namer) *Registry {
	if namer == nil {
		namer = gschema.NamingStrategy{}
	}
	return &Registry{
		cache:    &sync.Map{},
		namer:    namer,
		entities: make(map[string]*Entity),
	}
}

// Register parses the struct type newFn returns and records it under name.
// newFn must return a non-nil pointer to a struct.
func (r *Registry) Register(name string, newFn func() any) (*Entity, error) {
	if name == "" {
		return nil, fmt.Errorf("register entity: empty name")
	}
	sample := newFn()
	parsed, err := gschema.Parse(sample, r.cache, r.namer)
	if err != nil {
		return nil, fmt.Errorf("register entity %q: %w", name, err)
	}
	e := newEntity(name, newFn, parsed)
	if _, err := e.Record(sample); err != nil {
		return nil, fmt.Errorf("register entity %q: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entities[name]; !exists {
		r.order = append(r.order, name)
	}
	r.entities[name] = e
	return e, nil
}

// Lookup returns the entity registered under name.
func (r *Registry) Lookup(name string) (*Entity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entities[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEntity, name)
	}
	return e, nil
}

// Names returns the registered entity names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// ApplyOverrides adjusts column metadata of registered entities. Entities
// are replaced, not mutated, so forms already holding an entity keep the
// metadata they started with.
func (r *Registry) ApplyOverrides(o *Overrides) error {
	if o == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	updated := make(map[string]*Entity, len(o.Entities))
	for name, eo := range o.Entities {
		current, ok := r.entities[name]
		if !ok {
			return fmt.Errorf("apply overrides: %w: %q", ErrUnknownEntity, name)
		}
		next := current.clone()
		for colName, co := range eo.Columns {
			i, ok := next.index[colName]
			if !ok {
				return fmt.Errorf("apply overrides: %w: %s.%s", ErrUnknownAttribute, name, colName)
			}
			col := &next.columns[i]
			if co.Unique != nil {
				col.Unique = *co.Unique
			}
			if co.Mandatory != nil {
				col.Mandatory = *co.Mandatory
			}
			if co.Label != "" {
				col.Label = co.Label
			}
		}
		updated[name] = next
	}
	for name, e := range updated {
		r.entities[name] = e
	}
	return nil
}
