// Package schema describes the entities a form can edit: their columns, which
// columns are unique or mandatory, and name-based access to record attributes.
//
// Entities are statically declared Go types parsed with gorm's schema parser.
// A Registry holds the entities of one session and is passed explicitly to
// the components that need it.
package schema

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	gschema "gorm.io/gorm/schema"
)

var (
	ErrUnknownEntity    = errors.New("unknown entity")
	ErrUnknownAttribute = errors.New("unknown attribute")
	ErrTypeMismatch     = errors.New("record type does not match entity")
)

// Column is the metadata of one persisted attribute.
type Column struct {
	Name       string `json:"name" yaml:"name"`
	Field      string `json:"field" yaml:"field"`
	Label      string `json:"label,omitempty" yaml:"label,omitempty"`
	Unique     bool   `json:"unique" yaml:"unique"`
	Mandatory  bool   `json:"mandatory" yaml:"mandatory"`
	PrimaryKey bool   `json:"primaryKey,omitempty" yaml:"primaryKey,omitempty"`
}

// Entity is a registered record type.
type Entity struct {
	name       string
	newFn      func() any
	parsed     *gschema.Schema
	columns    []Column
	index      map[string]int
	primaryKey string
}

func newEntity(name string, newFn func() any, parsed *gschema.Schema) *Entity {
	e := &Entity{
		name:   name,
		newFn:  newFn,
		parsed: parsed,
		index:  make(map[string]int),
	}
	for _, f := range parsed.Fields {
		if f.DBName == "" || !f.Readable {
			continue
		}
		col := Column{
			Name:       f.DBName,
			Field:      f.Name,
			Label:      f.Tag.Get("label"),
			Unique:     f.Unique,
			Mandatory:  f.NotNull && !f.PrimaryKey,
			PrimaryKey: f.PrimaryKey,
		}
		e.addColumn(col)
	}
	if pk := parsed.PrioritizedPrimaryField; pk != nil {
		e.primaryKey = pk.DBName
	}
	return e
}

func (e *Entity) addColumn(col Column) {
	e.index[col.Name] = len(e.columns)
	e.index[col.Field] = len(e.columns)
	e.columns = append(e.columns, col)
}

// clone copies the column metadata so overrides never touch an entity that
// is already in use.
func (e *Entity) clone() *Entity {
	c := &Entity{
		name:       e.name,
		newFn:      e.newFn,
		parsed:     e.parsed,
		columns:    make([]Column, len(e.columns)),
		index:      make(map[string]int, len(e.index)),
		primaryKey: e.primaryKey,
	}
	copy(c.columns, e.columns)
	for k, v := range e.index {
		c.index[k] = v
	}
	return c
}

func (e *Entity) Name() string       { return e.name }
func (e *Entity) Table() string      { return e.parsed.Table }
func (e *Entity) PrimaryKey() string { return e.primaryKey }

// Columns returns the columns in declaration order.
func (e *Entity) Columns() []Column {
	out := make([]Column, len(e.columns))
	copy(out, e.columns)
	return out
}

// Column looks a column up by column name or Go field name.
func (e *Entity) Column(name string) (Column, bool) {
	i, ok := e.index[name]
	if !ok {
		return Column{}, false
	}
	return e.columns[i], true
}

// New returns a fresh, unsaved record of this entity.
func (e *Entity) New() any { return e.newFn() }

// NewRecord wraps a fresh record.
func (e *Entity) NewRecord() *Record {
	r, err := e.Record(e.newFn())
	if err != nil {
		// newFn was checked at registration.
		panic(err)
	}
	return r
}

// Record wraps ptr, a pointer to this entity's struct type, for name-based
// attribute access.
func (e *Entity) Record(ptr any) (*Record, error) {
	rv := reflect.ValueOf(ptr)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Type() != e.parsed.ModelType {
		return nil, fmt.Errorf("%w: %s wants *%s, got %T", ErrTypeMismatch, e.name, e.parsed.ModelType.Name(), ptr)
	}
	return &Record{entity: e, ptr: ptr, rv: rv.Elem()}, nil
}

// Record is a record of a registered entity.
type Record struct {
	entity *Entity
	ptr    any
	rv     reflect.Value
}

func (r *Record) Entity() *Entity { return r.entity }

// Value returns the wrapped pointer.
func (r *Record) Value() any { return r.ptr }

func (r *Record) field(name string) *gschema.Field {
	col, ok := r.entity.Column(name)
	if !ok {
		return nil
	}
	return r.entity.parsed.LookUpField(col.Name)
}

// Attribute returns the value of the named column and whether the entity has it.
func (r *Record) Attribute(name string) (any, bool) {
	f := r.field(name)
	if f == nil {
		return nil, false
	}
	v, _ := f.ValueOf(context.Background(), r.rv)
	return v, true
}

// SetAttribute assigns value to the named column. A nil value assigns the
// column type's zero value.
func (r *Record) SetAttribute(name string, value any) error {
	f := r.field(name)
	if f == nil {
		return fmt.Errorf("%w: %s.%s", ErrUnknownAttribute, r.entity.name, name)
	}
	ctx := context.Background()
	if value == nil {
		f.ReflectValueOf(ctx, r.rv).Set(reflect.Zero(f.FieldType))
		return nil
	}
	if err := f.Set(ctx, r.rv, value); err != nil {
		return fmt.Errorf("set %s.%s: %w", r.entity.name, name, err)
	}
	return nil
}

// ID returns the primary key value, or nil when the entity has no primary
// key or the record has not been assigned one.
func (r *Record) ID() any {
	pk := r.entity.parsed.PrioritizedPrimaryField
	if pk == nil {
		return nil
	}
	v, zero := pk.ValueOf(context.Background(), r.rv)
	if zero {
		return nil
	}
	return v
}
