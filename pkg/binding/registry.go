package binding

import (
	"errors"
	"fmt"

	"github.com/gltn/stdm/pkg/control"
)

var (
	// ErrUnsupportedControl is returned when no adapter is registered for a control kind.
	ErrUnsupportedControl = errors.New("unsupported control kind")
	// ErrControlMismatch is returned when a factory receives a control of another type.
	ErrControlMismatch = errors.New("control does not match adapter kind")
)

// Factory builds the value adapter for a control.
type Factory func(control.Control) (ValueAdapter, error)

// Registry maps control kinds to adapter factories. A registry is built once
// per session and passed to the forms that need it.
type Registry struct {
	factories map[control.Kind]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[control.Kind]Factory)}
}

// DefaultRegistry returns a registry with adapters for every built-in control kind.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(control.KindLineEdit, factoryFor(NewLineEditAdapter))
	r.Register(control.KindTextEdit, factoryFor(NewTextEditAdapter))
	r.Register(control.KindSpinBox, factoryFor(NewSpinBoxAdapter))
	r.Register(control.KindDoubleSpinBox, factoryFor(NewDoubleSpinBoxAdapter))
	r.Register(control.KindCheckBox, factoryFor(NewCheckBoxAdapter))
	r.Register(control.KindDateEdit, factoryFor(NewDateEditAdapter))
	r.Register(control.KindDateTimeEdit, factoryFor(NewDateTimeEditAdapter))
	r.Register(control.KindComboBox, factoryFor(NewComboBoxAdapter))
	return r
}

// Register sets the factory for kind, replacing any previous one.
func (r *Registry) Register(kind control.Kind, f Factory) {
	r.factories[kind] = f
}

// Supports reports whether kind has a registered factory.
func (r *Registry) Supports(kind control.Kind) bool {
	_, ok := r.factories[kind]
	return ok
}

// Resolve builds the adapter for c.
func (r *Registry) Resolve(c control.Control) (ValueAdapter, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: nil control", ErrUnsupportedControl)
	}
	f, ok := r.factories[c.Kind()]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedControl, c.Kind())
	}
	return f(c)
}

func factoryFor[C control.Control](build func(C) ValueAdapter) Factory {
	return func(c control.Control) (ValueAdapter, error) {
		typed, ok := c.(C)
		if !ok {
			return nil, fmt.Errorf("%w: %s got %T", ErrControlMismatch, c.Kind(), c)
		}
		return build(typed), nil
	}
}
