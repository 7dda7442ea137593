package formdef

import (
	"fmt"

	"github.com/gltn/stdm/pkg/binding"
	"github.com/gltn/stdm/pkg/control"
	"github.com/gltn/stdm/pkg/form"
	"github.com/gltn/stdm/pkg/schema"
)

// Controls maps attribute names to the controls built for them.
type Controls map[string]control.Control

// Build creates the controls of form name and binds them on m, in
// definition order.
func (s *Set) Build(name string, m *form.Mapper) (Controls, error) {
	d, err := s.Lookup(name)
	if err != nil {
		return nil, err
	}
	if d.Entity != m.Entity().Name() {
		return nil, fmt.Errorf("build form %q: edits %s, mapper edits %s", name, d.Entity, m.Entity().Name())
	}
	if err := checkFields(d, m.Entity()); err != nil {
		return nil, err
	}

	out := make(Controls, len(d.Fields))
	for _, fd := range d.Fields {
		c, err := newControl(fd)
		if err != nil {
			return nil, fmt.Errorf("build form %q: %w", name, err)
		}
		var opts []binding.Option
		if fd.Label != "" {
			opts = append(opts, binding.WithDisplayName(fd.Label))
		}
		if fd.Mandatory {
			opts = append(opts, binding.Mandatory(true))
		}
		if fd.BindControlOnly {
			opts = append(opts, binding.BindControlOnly())
		}
		if _, err := m.AddMapping(fd.Attribute, c, s.preloads[name][fd.Attribute], opts...); err != nil {
			return nil, fmt.Errorf("build form %q: %w", name, err)
		}
		out[fd.Attribute] = c
	}
	return out, nil
}

// NewForm looks up the entity of form name, creates a mapper over model (nil
// for a new record) and builds the form's controls on it.
func (s *Set) NewForm(name string, reg *schema.Registry, model any, store form.Store, opts ...form.Option) (*form.Mapper, Controls, error) {
	d, err := s.Lookup(name)
	if err != nil {
		return nil, nil, err
	}
	entity, err := reg.Lookup(d.Entity)
	if err != nil {
		return nil, nil, fmt.Errorf("new form %q: %w", name, err)
	}
	m, err := form.New(entity, model, store, opts...)
	if err != nil {
		return nil, nil, err
	}
	controls, err := s.Build(name, m)
	if err != nil {
		return nil, nil, err
	}
	return m, controls, nil
}

func newControl(fd Field) (control.Control, error) {
	c, err := control.New(fd.Control, fd.Attribute)
	if err != nil {
		return nil, err
	}
	switch c := c.(type) {
	case *control.SpinBox:
		lo, hi := c.Minimum(), c.Maximum()
		if fd.Minimum != nil {
			lo = int64(*fd.Minimum)
		}
		if fd.Maximum != nil {
			hi = int64(*fd.Maximum)
		}
		c.SetRange(lo, hi)
	case *control.DoubleSpinBox:
		lo, hi := c.Minimum(), c.Maximum()
		if fd.Minimum != nil {
			lo = *fd.Minimum
		}
		if fd.Maximum != nil {
			hi = *fd.Maximum
		}
		c.SetRange(lo, hi)
	case *control.ComboBox:
		for _, o := range fd.Options {
			c.AddItem(o.Text, o.Value)
		}
	}
	return c, nil
}
