// Package formdef loads form definitions and builds mappers from them.
//
// A definition names the entity a form edits and lists its fields: which
// attribute each field edits, with what kind of control, and how the control
// is configured. Definitions are written in YAML or HCL.
//
//	forms:
//	  - name: spatial_unit
//	    entity: spatial_unit
//	    title: Spatial Unit
//	    fields:
//	      - attribute: code
//	        control: line_edit
//	        preload: uuid()
//	      - attribute: land_use
//	        control: combo_box
//	        options:
//	          - {text: Residential, value: residential}
//	          - {text: Agricultural, value: agricultural}
package formdef

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gltn/stdm/pkg/control"
	"github.com/gltn/stdm/pkg/form"
	"github.com/gltn/stdm/pkg/schema"
)

var ErrUnknownForm = errors.New("unknown form")

// File is the top level of a definition file.
type File struct {
	Forms []Definition `json:"forms" yaml:"forms"`
}

// Definition describes one form.
type Definition struct {
	Name   string  `json:"name" yaml:"name"`
	Entity string  `json:"entity" yaml:"entity"`
	Title  string  `json:"title,omitempty" yaml:"title,omitempty"`
	Fields []Field `json:"fields" yaml:"fields"`
}

// Field describes one control of a form.
type Field struct {
	Attribute       string       `json:"attribute" yaml:"attribute"`
	Control         control.Kind `json:"control" yaml:"control"`
	Label           string       `json:"label,omitempty" yaml:"label,omitempty"`
	Mandatory       bool         `json:"mandatory,omitempty" yaml:"mandatory,omitempty"`
	BindControlOnly bool         `json:"bindControlOnly,omitempty" yaml:"bindControlOnly,omitempty"`
	Preload         string       `json:"preload,omitempty" yaml:"preload,omitempty"`
	Options         []Option     `json:"options,omitempty" yaml:"options,omitempty"`
	Minimum         *float64     `json:"minimum,omitempty" yaml:"minimum,omitempty"`
	Maximum         *float64     `json:"maximum,omitempty" yaml:"maximum,omitempty"`
}

// Option is one item of a combo box.
type Option struct {
	Text  string `json:"text" yaml:"text"`
	Value any    `json:"value" yaml:"value"`
}

// Set is a validated collection of form definitions.
type Set struct {
	forms    []Definition
	byName   map[string]int
	preloads map[string]map[string]form.Preload
	now      func() time.Time
}

// SetOption configures a Set.
type SetOption func(*Set)

// WithClock sets the clock used by the today() and now() preloads.
func WithClock(now func() time.Time) SetOption {
	return func(s *Set) { s.now = now }
}

// Load reads a definition file. Files ending in .hcl are read as HCL,
// anything else as YAML.
func Load(path string, opts ...SetOption) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read form definitions: %w", err)
	}
	var f *File
	if strings.EqualFold(filepath.Ext(path), ".hcl") {
		f, err = decodeHCL(path, data)
	} else {
		f, err = decodeYAML(data)
	}
	if err != nil {
		return nil, fmt.Errorf("load form definitions %s: %w", path, err)
	}
	return NewSet(f.Forms, opts...)
}

// Parse reads YAML definitions from data.
func Parse(data []byte, opts ...SetOption) (*Set, error) {
	f, err := decodeYAML(data)
	if err != nil {
		return nil, fmt.Errorf("parse form definitions: %w", err)
	}
	return NewSet(f.Forms, opts...)
}

func decodeYAML(data []byte) (*File, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var f File
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return &f, nil
}

// NewSet validates defs and compiles their preload expressions.
func NewSet(defs []Definition, opts ...SetOption) (*Set, error) {
	s := &Set{
		byName:   make(map[string]int, len(defs)),
		preloads: make(map[string]map[string]form.Preload, len(defs)),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	now := func() time.Time { return s.now() }

	for i, d := range defs {
		if d.Name == "" {
			return nil, fmt.Errorf("form %d: missing name", i)
		}
		if _, dup := s.byName[d.Name]; dup {
			return nil, fmt.Errorf("form %q: defined twice", d.Name)
		}
		if d.Entity == "" {
			return nil, fmt.Errorf("form %q: missing entity", d.Name)
		}
		preloads := make(map[string]form.Preload)
		for j, fd := range d.Fields {
			if fd.Attribute == "" {
				return nil, fmt.Errorf("form %q field %d: missing attribute", d.Name, j)
			}
			if !slices.Contains(control.Kinds(), fd.Control) {
				return nil, fmt.Errorf("form %q field %q: %w: %q", d.Name, fd.Attribute, control.ErrUnknownKind, fd.Control)
			}
			if len(fd.Options) > 0 && fd.Control != control.KindComboBox {
				return nil, fmt.Errorf("form %q field %q: options need a %s control", d.Name, fd.Attribute, control.KindComboBox)
			}
			if fd.Minimum != nil && fd.Maximum != nil && *fd.Minimum > *fd.Maximum {
				return nil, fmt.Errorf("form %q field %q: minimum above maximum", d.Name, fd.Attribute)
			}
			if fd.Preload == "" {
				continue
			}
			p, err := compilePreload(fd.Preload, now)
			if err != nil {
				return nil, fmt.Errorf("form %q field %q: %w", d.Name, fd.Attribute, err)
			}
			preloads[fd.Attribute] = p
		}
		s.byName[d.Name] = len(s.forms)
		s.forms = append(s.forms, d)
		s.preloads[d.Name] = preloads
	}
	return s, nil
}

// Names returns the form names in definition order.
func (s *Set) Names() []string {
	out := make([]string, len(s.forms))
	for i, d := range s.forms {
		out[i] = d.Name
	}
	return out
}

// Definitions returns every definition in order.
func (s *Set) Definitions() []Definition {
	return slices.Clone(s.forms)
}

// Lookup returns the definition called name.
func (s *Set) Lookup(name string) (Definition, error) {
	i, ok := s.byName[name]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %q", ErrUnknownForm, name)
	}
	return s.forms[i], nil
}

// Check verifies that every form edits a registered entity and that every
// field names one of its columns.
func (s *Set) Check(reg *schema.Registry) error {
	for _, d := range s.forms {
		e, err := reg.Lookup(d.Entity)
		if err != nil {
			return fmt.Errorf("form %q: %w", d.Name, err)
		}
		if err := checkFields(d, e); err != nil {
			return err
		}
	}
	return nil
}

func checkFields(d Definition, e *schema.Entity) error {
	for _, fd := range d.Fields {
		if _, ok := e.Column(fd.Attribute); !ok {
			return fmt.Errorf("form %q field %q: %w: %s has no such column", d.Name, fd.Attribute, schema.ErrUnknownAttribute, e.Name())
		}
	}
	return nil
}
