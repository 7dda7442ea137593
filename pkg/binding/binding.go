// Package binding ties one record attribute to one input control through a
// value adapter, and moves values between the two.
package binding

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/gltn/stdm/pkg/control"
)

// Model is the record a binding reads from and writes to.
type Model interface {
	// Attribute returns the value of the named attribute and whether the
	// record has such an attribute.
	Attribute(name string) (any, bool)
	SetAttribute(name string, value any) error
}

// AttributeBinding maps one attribute of a model to one control. The control
// and adapter are fixed at construction.
type AttributeBinding struct {
	attribute       string
	displayName     string
	control         control.Control
	adapter         ValueAdapter
	mandatory       bool
	bindControlOnly bool
	model           Model
}

type options struct {
	displayName     string
	adapter         ValueAdapter
	registry        *Registry
	mandatory       bool
	bindControlOnly bool
}

// Option configures an AttributeBinding.
type Option func(*options)

// WithDisplayName sets the user-facing field name used in messages.
func WithDisplayName(name string) Option {
	return func(o *options) { o.displayName = name }
}

// WithAdapter supplies the value adapter instead of resolving one from the
// control's kind.
func WithAdapter(a ValueAdapter) Option {
	return func(o *options) { o.adapter = a }
}

// WithRegistry sets the registry used to resolve the adapter. DefaultRegistry
// is used otherwise.
func WithRegistry(r *Registry) Option {
	return func(o *options) { o.registry = r }
}

// Mandatory flags the binding as requiring a value.
func Mandatory(on bool) Option {
	return func(o *options) { o.mandatory = on }
}

// BindControlOnly makes the binding one-way: the control is populated from
// the model, but the model is never written from the control.
func BindControlOnly() Option {
	return func(o *options) { o.bindControlOnly = true }
}

// New creates the binding for attribute. It fails when no adapter was given
// and none is registered for the control's kind.
func New(attribute string, c control.Control, model Model, opts ...Option) (*AttributeBinding, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	adapter := o.adapter
	if adapter == nil {
		reg := o.registry
		if reg == nil {
			reg = DefaultRegistry()
		}
		var err error
		adapter, err = reg.Resolve(c)
		if err != nil {
			return nil, fmt.Errorf("bind attribute %q: %w", attribute, err)
		}
	}

	display := o.displayName
	if display == "" {
		display = Humanize(attribute)
	}

	return &AttributeBinding{
		attribute:       attribute,
		displayName:     display,
		control:         c,
		adapter:         adapter,
		mandatory:       o.mandatory,
		bindControlOnly: o.bindControlOnly,
		model:           model,
	}, nil
}

func (b *AttributeBinding) AttributeName() string    { return b.attribute }
func (b *AttributeBinding) DisplayName() string      { return b.displayName }
func (b *AttributeBinding) Control() control.Control { return b.control }
func (b *AttributeBinding) Adapter() ValueAdapter    { return b.adapter }
func (b *AttributeBinding) IsMandatory() bool        { return b.mandatory }
func (b *AttributeBinding) IsBindControlOnly() bool  { return b.bindControlOnly }
func (b *AttributeBinding) Model() Model             { return b.model }

func (b *AttributeBinding) SetMandatory(on bool) { b.mandatory = on }

// SetModel points the binding at another record.
func (b *AttributeBinding) SetModel(m Model) { b.model = m }

// ControlValue returns the adapter's reading of the control.
func (b *AttributeBinding) ControlValue() any { return b.adapter.Value() }

// IsDefault reports whether the control holds its adapter's empty value.
func (b *AttributeBinding) IsDefault() bool {
	return cmp.Equal(b.adapter.Value(), b.adapter.Default())
}

// BindControl writes the model's attribute value into the control. It does
// nothing when the model has no such attribute.
func (b *AttributeBinding) BindControl() error {
	if b.model == nil {
		return nil
	}
	v, ok := b.model.Attribute(b.attribute)
	if !ok {
		return nil
	}
	if err := b.adapter.SetValue(v); err != nil {
		return fmt.Errorf("bind control %q: %w", b.attribute, err)
	}
	return nil
}

// BindModel writes the control's value onto the model attribute. Native date
// values are converted to time.Time first. It does nothing when the model has
// no such attribute or the binding is control-only.
func (b *AttributeBinding) BindModel() error {
	if b.model == nil || b.bindControlOnly {
		return nil
	}
	if _, ok := b.model.Attribute(b.attribute); !ok {
		return nil
	}
	if err := b.model.SetAttribute(b.attribute, Normalize(b.adapter.Value())); err != nil {
		return fmt.Errorf("bind model %q: %w", b.attribute, err)
	}
	return nil
}

type nativeTime interface {
	ToTime() time.Time
	IsZero() bool
}

// Normalize converts control-native date and time values to time.Time. A zero
// native value becomes nil. Other values are returned unchanged.
func Normalize(v any) any {
	if nt, ok := v.(nativeTime); ok {
		if nt.IsZero() {
			return nil
		}
		return nt.ToTime()
	}
	return v
}

// Humanize turns an attribute name into a display name: "registration_date"
// becomes "Registration Date".
func Humanize(attribute string) string {
	s := strings.Join(strings.FieldsFunc(attribute, func(r rune) bool {
		return r == '_' || r == '-'
	}), " ")
	return norm.NFC.String(cases.Title(language.Und).String(s))
}
