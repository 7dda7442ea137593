// Package control provides headless input controls that stand in for the
// widgets of a host toolkit. A form binds each control to one record
// attribute; hosts (HTTP, CLI, tests) drive the controls directly.
package control

import (
	"errors"
	"fmt"
)

// Kind tags the concrete type of a control. Value adapters are resolved by kind.
type Kind string

const (
	KindLineEdit      Kind = "line_edit"
	KindTextEdit      Kind = "text_edit"
	KindSpinBox       Kind = "spin_box"
	KindDoubleSpinBox Kind = "double_spin_box"
	KindCheckBox      Kind = "check_box"
	KindDateEdit      Kind = "date_edit"
	KindDateTimeEdit  Kind = "datetime_edit"
	KindComboBox      Kind = "combo_box"
)

// ErrUnknownKind is returned by New for a kind with no control implementation.
var ErrUnknownKind = errors.New("unknown control kind")

// Control is an input control. Implementations are pointer types so that a
// control can be used as a map or set key.
type Control interface {
	Kind() Kind
	Name() string
}

// Kinds returns every kind New can construct.
func Kinds() []Kind {
	return []Kind{
		KindLineEdit, KindTextEdit, KindSpinBox, KindDoubleSpinBox,
		KindCheckBox, KindDateEdit, KindDateTimeEdit, KindComboBox,
	}
}

// New creates an empty control of the given kind.
func New(kind Kind, name string) (Control, error) {
	switch kind {
	case KindLineEdit:
		return NewLineEdit(name), nil
	case KindTextEdit:
		return NewTextEdit(name), nil
	case KindSpinBox:
		return NewSpinBox(name, 0, 99), nil
	case KindDoubleSpinBox:
		return NewDoubleSpinBox(name, 0, 99.99), nil
	case KindCheckBox:
		return NewCheckBox(name), nil
	case KindDateEdit:
		return NewDateEdit(name), nil
	case KindDateTimeEdit:
		return NewDateTimeEdit(name), nil
	case KindComboBox:
		return NewComboBox(name), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// LineEdit is a single-line text input.
type LineEdit struct {
	name string
	text string
}

func NewLineEdit(name string) *LineEdit { return &LineEdit{name: name} }

func (c *LineEdit) Kind() Kind          { return KindLineEdit }
func (c *LineEdit) Name() string        { return c.name }
func (c *LineEdit) Text() string        { return c.text }
func (c *LineEdit) SetText(text string) { c.text = text }

// TextEdit is a multi-line text input.
type TextEdit struct {
	name string
	text string
}

func NewTextEdit(name string) *TextEdit { return &TextEdit{name: name} }

func (c *TextEdit) Kind() Kind               { return KindTextEdit }
func (c *TextEdit) Name() string             { return c.name }
func (c *TextEdit) PlainText() string        { return c.text }
func (c *TextEdit) SetPlainText(text string) { c.text = text }

// SpinBox is an integer input clamped to [minimum, maximum]. Its value starts
// at the minimum.
type SpinBox struct {
	name     string
	value    int64
	min, max int64
}

func NewSpinBox(name string, minimum, maximum int64) *SpinBox {
	if maximum < minimum {
		maximum = minimum
	}
	return &SpinBox{name: name, value: minimum, min: minimum, max: maximum}
}

func (c *SpinBox) Kind() Kind     { return KindSpinBox }
func (c *SpinBox) Name() string   { return c.name }
func (c *SpinBox) Value() int64   { return c.value }
func (c *SpinBox) Minimum() int64 { return c.min }
func (c *SpinBox) Maximum() int64 { return c.max }

// SetRange changes the bounds and re-clamps the current value.
func (c *SpinBox) SetRange(minimum, maximum int64) {
	if maximum < minimum {
		maximum = minimum
	}
	c.min, c.max = minimum, maximum
	c.SetValue(c.value)
}

func (c *SpinBox) SetValue(v int64) {
	c.value = min(max(v, c.min), c.max)
}

// DoubleSpinBox is a floating point input clamped to [minimum, maximum].
type DoubleSpinBox struct {
	name     string
	value    float64
	min, max float64
}

func NewDoubleSpinBox(name string, minimum, maximum float64) *DoubleSpinBox {
	if maximum < minimum {
		maximum = minimum
	}
	return &DoubleSpinBox{name: name, value: minimum, min: minimum, max: maximum}
}

func (c *DoubleSpinBox) Kind() Kind       { return KindDoubleSpinBox }
func (c *DoubleSpinBox) Name() string     { return c.name }
func (c *DoubleSpinBox) Value() float64   { return c.value }
func (c *DoubleSpinBox) Minimum() float64 { return c.min }
func (c *DoubleSpinBox) Maximum() float64 { return c.max }

func (c *DoubleSpinBox) SetRange(minimum, maximum float64) {
	if maximum < minimum {
		maximum = minimum
	}
	c.min, c.max = minimum, maximum
	c.SetValue(c.value)
}

func (c *DoubleSpinBox) SetValue(v float64) {
	c.value = min(max(v, c.min), c.max)
}

// CheckBox is a two-state toggle.
type CheckBox struct {
	name    string
	checked bool
}

func NewCheckBox(name string) *CheckBox { return &CheckBox{name: name} }

func (c *CheckBox) Kind() Kind         { return KindCheckBox }
func (c *CheckBox) Name() string       { return c.name }
func (c *CheckBox) IsChecked() bool    { return c.checked }
func (c *CheckBox) SetChecked(on bool) { c.checked = on }
