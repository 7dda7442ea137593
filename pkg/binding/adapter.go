package binding

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cast"

	"github.com/gltn/stdm/pkg/control"
)

var (
	// ErrNoSuchItem is returned when a combo box has no item carrying the value.
	ErrNoSuchItem = errors.New("no combo item with value")
	// ErrOutOfRange is returned when a number lies outside a spin box's range.
	ErrOutOfRange = errors.New("value out of range")
)

// ValueAdapter reads and writes the typed value of one control.
type ValueAdapter interface {
	// Value returns the control's current value.
	Value() any
	// SetValue writes v into the control. A nil v clears the control.
	SetValue(v any) error
	// Default returns the value the control holds when nothing has been entered.
	Default() any
	// Clear resets the control to Default.
	Clear()
}

type textAdapter struct {
	get func() string
	set func(string)
}

func (a *textAdapter) Value() any   { return a.get() }
func (a *textAdapter) Default() any { return "" }
func (a *textAdapter) Clear()       { a.set("") }

func (a *textAdapter) SetValue(v any) error {
	s, err := cast.ToStringE(v)
	if err != nil {
		return fmt.Errorf("set text: %w", err)
	}
	a.set(s)
	return nil
}

// NewLineEditAdapter returns the adapter for a single-line text input.
func NewLineEditAdapter(c *control.LineEdit) ValueAdapter {
	return &textAdapter{get: c.Text, set: c.SetText}
}

// NewTextEditAdapter returns the adapter for a multi-line text input.
func NewTextEditAdapter(c *control.TextEdit) ValueAdapter {
	return &textAdapter{get: c.PlainText, set: c.SetPlainText}
}

type spinBoxAdapter struct{ c *control.SpinBox }

// NewSpinBoxAdapter returns the adapter for an integer input. Its default is
// the control's minimum.
func NewSpinBoxAdapter(c *control.SpinBox) ValueAdapter { return &spinBoxAdapter{c: c} }

func (a *spinBoxAdapter) Value() any   { return a.c.Value() }
func (a *spinBoxAdapter) Default() any { return a.c.Minimum() }
func (a *spinBoxAdapter) Clear()       { a.c.SetValue(a.c.Minimum()) }

func (a *spinBoxAdapter) SetValue(v any) error {
	if v == nil {
		a.Clear()
		return nil
	}
	n, err := cast.ToInt64E(v)
	if err != nil {
		return fmt.Errorf("set integer: %w", err)
	}
	if n < a.c.Minimum() || n > a.c.Maximum() {
		return fmt.Errorf("set integer %d: %w [%d, %d]", n, ErrOutOfRange, a.c.Minimum(), a.c.Maximum())
	}
	a.c.SetValue(n)
	return nil
}

type doubleSpinBoxAdapter struct{ c *control.DoubleSpinBox }

func NewDoubleSpinBoxAdapter(c *control.DoubleSpinBox) ValueAdapter {
	return &doubleSpinBoxAdapter{c: c}
}

func (a *doubleSpinBoxAdapter) Value() any   { return a.c.Value() }
func (a *doubleSpinBoxAdapter) Default() any { return a.c.Minimum() }
func (a *doubleSpinBoxAdapter) Clear()       { a.c.SetValue(a.c.Minimum()) }

func (a *doubleSpinBoxAdapter) SetValue(v any) error {
	if v == nil {
		a.Clear()
		return nil
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return fmt.Errorf("set decimal: %w", err)
	}
	if f < a.c.Minimum() || f > a.c.Maximum() {
		return fmt.Errorf("set decimal %g: %w [%g, %g]", f, ErrOutOfRange, a.c.Minimum(), a.c.Maximum())
	}
	a.c.SetValue(f)
	return nil
}

type checkBoxAdapter struct{ c *control.CheckBox }

func NewCheckBoxAdapter(c *control.CheckBox) ValueAdapter { return &checkBoxAdapter{c: c} }

func (a *checkBoxAdapter) Value() any   { return a.c.IsChecked() }
func (a *checkBoxAdapter) Default() any { return false }
func (a *checkBoxAdapter) Clear()       { a.c.SetChecked(false) }

func (a *checkBoxAdapter) SetValue(v any) error {
	if v == nil {
		a.Clear()
		return nil
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return fmt.Errorf("set boolean: %w", err)
	}
	a.c.SetChecked(b)
	return nil
}

// toTime converts the values a date control accepts. ok is false for a value
// that means "no date".
func toTime(v any) (t time.Time, ok bool, err error) {
	switch x := v.(type) {
	case nil:
		return time.Time{}, false, nil
	case control.Date:
		return x.ToTime(), !x.IsZero(), nil
	case control.DateTime:
		return x.ToTime(), !x.IsZero(), nil
	case time.Time:
		return x, !x.IsZero(), nil
	case *time.Time:
		if x == nil {
			return time.Time{}, false, nil
		}
		return *x, !x.IsZero(), nil
	case string:
		if x == "" {
			return time.Time{}, false, nil
		}
	}
	t, err = cast.ToTimeE(v)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, !t.IsZero(), nil
}

// dateAdapter returns control.Date values, the native type of a DateEdit.
// AttributeBinding converts them to time.Time before they reach the model.
type dateAdapter struct{ c *control.DateEdit }

func NewDateEditAdapter(c *control.DateEdit) ValueAdapter { return &dateAdapter{c: c} }

func (a *dateAdapter) Value() any   { return a.c.Date() }
func (a *dateAdapter) Default() any { return control.Date{} }
func (a *dateAdapter) Clear()       { a.c.SetDate(control.Date{}) }

func (a *dateAdapter) SetValue(v any) error {
	t, ok, err := toTime(v)
	if err != nil {
		return fmt.Errorf("set date: %w", err)
	}
	if !ok {
		a.Clear()
		return nil
	}
	a.c.SetDate(control.DateOf(t))
	return nil
}

type dateTimeAdapter struct{ c *control.DateTimeEdit }

func NewDateTimeEditAdapter(c *control.DateTimeEdit) ValueAdapter {
	return &dateTimeAdapter{c: c}
}

func (a *dateTimeAdapter) Value() any   { return a.c.DateTime() }
func (a *dateTimeAdapter) Default() any { return control.DateTime{} }
func (a *dateTimeAdapter) Clear()       { a.c.SetDateTime(control.DateTime{}) }

func (a *dateTimeAdapter) SetValue(v any) error {
	t, ok, err := toTime(v)
	if err != nil {
		return fmt.Errorf("set date time: %w", err)
	}
	if !ok {
		a.Clear()
		return nil
	}
	a.c.SetDateTime(control.DateTimeOf(t))
	return nil
}

type comboBoxAdapter struct{ c *control.ComboBox }

// NewComboBoxAdapter returns the adapter for a drop-down. Its value is the
// data of the selected item; no selection is the default.
func NewComboBoxAdapter(c *control.ComboBox) ValueAdapter { return &comboBoxAdapter{c: c} }

func (a *comboBoxAdapter) Value() any   { return a.c.CurrentData() }
func (a *comboBoxAdapter) Default() any { return nil }
func (a *comboBoxAdapter) Clear()       { a.c.SetCurrentIndex(-1) }

func (a *comboBoxAdapter) SetValue(v any) error {
	if v == nil {
		a.Clear()
		return nil
	}
	idx := a.c.FindData(func(data any) bool { return sameValue(data, v) })
	if idx < 0 {
		// Records store an unset choice as the column's zero value.
		if reflect.ValueOf(v).IsZero() {
			a.Clear()
			return nil
		}
		return fmt.Errorf("%w %v", ErrNoSuchItem, v)
	}
	a.c.SetCurrentIndex(idx)
	return nil
}

// sameValue compares item data with an incoming value. Values decoded from
// JSON or YAML may differ in numeric type from the item data, so a string
// comparison is the fallback.
func sameValue(a, b any) bool {
	if cmp.Equal(a, b) {
		return true
	}
	as, errA := cast.ToStringE(a)
	bs, errB := cast.ToStringE(b)
	return errA == nil && errB == nil && as == bs
}
