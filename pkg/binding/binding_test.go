package binding

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gltn/stdm/pkg/control"
)

// mapModel is a Model backed by a map; absent keys are absent attributes.
type mapModel struct {
	values map[string]any
	setErr error
}

func newMapModel(kv map[string]any) *mapModel {
	if kv == nil {
		kv = map[string]any{}
	}
	return &mapModel{values: kv}
}

func (m *mapModel) Attribute(name string) (any, bool) {
	v, ok := m.values[name]
	return v, ok
}

func (m *mapModel) SetAttribute(name string, value any) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.values[name] = value
	return nil
}

func TestNewResolvesAdapterFromKind(t *testing.T) {
	le := control.NewLineEdit("name")
	b, err := New("name", le, newMapModel(nil))
	require.NoError(t, err)

	le.SetText("Parcel A")
	assert.Equal(t, "Parcel A", b.ControlValue())
	assert.Equal(t, "Name", b.DisplayName())
}

func TestNewUnsupportedKind(t *testing.T) {
	_, err := New("name", control.NewLineEdit("name"), newMapModel(nil), WithRegistry(NewRegistry()))
	require.ErrorIs(t, err, ErrUnsupportedControl)
	assert.Contains(t, err.Error(), "line_edit")
}

func TestNewWithAdapterSkipsRegistry(t *testing.T) {
	le := control.NewLineEdit("name")
	adapter := NewLineEditAdapter(le)
	b, err := New("name", le, newMapModel(nil), WithRegistry(NewRegistry()), WithAdapter(adapter))
	require.NoError(t, err)
	assert.Same(t, adapter, b.Adapter())
}

func TestBindControlFromModel(t *testing.T) {
	le := control.NewLineEdit("code")
	model := newMapModel(map[string]any{"code": "P001"})
	b, err := New("code", le, model)
	require.NoError(t, err)

	require.NoError(t, b.BindControl())
	assert.Equal(t, "P001", le.Text())
}

func TestBindingsOnAbsentAttributeAreNoOps(t *testing.T) {
	le := control.NewLineEdit("nickname")
	le.SetText("Johnny")
	model := newMapModel(map[string]any{"code": "P001"})
	b, err := New("nickname", le, model)
	require.NoError(t, err)

	require.NoError(t, b.BindControl())
	assert.Equal(t, "Johnny", le.Text())

	require.NoError(t, b.BindModel())
	assert.Equal(t, map[string]any{"code": "P001"}, model.values)
}

func TestBindModelNormalizesDates(t *testing.T) {
	de := control.NewDateEdit("registered_on")
	model := newMapModel(map[string]any{"registered_on": nil})
	b, err := New("registered_on", de, model)
	require.NoError(t, err)

	de.SetDate(control.Date{Year: 2014, Month: time.January, Day: 28})
	require.NoError(t, b.BindModel())
	assert.Equal(t, time.Date(2014, time.January, 28, 0, 0, 0, 0, time.UTC), model.values["registered_on"])

	de.SetDate(control.Date{})
	require.NoError(t, b.BindModel())
	assert.Nil(t, model.values["registered_on"])
}

func TestBindModelDateTime(t *testing.T) {
	dte := control.NewDateTimeEdit("surveyed_at")
	model := newMapModel(map[string]any{"surveyed_at": nil})
	b, err := New("surveyed_at", dte, model)
	require.NoError(t, err)

	ts := time.Date(2020, time.May, 1, 8, 30, 0, 0, time.UTC)
	require.NoError(t, b.Adapter().SetValue(ts))
	require.NoError(t, b.BindModel())
	assert.Equal(t, ts, model.values["surveyed_at"])
}

func TestBindControlOnlyNeverWritesModel(t *testing.T) {
	le := control.NewLineEdit("code")
	model := newMapModel(map[string]any{"code": "P001"})
	b, err := New("code", le, model, BindControlOnly())
	require.NoError(t, err)

	require.NoError(t, b.BindControl())
	le.SetText("P002")
	require.NoError(t, b.BindModel())
	assert.Equal(t, "P001", model.values["code"])
}

func TestBindModelPropagatesSetError(t *testing.T) {
	le := control.NewLineEdit("code")
	model := newMapModel(map[string]any{"code": ""})
	model.setErr = errors.New("read-only")
	b, err := New("code", le, model)
	require.NoError(t, err)

	err = b.BindModel()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read-only")
}

func TestIsDefault(t *testing.T) {
	le := control.NewLineEdit("name")
	b, err := New("name", le, newMapModel(nil), Mandatory(true))
	require.NoError(t, err)
	assert.True(t, b.IsMandatory())

	assert.True(t, b.IsDefault())
	le.SetText("Parcel A")
	assert.False(t, b.IsDefault())
}

func TestHumanize(t *testing.T) {
	tests := map[string]string{
		"name":              "Name",
		"registration_date": "Registration Date",
		"first-name":        "First Name",
		"code":              "Code",
	}
	for in, want := range tests {
		assert.Equal(t, want, Humanize(in), in)
	}
}

func TestNormalizeLeavesOtherValues(t *testing.T) {
	assert.Equal(t, "x", Normalize("x"))
	assert.Equal(t, int64(3), Normalize(int64(3)))
	ts := time.Now()
	assert.Equal(t, ts, Normalize(ts))
	assert.Nil(t, Normalize(nil))
}
