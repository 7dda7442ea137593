package control

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCreatesEveryKind(t *testing.T) {
	for _, kind := range Kinds() {
		c, err := New(kind, "field")
		require.NoError(t, err, kind)
		assert.Equal(t, kind, c.Kind())
		assert.Equal(t, "field", c.Name())
	}
}

func TestNewUnknownKind(t *testing.T) {
	_, err := New("slider", "x")
	require.ErrorIs(t, err, ErrUnknownKind)
}

func TestSpinBoxClampsToRange(t *testing.T) {
	sb := NewSpinBox("age", 18, 120)
	assert.Equal(t, int64(18), sb.Value())

	sb.SetValue(200)
	assert.Equal(t, int64(120), sb.Value())

	sb.SetValue(3)
	assert.Equal(t, int64(18), sb.Value())

	sb.SetValue(40)
	sb.SetRange(50, 60)
	assert.Equal(t, int64(50), sb.Value())
}

func TestDoubleSpinBoxClampsToRange(t *testing.T) {
	sb := NewDoubleSpinBox("area", 0, 10)
	sb.SetValue(12.5)
	assert.Equal(t, 10.0, sb.Value())
	sb.SetValue(-1)
	assert.Equal(t, 0.0, sb.Value())
}

func TestComboBoxSelection(t *testing.T) {
	cb := NewComboBox("land_use",
		ComboItem{Text: "Residential", Data: "residential"},
		ComboItem{Text: "Commercial", Data: "commercial"},
	)
	assert.Equal(t, -1, cb.CurrentIndex())
	assert.Nil(t, cb.CurrentData())

	cb.SetCurrentIndex(1)
	assert.Equal(t, "commercial", cb.CurrentData())

	cb.SetCurrentIndex(7)
	assert.Equal(t, -1, cb.CurrentIndex())

	idx := cb.FindData(func(v any) bool { return v == "residential" })
	assert.Equal(t, 0, idx)
}

func TestDateConversions(t *testing.T) {
	assert.True(t, Date{}.IsZero())
	assert.True(t, Date{}.ToTime().IsZero())
	assert.Equal(t, "", Date{}.String())

	d := DateOf(time.Date(2014, time.January, 28, 17, 30, 0, 0, time.UTC))
	assert.Equal(t, Date{Year: 2014, Month: time.January, Day: 28}, d)
	assert.Equal(t, "2014-01-28", d.String())
	assert.Equal(t, time.Date(2014, time.January, 28, 0, 0, 0, 0, time.UTC), d.ToTime())

	ts := time.Date(2014, time.March, 4, 9, 15, 30, 500, time.UTC)
	dt := DateTimeOf(ts)
	assert.Equal(t, ts.Truncate(time.Second), dt.ToTime())
	assert.Equal(t, "2014-03-04T09:15:30Z", dt.String())
	assert.True(t, DateTimeOf(time.Time{}).IsZero())
}
