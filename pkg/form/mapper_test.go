package form

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gltn/stdm/pkg/binding"
	"github.com/gltn/stdm/pkg/control"
	"github.com/gltn/stdm/pkg/entities"
	"github.com/gltn/stdm/pkg/notify"
	"github.com/gltn/stdm/pkg/record"
	"github.com/gltn/stdm/pkg/schema"
)

// fakeStore records calls and answers uniqueness lookups from owners, a map
// of column to value to the id of the record holding it.
type fakeStore struct {
	owners    map[string]map[any]any
	lookups   []record.UniqueLookup
	created   []any
	updated   []any
	createErr error
	updateErr error
	lookupErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{owners: make(map[string]map[any]any)}
}

func (s *fakeStore) hold(column string, value, id any) {
	if s.owners[column] == nil {
		s.owners[column] = make(map[any]any)
	}
	s.owners[column][value] = id
}

func (s *fakeStore) Create(_ context.Context, rec any) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, rec)
	return nil
}

func (s *fakeStore) Update(_ context.Context, rec any) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updated = append(s.updated, rec)
	return nil
}

func (s *fakeStore) ValueTaken(_ context.Context, l record.UniqueLookup) (bool, error) {
	s.lookups = append(s.lookups, l)
	if s.lookupErr != nil {
		return false, s.lookupErr
	}
	owner, ok := s.owners[l.Column][l.Value]
	if !ok {
		return false, nil
	}
	if l.ExcludeColumn != "" && l.ExcludeValue != nil && owner == l.ExcludeValue {
		return false, nil
	}
	return true, nil
}

type recordingHost struct {
	accepted  int
	rejected  int
	infos     []string
	criticals []string
	prompts   int
	answer    Response
}

func (h *recordingHost) Accept()                       { h.accepted++ }
func (h *recordingHost) Reject()                       { h.rejected++ }
func (h *recordingHost) Information(title, msg string) { h.infos = append(h.infos, title+": "+msg) }
func (h *recordingHost) Critical(title, msg string)    { h.criticals = append(h.criticals, title+": "+msg) }

func (h *recordingHost) ConfirmSave(string, string) Response {
	h.prompts++
	return h.answer
}

// testingT is satisfied by *testing.T and GinkgoT().
type testingT interface {
	require.TestingT
	Helper()
}

func spatialUnits(t testingT) *schema.Entity {
	t.Helper()
	reg := schema.NewRegistry(nil)
	require.NoError(t, entities.Register(reg))
	e, err := reg.Lookup(entities.NameSpatialUnit)
	require.NoError(t, err)
	return e
}

type fixture struct {
	mapper *Mapper
	store  *fakeStore
	host   *recordingHost
	bar    *notify.Bar
	code   *control.LineEdit
	name   *control.LineEdit
}

func newFixture(t testingT, model *entities.SpatialUnit, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		store: newFakeStore(),
		host:  &recordingHost{},
		bar:   notify.NewBar(nil),
		code:  control.NewLineEdit("code"),
		name:  control.NewLineEdit("name"),
	}
	var m any
	if model != nil {
		m = model
	}
	opts = append([]Option{WithHost(f.host), WithNotifier(f.bar)}, opts...)
	mapper, err := New(spatialUnits(t), m, f.store, opts...)
	require.NoError(t, err)
	f.mapper = mapper

	_, err = mapper.AddMapping("code", f.code, nil)
	require.NoError(t, err)
	_, err = mapper.AddMapping("name", f.name, nil)
	require.NoError(t, err)
	return f
}

func TestNewMode(t *testing.T) {
	e := spatialUnits(t)

	m, err := New(e, nil, newFakeStore())
	require.NoError(t, err)
	assert.Equal(t, Create, m.Mode())
	assert.IsType(t, &entities.SpatialUnit{}, m.Model().Value())
	assert.NotEmpty(t, m.ID())

	m, err = New(e, &entities.SpatialUnit{ID: 3}, newFakeStore())
	require.NoError(t, err)
	assert.Equal(t, Update, m.Mode())

	m.SetMode(Create)
	assert.Equal(t, Create, m.Mode())

	_, err = New(e, &entities.Party{}, newFakeStore())
	require.ErrorIs(t, err, schema.ErrTypeMismatch)
}

func TestValidateMandatory(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	name := f.mapper.Binding("name")

	msg, err := f.mapper.Validate(ctx, name, false)
	require.NoError(t, err)
	assert.Equal(t, "Name is a required field.", msg)

	f.name.SetText("Parcel A")
	msg, err = f.mapper.Validate(ctx, name, false)
	require.NoError(t, err)
	assert.Empty(t, msg)
}

func TestValidateUnique(t *testing.T) {
	f := newFixture(t, &entities.SpatialUnit{ID: 7, Code: "P001", Name: "Parcel A"})
	f.store.hold("code", "P001", uint(7))
	ctx := context.Background()
	code := f.mapper.Binding("code")
	require.Equal(t, "P001", f.code.Text())

	msg, err := f.mapper.Validate(ctx, code, false)
	require.NoError(t, err)
	assert.Equal(t, "Code field value should be unique.", msg)

	msg, err = f.mapper.Validate(ctx, code, true)
	require.NoError(t, err)
	assert.Empty(t, msg, "the record's own value is not a conflict")

	last := f.store.lookups[len(f.store.lookups)-1]
	assert.Equal(t, record.UniqueLookup{
		Table: "spatial_units", Column: "code", Value: "P001",
		ExcludeColumn: "id", ExcludeValue: uint(7),
	}, last)
}

func TestValidateUniqueOnUpdateAgainstAnotherRecord(t *testing.T) {
	f := newFixture(t, &entities.SpatialUnit{ID: 8, Code: "P002", Name: "Parcel B"})
	f.store.hold("code", "P001", uint(7))
	f.code.SetText("P001")

	msg, err := f.mapper.Validate(context.Background(), f.mapper.Binding("code"), true)
	require.NoError(t, err)
	assert.Equal(t, "Code field value should be unique.", msg)
}

func TestValidateMandatoryReplacesUniqueMessage(t *testing.T) {
	f := newFixture(t, nil)
	f.store.hold("code", "", uint(1))

	msg, err := f.mapper.Validate(context.Background(), f.mapper.Binding("code"), false)
	require.NoError(t, err)
	assert.Equal(t, "Code is a required field.", msg)
}

func TestValidateMandatoryBinding(t *testing.T) {
	f := newFixture(t, nil)
	notes := control.NewTextEdit("notes")
	b, err := f.mapper.AddMapping("notes", notes, nil, binding.Mandatory(true))
	require.NoError(t, err)

	msg, err := f.mapper.Validate(context.Background(), b, false)
	require.NoError(t, err)
	assert.Equal(t, "Notes is a required field.", msg)

	f.code.SetText("P001")
	f.name.SetText("Parcel A")
	assert.False(t, f.mapper.Submit(context.Background(), SubmitOptions{}))
	assert.Equal(t, []string{"Notes is a required field."}, f.mapper.Errors())
	assert.Empty(t, f.store.created)

	notes.SetPlainText("boundary disputed")
	msg, err = f.mapper.Validate(context.Background(), b, false)
	require.NoError(t, err)
	assert.Empty(t, msg)
}

func TestValidateSkipsAttributesWithoutColumn(t *testing.T) {
	f := newFixture(t, nil)
	b, err := f.mapper.AddMapping("remarks", control.NewLineEdit("remarks"), nil, binding.Mandatory(true))
	require.NoError(t, err)

	msg, err := f.mapper.Validate(context.Background(), b, false)
	require.NoError(t, err)
	assert.Empty(t, msg)
}

func TestValidateLookupFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.store.lookupErr = errors.New("connection refused")
	f.code.SetText("P001")

	_, err := f.mapper.Validate(context.Background(), f.mapper.Binding("code"), false)
	require.Error(t, err)
	assert.ErrorIs(t, err, f.store.lookupErr)
}

func TestValidateAll(t *testing.T) {
	f := newFixture(t, nil)
	f.store.hold("code", "P001", uint(1))
	f.code.SetText("P001")

	errs := f.mapper.ValidateAll(context.Background())
	assert.Equal(t, []string{
		"Code field value should be unique.",
		"Name is a required field.",
	}, errs)
	assert.Equal(t, errs, f.bar.Messages(notify.Warning))
	assert.False(t, f.mapper.IsValid(), "ValidateAll leaves validity alone")
}

func TestSubmitWithErrorsDoesNotPersist(t *testing.T) {
	f := newFixture(t, nil)
	f.bar.Insert("stale", notify.Success)
	f.code.SetText("P001")

	ok := f.mapper.Submit(context.Background(), SubmitOptions{})
	assert.False(t, ok)
	assert.False(t, f.mapper.IsValid())
	assert.Equal(t, []string{"Name is a required field."}, f.mapper.Errors())
	assert.Equal(t, []string{"Name is a required field."}, f.bar.Messages(notify.Warning))
	assert.Empty(t, f.bar.Messages(notify.Success), "previous notifications are cleared")

	assert.Empty(t, f.store.created)
	assert.Nil(t, f.mapper.SavedModel())
	assert.Zero(t, f.host.accepted)

	unit := f.mapper.Model().Value().(*entities.SpatialUnit)
	assert.Empty(t, unit.Code, "model is not written when validation fails")
}

func TestSubmitCreate(t *testing.T) {
	f := newFixture(t, nil)
	area := control.NewDoubleSpinBox("area", 0, 1e6)
	floors := control.NewSpinBox("floors", 0, 99)
	disputed := control.NewCheckBox("disputed")
	registered := control.NewDateEdit("registered_on")
	for attr, c := range map[string]control.Control{
		"area": area, "floors": floors, "disputed": disputed, "registered_on": registered,
	} {
		_, err := f.mapper.AddMapping(attr, c, nil)
		require.NoError(t, err)
	}

	f.code.SetText("P001")
	f.name.SetText("Parcel A")
	area.SetValue(250.5)
	floors.SetValue(2)
	disputed.SetChecked(true)
	registered.SetDate(control.Date{Year: 2014, Month: time.January, Day: 28})

	ok := f.mapper.Submit(context.Background(), SubmitOptions{})
	require.True(t, ok)
	assert.Empty(t, f.mapper.Errors())

	require.Len(t, f.store.created, 1)
	assert.Empty(t, f.store.updated)
	unit := f.store.created[0].(*entities.SpatialUnit)
	assert.Equal(t, "P001", unit.Code)
	assert.Equal(t, "Parcel A", unit.Name)
	assert.Equal(t, 250.5, unit.Area)
	assert.Equal(t, int64(2), unit.Floors)
	assert.True(t, unit.Disputed)
	require.NotNil(t, unit.RegisteredOn)
	assert.True(t, time.Date(2014, time.January, 28, 0, 0, 0, 0, time.UTC).Equal(*unit.RegisteredOn))

	assert.Equal(t, []string{"Record Saved: New record has been successfully saved."}, f.host.infos)
	assert.Equal(t, 1, f.host.accepted)
	require.NotNil(t, f.mapper.SavedModel())
	assert.Same(t, unit, f.mapper.SavedModel().Value())
	assert.False(t, f.mapper.IsDirty(), "a saved form is clean")
}

func TestSubmitSaveAndNew(t *testing.T) {
	f := newFixture(t, nil)
	f.code.SetText("P001")
	f.name.SetText("Parcel A")

	require.True(t, f.mapper.Submit(context.Background(), SubmitOptions{SaveAndNew: true}))
	assert.Len(t, f.store.created, 1)
	assert.Empty(t, f.host.infos)
	assert.Zero(t, f.host.accepted)
	assert.NotNil(t, f.mapper.SavedModel())
}

func TestSubmitUpdate(t *testing.T) {
	unit := &entities.SpatialUnit{ID: 7, Code: "P001", Name: "Parcel A"}
	f := newFixture(t, unit)
	f.store.hold("code", "P001", uint(7))
	f.name.SetText("Parcel A (north)")

	require.True(t, f.mapper.Submit(context.Background(), SubmitOptions{}))
	assert.Empty(t, f.store.created)
	require.Len(t, f.store.updated, 1)
	assert.Same(t, unit, f.store.updated[0])
	assert.Equal(t, "Parcel A (north)", unit.Name)
	assert.Equal(t, []string{"Record Updated: Record has been successfully updated."}, f.host.infos)
	assert.Equal(t, 1, f.host.accepted)
}

func TestSubmitCollectModel(t *testing.T) {
	f := newFixture(t, nil)
	f.code.SetText("P001")
	f.name.SetText("Parcel A")

	require.True(t, f.mapper.Submit(context.Background(), SubmitOptions{CollectModel: true}))
	assert.Empty(t, f.store.created)
	assert.Zero(t, f.host.accepted)
	assert.Nil(t, f.mapper.SavedModel())

	unit := f.mapper.Model().Value().(*entities.SpatialUnit)
	assert.Equal(t, "P001", unit.Code)
	assert.Equal(t, "Parcel A", unit.Name)
}

func TestSubmitPersistenceFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.store.createErr = errors.New("UNIQUE constraint failed: spatial_units.code")
	f.code.SetText("P001")
	f.name.SetText("Parcel A")

	ok := f.mapper.Submit(context.Background(), SubmitOptions{})
	assert.False(t, ok)
	assert.False(t, f.mapper.IsValid())
	assert.Equal(t, []string{
		"Data Operation Error: The data could not be saved due to the error: \nUNIQUE constraint failed: spatial_units.code",
	}, f.host.criticals)
	assert.Empty(t, f.host.infos)
	assert.Zero(t, f.host.accepted)
	assert.Nil(t, f.mapper.SavedModel())
}

func TestSubmitLookupFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.store.lookupErr = errors.New("connection refused")
	f.code.SetText("P001")
	f.name.SetText("Parcel A")

	assert.False(t, f.mapper.Submit(context.Background(), SubmitOptions{}))
	require.Len(t, f.mapper.Errors(), 1)
	assert.Contains(t, f.mapper.Errors()[0], "connection refused")
	assert.Len(t, f.bar.Messages(notify.Error), 1)
	assert.Empty(t, f.store.created)
}

func TestSubmitPreSaveAborts(t *testing.T) {
	f := newFixture(t, nil, WithPreSave(func(context.Context, *Mapper) bool { return false }))
	f.bar.Insert("keep me", notify.Success)
	f.code.SetText("P001")
	f.name.SetText("Parcel A")

	assert.False(t, f.mapper.Submit(context.Background(), SubmitOptions{}))
	assert.Empty(t, f.store.lookups)
	assert.Empty(t, f.store.created)
	assert.Equal(t, []string{"keep me"}, f.bar.Messages(notify.Success))
}

func TestSubmitPostSave(t *testing.T) {
	var got *schema.Record
	f := newFixture(t, nil, WithPostSave(func(_ context.Context, saved *schema.Record) { got = saved }))
	f.code.SetText("P001")
	f.name.SetText("Parcel A")

	require.True(t, f.mapper.Submit(context.Background(), SubmitOptions{}))
	require.NotNil(t, got)
	assert.Same(t, f.mapper.Model(), got)
}

func TestSubmitUsesReplacedModel(t *testing.T) {
	f := newFixture(t, nil)
	other := &entities.SpatialUnit{}
	require.NoError(t, f.mapper.SetModel(other))
	f.code.SetText("P009")
	f.name.SetText("Parcel Z")

	require.True(t, f.mapper.Submit(context.Background(), SubmitOptions{CollectModel: true}))
	assert.Equal(t, "P009", other.Code)

	require.ErrorIs(t, f.mapper.SetModel(&entities.Party{}), schema.ErrTypeMismatch)
}

func TestClearLeavesModel(t *testing.T) {
	unit := &entities.SpatialUnit{ID: 7, Code: "P001", Name: "Parcel A", Area: 12}
	f := newFixture(t, unit)
	area := control.NewDoubleSpinBox("area", 0, 100)
	_, err := f.mapper.AddMapping("area", area, nil)
	require.NoError(t, err)
	require.Equal(t, 12.0, area.Value())

	f.mapper.Clear()
	assert.Empty(t, f.code.Text())
	assert.Empty(t, f.name.Text())
	assert.Zero(t, area.Value())
	assert.Equal(t, "P001", unit.Code)
	assert.Equal(t, 12.0, unit.Area)
}

func TestAddBindingPreloadAndDirty(t *testing.T) {
	f := newFixture(t, nil)
	notes := control.NewTextEdit("notes")
	_, err := f.mapper.AddMapping("notes", notes, func() any { return "surveyed" })
	require.NoError(t, err)

	assert.Equal(t, "surveyed", notes.PlainText())
	assert.False(t, f.mapper.IsDirty(), "preloaded values are not edits")

	notes.SetPlainText("surveyed twice")
	assert.True(t, f.mapper.IsDirty())
}

func TestAddBindingPreloadIgnoredOnUpdate(t *testing.T) {
	f := newFixture(t, &entities.SpatialUnit{ID: 7, Notes: "from record"})
	notes := control.NewTextEdit("notes")
	_, err := f.mapper.AddMapping("notes", notes, func() any { return "preloaded" })
	require.NoError(t, err)

	assert.Equal(t, "from record", notes.PlainText())
	assert.False(t, f.mapper.IsDirty())
}

func TestAddBindingDisplayNames(t *testing.T) {
	f := newFixture(t, nil)

	b, err := f.mapper.AddMapping("registered_on", control.NewDateEdit("registered_on"), nil)
	require.NoError(t, err)
	assert.Equal(t, "Registration Date", b.DisplayName())

	b, err = f.mapper.AddMapping("land_use", control.NewLineEdit("land_use"), nil)
	require.NoError(t, err)
	assert.Equal(t, "Land Use", b.DisplayName())

	b, err = f.mapper.AddMapping("area", control.NewDoubleSpinBox("area", 0, 10), nil, binding.WithDisplayName("Size"))
	require.NoError(t, err)
	assert.Equal(t, "Size", b.DisplayName())
}

func TestAddBindingDuplicateAttribute(t *testing.T) {
	f := newFixture(t, nil)
	second := control.NewLineEdit("code2")
	b, err := f.mapper.AddMapping("code", second, nil)
	require.NoError(t, err)

	assert.Same(t, b, f.mapper.Binding("code"))
	assert.Len(t, f.mapper.Bindings(), 3)
	assert.Nil(t, f.mapper.Binding("nope"))
}

func TestAddBindingUnsupportedControl(t *testing.T) {
	m, err := New(spatialUnits(t), nil, newFakeStore(), WithAdapterRegistry(binding.NewRegistry()))
	require.NoError(t, err)
	_, err = m.AddMapping("notes", control.NewTextEdit("notes"), nil)
	require.ErrorIs(t, err, binding.ErrUnsupportedControl)
	assert.Nil(t, m.Binding("notes"))
	assert.Empty(t, m.Bindings())
}

func TestBindControlOnlyNeverWritesModel(t *testing.T) {
	unit := &entities.SpatialUnit{ID: 7, Code: "P001", Name: "Parcel A", Notes: "surveyed 1998"}
	f := newFixture(t, unit)
	notes := control.NewTextEdit("notes")
	_, err := f.mapper.AddMapping("notes", notes, nil, binding.BindControlOnly())
	require.NoError(t, err)
	require.Equal(t, "surveyed 1998", notes.PlainText())

	notes.SetPlainText("edited")
	require.True(t, f.mapper.Submit(context.Background(), SubmitOptions{CollectModel: true}))
	assert.Equal(t, "surveyed 1998", unit.Notes)
}

func TestNotificationsPassThrough(t *testing.T) {
	f := newFixture(t, nil)
	f.mapper.InsertNotification("hello", notify.Success)
	assert.Equal(t, []string{"hello"}, f.bar.Messages(notify.Success))

	f.mapper.ClearNotifications()
	assert.Empty(t, f.bar.Notifications())

	other := notify.NewBar(nil)
	f.mapper.SetNotifier(other)
	f.mapper.InsertNotification("moved", notify.Error)
	assert.Equal(t, []string{"moved"}, other.Messages(notify.Error))
	assert.Empty(t, f.bar.Notifications())

	f.mapper.SetNotifier(nil)
	f.mapper.InsertNotification("dropped", notify.Error)
}
