// Package form maps the attributes of one record to a set of input controls.
//
// A Mapper owns the bindings of a form, validates control values against the
// entity schema, writes them back onto the record and persists it. It also
// drives the close protocol: when controls were edited the host is asked
// whether to save first.
//
// A Mapper belongs to a single goroutine, like the form it backs.
package form

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/gltn/stdm/pkg/binding"
	"github.com/gltn/stdm/pkg/control"
	"github.com/gltn/stdm/pkg/dirty"
	"github.com/gltn/stdm/pkg/notify"
	"github.com/gltn/stdm/pkg/record"
	"github.com/gltn/stdm/pkg/schema"
)

// Mode is the persistence mode of a form.
type Mode int

const (
	// Create inserts a new record on submit.
	Create Mode = iota
	// Update writes the existing record on submit.
	Update
)

func (m Mode) String() string {
	switch m {
	case Create:
		return "create"
	case Update:
		return "update"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

const (
	uniqueMessage    = "%s field value should be unique."
	mandatoryMessage = "%s is a required field."

	savedTitle      = "Record Saved"
	savedMessage    = "New record has been successfully saved."
	updatedTitle    = "Record Updated"
	updatedMessage  = "Record has been successfully updated."
	failedTitle     = "Data Operation Error"
	failedMessage   = "The data could not be saved due to the error: \n%s"
	saveFirstTitle  = "Save Changes"
	saveFirstPrompt = "Would you like to save changes before closing?"
)

// Store persists records and answers uniqueness lookups. *record.Store
// implements it.
type Store interface {
	Create(ctx context.Context, rec any) error
	Update(ctx context.Context, rec any) error
	ValueTaken(ctx context.Context, l record.UniqueLookup) (bool, error)
}

// Preload returns the initial value of a control on a new record.
type Preload func() any

// PreSaveFunc runs before validation on submit. Returning false aborts the
// submit without any message.
type PreSaveFunc func(ctx context.Context, m *Mapper) bool

// PostSaveFunc runs after the record was persisted.
type PostSaveFunc func(ctx context.Context, saved *schema.Record)

// SubmitOptions modify a single Submit call.
type SubmitOptions struct {
	// CollectModel writes control values onto the record without
	// persisting it.
	CollectModel bool
	// SaveAndNew keeps the form open after a successful save and skips the
	// saved acknowledgment in create mode.
	SaveAndNew bool
}

// Mapper binds the attributes of one record to controls.
type Mapper struct {
	id       string
	entity   *schema.Entity
	model    *schema.Record
	mode     Mode
	store    Store
	notifier notify.Notifier
	host     Host
	logger   *slog.Logger
	adapters *binding.Registry
	preSave  PreSaveFunc
	postSave PostSaveFunc

	bindings []*binding.AttributeBinding
	byAttr   map[string]*binding.AttributeBinding
	tracker  *dirty.Tracker

	valid  bool
	errors []string
	saved  *schema.Record
}

// Option configures a Mapper.
type Option func(*Mapper)

func WithNotifier(n notify.Notifier) Option {
	return func(m *Mapper) { m.notifier = n }
}

func WithHost(h Host) Option {
	return func(m *Mapper) { m.host = h }
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Mapper) { m.logger = l }
}

// WithAdapterRegistry sets the registry bindings resolve their value adapters
// from. binding.DefaultRegistry is used otherwise.
func WithAdapterRegistry(r *binding.Registry) Option {
	return func(m *Mapper) { m.adapters = r }
}

func WithPreSave(fn PreSaveFunc) Option {
	return func(m *Mapper) { m.preSave = fn }
}

func WithPostSave(fn PostSaveFunc) Option {
	return func(m *Mapper) { m.postSave = fn }
}

// New creates a mapper over model, a pointer to entity's struct type. A nil
// model starts a new record in Create mode; otherwise the mapper is in Update
// mode.
func New(entity *schema.Entity, model any, store Store, opts ...Option) (*Mapper, error) {
	m := &Mapper{
		id:       uuid.NewString(),
		entity:   entity,
		store:    store,
		notifier: notify.Discard,
		host:     NopHost{},
		byAttr:   make(map[string]*binding.AttributeBinding),
		tracker:  dirty.NewTracker(),
	}
	if model == nil {
		m.mode = Create
		m.model = entity.NewRecord()
	} else {
		rec, err := entity.Record(model)
		if err != nil {
			return nil, fmt.Errorf("new form: %w", err)
		}
		m.mode = Update
		m.model = rec
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.notifier == nil {
		m.notifier = notify.Discard
	}
	if m.host == nil {
		m.host = NopHost{}
	}
	if m.adapters == nil {
		m.adapters = binding.DefaultRegistry()
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	m.logger = m.logger.With("form", m.id, "entity", entity.Name())
	return m, nil
}

// ID identifies the mapper in logs.
func (m *Mapper) ID() string             { return m.id }
func (m *Mapper) Entity() *schema.Entity { return m.entity }
func (m *Mapper) Mode() Mode             { return m.mode }
func (m *Mapper) SetMode(mode Mode)      { m.mode = mode }
func (m *Mapper) Model() *schema.Record  { return m.model }

// SetNotifier replaces the notification surface. Nil discards notifications.
func (m *Mapper) SetNotifier(n notify.Notifier) {
	if n == nil {
		n = notify.Discard
	}
	m.notifier = n
}

// SetModel replaces the record the form edits. Bindings pick it up on the
// next submit.
func (m *Mapper) SetModel(model any) error {
	rec, err := m.entity.Record(model)
	if err != nil {
		return fmt.Errorf("set form model: %w", err)
	}
	m.model = rec
	return nil
}

// Binding returns the binding of attr, or nil.
func (m *Mapper) Binding(attr string) *binding.AttributeBinding { return m.byAttr[attr] }

// Bindings returns the bindings in the order they were added.
func (m *Mapper) Bindings() []*binding.AttributeBinding {
	out := make([]*binding.AttributeBinding, len(m.bindings))
	copy(out, m.bindings)
	return out
}

// AddMapping binds attr to c. The display name defaults to the column label,
// then to the humanized attribute name; opts may override either.
func (m *Mapper) AddMapping(attr string, c control.Control, preload Preload, opts ...binding.Option) (*binding.AttributeBinding, error) {
	base := []binding.Option{binding.WithRegistry(m.adapters)}
	if col, ok := m.entity.Column(attr); ok && col.Label != "" {
		base = append(base, binding.WithDisplayName(col.Label))
	}
	b, err := binding.New(attr, c, m.model, append(base, opts...)...)
	if err != nil {
		return nil, err
	}
	if err := m.AddBinding(b, preload); err != nil {
		return nil, err
	}
	return b, nil
}

// AddBinding registers b. In Create mode a preload seeds the control; in
// Update mode the control is filled from the record. The control is handed to
// the dirty tracker afterwards, so the initial value never counts as an edit.
func (m *Mapper) AddBinding(b *binding.AttributeBinding, preload Preload) error {
	b.SetModel(m.model)
	switch {
	case m.mode == Create && preload != nil:
		if err := b.Adapter().SetValue(preload()); err != nil {
			return fmt.Errorf("preload %q: %w", b.AttributeName(), err)
		}
	case m.mode == Update:
		if err := b.BindControl(); err != nil {
			return err
		}
	}
	m.tracker.Add(b.Control(), b.Adapter())
	m.bindings = append(m.bindings, b)
	m.byAttr[b.AttributeName()] = b
	return nil
}

// Validate checks the control value of b against the column's constraints
// and returns the user-facing message, or "" when the value is acceptable.
// With update set, the current record is excluded from the uniqueness
// lookup. A value is required when either the column or the binding is
// mandatory. Attributes that are not columns are never invalid.
//
// When a value is both duplicated and missing, only the missing-value
// message is returned.
func (m *Mapper) Validate(ctx context.Context, b *binding.AttributeBinding, update bool) (string, error) {
	col, ok := m.entity.Column(b.AttributeName())
	if !ok {
		return "", nil
	}

	var msg string
	if col.Unique {
		lookup := record.UniqueLookup{
			Table:  m.entity.Table(),
			Column: col.Name,
			Value:  binding.Normalize(b.ControlValue()),
		}
		if update {
			lookup.ExcludeColumn = m.entity.PrimaryKey()
			lookup.ExcludeValue = m.model.ID()
		}
		taken, err := m.store.ValueTaken(ctx, lookup)
		if err != nil {
			return "", fmt.Errorf("validate %s: %w", b.AttributeName(), err)
		}
		if taken {
			msg = fmt.Sprintf(uniqueMessage, b.DisplayName())
		}
	}
	if (col.Mandatory || b.IsMandatory()) && b.IsDefault() {
		msg = fmt.Sprintf(mandatoryMessage, b.DisplayName())
	}
	return msg, nil
}

// ValidateAll validates every binding as for a new record, shows each
// message as a warning, and returns the messages. It does not change the
// form's validity.
func (m *Mapper) ValidateAll(ctx context.Context) []string {
	var out []string
	for _, b := range m.bindings {
		if msg := m.check(ctx, b, false); msg != "" {
			out = append(out, msg)
		}
	}
	return out
}

// check runs Validate and reports the outcome through the notifier. Lookup
// failures are reported as errors and returned as the message.
func (m *Mapper) check(ctx context.Context, b *binding.AttributeBinding, update bool) string {
	msg, err := m.Validate(ctx, b, update)
	if err != nil {
		m.logger.Error("validation lookup failed", "attribute", b.AttributeName(), "error", err)
		m.notifier.Insert(err.Error(), notify.Error)
		return err.Error()
	}
	if msg != "" {
		m.notifier.Insert(msg, notify.Warning)
	}
	return msg
}

// Submit validates the form, writes control values onto the record and,
// unless opts.CollectModel is set, persists it. It reports whether the form
// is valid afterwards. Validation and persistence failures are reported to
// the user, never returned.
func (m *Mapper) Submit(ctx context.Context, opts SubmitOptions) bool {
	if m.preSave != nil && !m.preSave(ctx, m) {
		m.logger.Debug("submit aborted by pre-save check")
		return false
	}

	m.ClearNotifications()
	m.valid = true
	m.errors = nil

	update := m.mode == Update
	for _, b := range m.bindings {
		if msg := m.check(ctx, b, update); msg != "" {
			m.errors = append(m.errors, msg)
		}
	}
	if len(m.errors) > 0 {
		m.valid = false
		m.logger.Info("submit rejected", "errors", len(m.errors))
		return false
	}

	for _, b := range m.bindings {
		b.SetModel(m.model)
		if err := b.BindModel(); err != nil {
			m.fail(err)
			return false
		}
	}

	if !opts.CollectModel {
		m.persist(ctx, opts.SaveAndNew)
	}
	return m.valid
}

func (m *Mapper) persist(ctx context.Context, saveAndNew bool) {
	if m.mode == Create {
		if err := m.store.Create(ctx, m.model.Value()); err != nil {
			m.fail(err)
			return
		}
		if !saveAndNew {
			m.host.Information(savedTitle, savedMessage)
		}
	} else {
		if err := m.store.Update(ctx, m.model.Value()); err != nil {
			m.fail(err)
			return
		}
		m.host.Information(updatedTitle, updatedMessage)
	}
	m.logger.Info("record saved", "mode", m.mode, "id", m.model.ID())

	m.tracker.MarkClean()
	m.saved = m.model
	if m.postSave != nil {
		m.postSave(ctx, m.model)
	}
	if !saveAndNew {
		m.host.Accept()
	}
}

func (m *Mapper) fail(err error) {
	m.logger.Error("record not saved", "mode", m.mode, "error", err)
	m.host.Critical(failedTitle, fmt.Sprintf(failedMessage, err))
	m.valid = false
}

// Clear resets every control to its adapter's empty value. The record is
// left untouched.
func (m *Mapper) Clear() {
	for _, b := range m.bindings {
		b.Adapter().Clear()
	}
}

// IsValid reports the outcome of the last submit.
func (m *Mapper) IsValid() bool { return m.valid }

// Errors returns the validation messages of the last submit.
func (m *Mapper) Errors() []string {
	out := make([]string, len(m.errors))
	copy(out, m.errors)
	return out
}

// SavedModel returns the record persisted by the last successful submit, or
// nil.
func (m *Mapper) SavedModel() *schema.Record { return m.saved }

func (m *Mapper) InsertNotification(message string, severity notify.Severity) {
	m.notifier.Insert(message, severity)
}

func (m *Mapper) ClearNotifications() { m.notifier.Clear() }

// IsDirty reports whether any control changed since it was bound.
func (m *Mapper) IsDirty() bool { return m.tracker.IsDirty() }
