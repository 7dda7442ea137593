package form

import (
	"context"
	"fmt"
)

// Response is the user's answer to the save-before-closing prompt.
type Response int

const (
	Yes Response = iota
	No
	Cancel
)

func (r Response) String() string {
	switch r {
	case Yes:
		return "yes"
	case No:
		return "no"
	case Cancel:
		return "cancel"
	default:
		return fmt.Sprintf("Response(%d)", int(r))
	}
}

// Host is the window a form lives in.
type Host interface {
	// Accept closes the form after a successful save.
	Accept()
	// Reject closes the form without saving.
	Reject()
	Information(title, message string)
	Critical(title, message string)
	// ConfirmSave asks whether to save before closing.
	ConfirmSave(title, message string) Response
}

// NopHost ignores every call and answers Cancel to prompts, so a form without
// a host never closes on its own.
type NopHost struct{}

func (NopHost) Accept()                             {}
func (NopHost) Reject()                             {}
func (NopHost) Information(string, string)          {}
func (NopHost) Critical(string, string)             {}
func (NopHost) ConfirmSave(string, string) Response { return Cancel }

// CheckDirty reports whether the form has unsaved edits and, if so, the
// user's answer to the save prompt.
func (m *Mapper) CheckDirty() (bool, Response) {
	if !m.tracker.IsDirty() {
		return false, No
	}
	return true, m.host.ConfirmSave(saveFirstTitle, saveFirstPrompt)
}

// RequestClose handles a request to close the window and reports whether the
// close may proceed. On Yes the form is submitted and stays open; a
// successful submit closes it through Host.Accept.
func (m *Mapper) RequestClose(ctx context.Context) bool {
	isDirty, resp := m.CheckDirty()
	if !isDirty {
		return true
	}
	switch resp {
	case Yes:
		m.Submit(ctx, SubmitOptions{})
		return false
	case No:
		return true
	default:
		return false
	}
}

// Cancel handles the form's cancel button. Clean forms are rejected at once;
// dirty forms prompt first.
func (m *Mapper) Cancel(ctx context.Context) {
	isDirty, resp := m.CheckDirty()
	if !isDirty {
		m.host.Reject()
		return
	}
	switch resp {
	case Yes:
		m.Submit(ctx, SubmitOptions{})
	case No:
		m.host.Reject()
	}
}
