package formserver

import "github.com/gltn/stdm/pkg/form"

// Dialog is a host message returned to the client.
type Dialog struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// responseHost collects what a desktop form would have shown in dialogs so
// it can go back in the HTTP response. Requests never prompt, so an unsaved
// form is always kept open.
type responseHost struct {
	Accepted  bool
	Rejected  bool
	Infos     []Dialog
	Criticals []Dialog
}

func (h *responseHost) Accept() { h.Accepted = true }
func (h *responseHost) Reject() { h.Rejected = true }

func (h *responseHost) Information(title, message string) {
	h.Infos = append(h.Infos, Dialog{Title: title, Message: message})
}

func (h *responseHost) Critical(title, message string) {
	h.Criticals = append(h.Criticals, Dialog{Title: title, Message: message})
}

func (h *responseHost) ConfirmSave(string, string) form.Response { return form.Cancel }
