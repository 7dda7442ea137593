package formserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/gltn/stdm/pkg/audit"
	"github.com/gltn/stdm/pkg/form"
	"github.com/gltn/stdm/pkg/formdef"
	"github.com/gltn/stdm/pkg/notify"
	"github.com/gltn/stdm/pkg/record"
)

// SubmitRequest is the body of the record and validate routes.
type SubmitRequest struct {
	// Values maps attribute names to control values. Fields left out keep
	// their preloaded or stored value.
	Values     map[string]any `json:"values"`
	SaveAndNew bool           `json:"saveAndNew,omitempty"`
}

// SubmitResponse reports the outcome of a submission or validation.
type SubmitResponse struct {
	Valid         bool                  `json:"valid"`
	Errors        []string              `json:"errors,omitempty"`
	Notifications []notify.Notification `json:"notifications,omitempty"`
	Messages      []Dialog              `json:"messages,omitempty"`
	Failures      []Dialog              `json:"failures,omitempty"`
	Record        any                   `json:"record,omitempty"`
}

// FormSummary is one entry of the form listing.
type FormSummary struct {
	Name   string `json:"name"`
	Entity string `json:"entity"`
	Title  string `json:"title,omitempty"`
	Fields int    `json:"fields"`
}

// listForms handles GET /api/forms/v1/forms
func (s *Server) listForms(w http.ResponseWriter, _ *http.Request) {
	defs := s.Forms().Definitions()
	out := make([]FormSummary, 0, len(defs))
	for _, d := range defs {
		out = append(out, FormSummary{Name: d.Name, Entity: d.Entity, Title: d.Title, Fields: len(d.Fields)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"forms": out})
}

// getForm handles GET /api/forms/v1/forms/{form}
func (s *Server) getForm(w http.ResponseWriter, r *http.Request) {
	d, err := s.Forms().Lookup(chi.URLParam(r, "form"))
	if err != nil {
		writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// getRecord handles GET /api/forms/v1/forms/{form}/records/{id}
func (s *Server) getRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := s.load(r, chi.URLParam(r, "form"), chi.URLParam(r, "id"))
	if err != nil {
		writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// validate handles POST /api/forms/v1/forms/{form}/validate. Nothing is
// saved; the response lists what a submission would reject.
func (s *Server) validate(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}
	ss, err := s.open(r.Context(), chi.URLParam(r, "form"), nil)
	if err != nil {
		writeLookupError(w, err)
		return
	}
	if err := ss.fill(req.Values); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	errs := ss.mapper.ValidateAll(r.Context())
	status := http.StatusOK
	if ss.failed() {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, SubmitResponse{
		Valid:         len(errs) == 0,
		Errors:        errs,
		Notifications: ss.bar.Notifications(),
	})
}

// createRecord handles POST /api/forms/v1/forms/{form}/records
func (s *Server) createRecord(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}
	ss, err := s.open(r.Context(), chi.URLParam(r, "form"), nil)
	if err != nil {
		writeLookupError(w, err)
		return
	}
	s.submit(w, r, ss, req, http.StatusCreated)
}

// updateRecord handles PUT /api/forms/v1/forms/{form}/records/{id}
func (s *Server) updateRecord(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}
	name := chi.URLParam(r, "form")
	rec, err := s.load(r, name, chi.URLParam(r, "id"))
	if err != nil {
		writeLookupError(w, err)
		return
	}
	ss, err := s.open(r.Context(), name, rec)
	if err != nil {
		writeLookupError(w, err)
		return
	}
	// Save-and-new has no meaning for an existing record.
	req.SaveAndNew = false
	s.submit(w, r, ss, req, http.StatusOK)
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request, ss *session, req SubmitRequest, okStatus int) {
	if err := ss.fill(req.Values); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	saved := ss.mapper.Submit(r.Context(), form.SubmitOptions{SaveAndNew: req.SaveAndNew})

	resp := SubmitResponse{
		Valid:         saved,
		Errors:        ss.mapper.Errors(),
		Notifications: ss.bar.Notifications(),
		Messages:      ss.host.Infos,
		Failures:      ss.host.Criticals,
	}
	status := okStatus
	switch {
	case saved:
		resp.Record = ss.mapper.SavedModel().Value()
	case ss.failed():
		status = http.StatusInternalServerError
	default:
		status = http.StatusUnprocessableEntity
	}
	s.audited(r, ss, status, resp.Errors)
	s.logger.Debug("form submitted",
		"form", chi.URLParam(r, "form"),
		"mode", ss.mapper.Mode().String(),
		"status", status,
	)
	writeJSON(w, status, resp)
}

// audited appends the submission to the audit history. Failures are logged
// and do not affect the response.
func (s *Server) audited(r *http.Request, ss *session, status int, errs []string) {
	if s.audit == nil {
		return
	}
	e := &audit.Event{
		RequestID: middleware.GetReqID(r.Context()),
		Form:      chi.URLParam(r, "form"),
		Entity:    ss.mapper.Entity().Name(),
		Mode:      ss.mapper.Mode().String(),
		RecordID:  chi.URLParam(r, "id"),
		Outcome:   audit.OutcomeSaved,
	}
	switch {
	case status == http.StatusInternalServerError:
		e.Outcome = audit.OutcomeFailed
		for _, d := range ss.host.Criticals {
			errs = append(errs, d.Message)
		}
	case status >= 400:
		e.Outcome = audit.OutcomeRejected
	}
	if saved := ss.mapper.SavedModel(); saved != nil {
		e.RecordID = fmt.Sprint(saved.ID())
	}
	e.Errors = strings.Join(errs, "\n")
	if err := s.audit.Append(r.Context(), e); err != nil {
		s.logger.Error("failed to write audit event", "error", err, "requestID", e.RequestID)
	}
}

// load reads the record with the given id for the entity form name edits.
func (s *Server) load(r *http.Request, name, id string) (any, error) {
	d, err := s.Forms().Lookup(name)
	if err != nil {
		return nil, err
	}
	entity, err := s.registry.Lookup(d.Entity)
	if err != nil {
		return nil, err
	}
	rec := entity.New()
	if err := s.store.Get(r.Context(), rec, id); err != nil {
		return nil, err
	}
	return rec, nil
}

func decodeRequest(w http.ResponseWriter, r *http.Request) (SubmitRequest, bool) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return req, false
	}
	return req, true
}

func writeLookupError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, formdef.ErrUnknownForm), errors.Is(err, record.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
