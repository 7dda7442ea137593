// Package formserver exposes form definitions over HTTP and lets clients
// fill, validate and submit them against the record store.
package formserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/gltn/stdm/pkg/audit"
	"github.com/gltn/stdm/pkg/cache"
	"github.com/gltn/stdm/pkg/form"
	"github.com/gltn/stdm/pkg/formdef"
	"github.com/gltn/stdm/pkg/notify"
	"github.com/gltn/stdm/pkg/record"
	"github.com/gltn/stdm/pkg/schema"
)

// Server serves the forms of a definition set. The set can be swapped while
// requests are in flight.
type Server struct {
	registry *schema.Registry
	store    *record.Store
	logger   *slog.Logger
	origins  []string
	cache    *cache.Responses
	audit    *audit.Store

	mu    sync.RWMutex
	forms *formdef.Set
}

type Option func(*Server)

// WithLogger sets the server logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithAllowedOrigins sets the CORS origins. The default allows any origin.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) { s.origins = origins }
}

// WithResponseCache serves form definitions from c. The cache is cleared
// whenever the definitions are replaced.
func WithResponseCache(c *cache.Responses) Option {
	return func(s *Server) { s.cache = c }
}

// WithAudit records every submission in store and serves the history under
// /api/audit/v1.
func WithAudit(store *audit.Store) Option {
	return func(s *Server) { s.audit = store }
}

// New creates a server over forms, whose entities must be in registry.
func New(registry *schema.Registry, store *record.Store, forms *formdef.Set, opts ...Option) (*Server, error) {
	if err := forms.Check(registry); err != nil {
		return nil, err
	}
	s := &Server{
		registry: registry,
		store:    store,
		forms:    forms,
		logger:   slog.Default(),
		origins:  []string{"*"},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SetForms replaces the served definitions. Forms already open keep the
// definitions they were built from.
func (s *Server) SetForms(forms *formdef.Set) error {
	if err := forms.Check(s.registry); err != nil {
		return err
	}
	s.mu.Lock()
	s.forms = forms
	s.mu.Unlock()
	if s.cache != nil {
		s.cache.InvalidateAll()
	}
	s.logger.Info("form definitions replaced", "forms", forms.Names())
	return nil
}

// Forms returns the served definitions.
func (s *Server) Forms() *formdef.Set {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.forms
}

// Handler returns the router serving every form route.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Location"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Route("/api/forms/v1", func(r chi.Router) {
		r.With(s.cached).Get("/forms", s.listForms)
		r.Route("/forms/{form}", func(r chi.Router) {
			r.With(s.cached).Get("/", s.getForm)
			r.Post("/validate", s.validate)
			r.Post("/records", s.createRecord)
			r.Get("/records/{id}", s.getRecord)
			r.Put("/records/{id}", s.updateRecord)
		})
	})
	if s.audit != nil {
		r.Mount("/api/audit/v1", audit.Router(s.audit))
	}
	return r
}

func (s *Server) cached(next http.Handler) http.Handler {
	if s.cache == nil {
		return next
	}
	return cache.Middleware(s.cache)(next)
}

// session is one open form: a mapper with its controls, the inline messages
// it raised and the host dialogs it asked for.
type session struct {
	mapper   *form.Mapper
	controls formdef.Controls
	bar      *notify.Bar
	host     *responseHost
}

func (s *Server) open(ctx context.Context, name string, model any) (*session, error) {
	bar := notify.NewBar(s.logger)
	host := &responseHost{}
	m, controls, err := s.Forms().NewForm(name, s.registry, model, s.store,
		form.WithNotifier(bar),
		form.WithHost(host),
		form.WithLogger(s.logger.With("request_id", middleware.GetReqID(ctx))),
	)
	if err != nil {
		return nil, err
	}
	return &session{mapper: m, controls: controls, bar: bar, host: host}, nil
}

// fill writes client values into the controls of the session.
func (ss *session) fill(values map[string]any) error {
	for attr, v := range values {
		b := ss.mapper.Binding(attr)
		if b == nil {
			return fmt.Errorf("form has no field %q", attr)
		}
		if err := b.Adapter().SetValue(v); err != nil {
			return fmt.Errorf("field %q: %w", attr, err)
		}
	}
	return nil
}

// failed reports whether the session hit a storage problem rather than a
// validation one.
func (ss *session) failed() bool {
	return len(ss.host.Criticals) > 0 || len(ss.bar.Messages(notify.Error)) > 0
}
