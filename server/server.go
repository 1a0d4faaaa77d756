package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"

	"github.com/cyp0633/libslots/datetime"
	"github.com/cyp0633/libslots/recurrence"
	"github.com/cyp0633/libslots/server/auth"
	"github.com/cyp0633/libslots/slot"
	"github.com/cyp0633/libslots/storage"
)

const (
	// HTTP headers
	headerContentType = "Content-Type"

	// MIME types
	mimeTypeJSON     = "application/json; charset=utf-8"
	mimeTypeCalendar = "text/calendar; charset=utf-8"

	defaultMaxBodyBytes = 1 << 20
)

// Server serves recurrence previews, slot listings and the slot mutations.
type Server struct {
	storage   storage.Storage
	engine    *recurrence.Engine
	cal       datetime.Calendar
	formatter *slot.Formatter
	config    HandlerConfig
	logger    *slog.Logger
	mux       *http.ServeMux
	handler   http.Handler
}

// New creates a server on store. The engine's calendar decides the zone of
// every timestamp the server reads or writes.
func New(store storage.Storage, engine *recurrence.Engine, opts ...Option) (*Server, error) {
	if store == nil {
		return nil, fmt.Errorf("storage is required")
	}
	if engine == nil {
		return nil, fmt.Errorf("recurrence engine is required")
	}

	var config HandlerConfig
	for _, opt := range opts {
		opt(&config)
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if config.Locale == "" {
		config.Locale = slot.LocaleJapanese
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = defaultMaxBodyBytes
	}

	s := &Server{
		storage:   store,
		engine:    engine,
		cal:       engine.Calendar(),
		formatter: slot.NewFormatter(engine.Calendar(), config.Locale),
		config:    config,
		logger:    config.Logger,
		mux:       http.NewServeMux(),
	}

	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("POST /api/recurrence/preview", s.handlePreview)
	s.mux.HandleFunc("POST /api/recurrence/preview.ics", s.handlePreviewICS)
	s.mux.HandleFunc("GET /api/opportunities/{id}/slots", s.handleListSlots)
	s.mux.HandleFunc("POST /graphql", s.handleGraphQL)

	s.handler = s.mux
	if config.Authenticator != nil {
		s.handler = auth.Middleware(config.Authenticator, config.Realm, "/health")(s.mux)
	}

	return s, nil
}

// ServeHTTP implements http.Handler interface
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.logger.Info("received request",
		"method", r.Method,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr)

	for k, v := range s.config.CustomHeaders {
		w.Header().Set(k, v)
	}

	s.handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decodeJSON reads a JSON request body into v.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if ct := r.Header.Get(headerContentType); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil || mediaType != "application/json" {
			return ErrUnsupportedType
		}
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return &HTTPError{Status: http.StatusRequestEntityTooLarge, Message: "Request body too large"}
		}
		return badRequest("Invalid JSON body", err)
	}
	return nil
}
