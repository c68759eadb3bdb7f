// Package api exposes the generation service over HTTP.
//
// Routes:
//
//	POST /v1/generate/{kind}    caption, post or story
//	POST /v1/voiceover          voice-over, audio base64 encoded in JSON
//	GET  /v1/credits            remaining and total credits
//	GET  /v1/history            list (?kind=&limit=)
//	GET  /v1/history/export     download (?format=csv|json|txt|md)
//	GET  /v1/history/{id}       one record
//	GET  /v1/providers          configured providers and credential status
//	GET  /healthz, /readyz      probes
//	GET  /metrics               Prometheus scrape endpoint
//
// Every /v1 route requires a bearer token unless the server runs in
// single-user mode.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/SAZZAD-404/vidpilot/internal/config"
	"github.com/SAZZAD-404/vidpilot/internal/credits"
	"github.com/SAZZAD-404/vidpilot/internal/export"
	"github.com/SAZZAD-404/vidpilot/internal/health"
	"github.com/SAZZAD-404/vidpilot/internal/history"
	"github.com/SAZZAD-404/vidpilot/internal/observe"
	"github.com/SAZZAD-404/vidpilot/pkg/content"
)

// maxBody caps request bodies; voice-over scripts are the largest input.
const maxBody = 1 << 20

var errBadBody = errors.New("invalid request body")

// Generator is the generation service the API fronts.
type Generator interface {
	Text(ctx context.Context, userID string, req content.Request) (content.Result, error)
	Voice(ctx context.Context, userID string, req content.VoiceRequest) (content.VoiceResult, error)
	Balance(ctx context.Context, userID string) (credits.Balance, error)
}

// Server holds the API dependencies.
type Server struct {
	gen       Generator
	history   history.Store
	auth      *Authenticator
	providers func() []config.ProviderStatus
	health    *health.Handler
	metrics   *observe.Metrics
	metricsH  http.Handler
	now       func() time.Time
}

// Option configures a [Server].
type Option func(*Server)

// WithHealth mounts the health probes.
func WithHealth(h *health.Handler) Option {
	return func(s *Server) { s.health = h }
}

// WithProviders sets the source of the /v1/providers listing.
func WithProviders(fn func() []config.ProviderStatus) Option {
	return func(s *Server) { s.providers = fn }
}

// WithMetrics sets the metrics used by the request middleware.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithMetricsHandler mounts h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metricsH = h }
}

// WithClock sets the time used for export file names.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New returns a Server. hist may be nil, in which case history routes
// answer 404.
func New(gen Generator, hist history.Store, auth *Authenticator, opts ...Option) *Server {
	s := &Server{gen: gen, history: hist, auth: auth, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	if s.auth == nil {
		s.auth = NewAuthenticator("", "", "")
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	return s
}

// Handler returns the root handler with tracing, metrics and request logs.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	v1 := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, s.auth.Middleware(h))
	}
	v1("POST /v1/generate/{kind}", s.handleGenerate)
	v1("POST /v1/voiceover", s.handleVoice)
	v1("GET /v1/credits", s.handleCredits)
	v1("GET /v1/history", s.handleHistory)
	v1("GET /v1/history/export", s.handleExport)
	v1("GET /v1/history/{id}", s.handleRecord)
	v1("GET /v1/providers", s.handleProviders)

	if s.health != nil {
		s.health.Register(mux)
	}
	if s.metricsH != nil {
		mux.Handle("GET /metrics", s.metricsH)
	}
	return observe.Middleware(s.metrics)(mux)
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadBody, err)
	}
	return nil
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req content.Request
	if err := decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	req.Kind = content.Kind(r.PathValue("kind"))
	res, err := s.gen.Text(r.Context(), UserFrom(r.Context()), req)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleVoice(w http.ResponseWriter, r *http.Request) {
	var req content.VoiceRequest
	if err := decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	res, err := s.gen.Voice(r.Context(), UserFrom(r.Context()), req)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCredits(w http.ResponseWriter, r *http.Request) {
	bal, err := s.gen.Balance(r.Context(), UserFrom(r.Context()))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bal)
}

// listOptions parses ?kind= and ?limit=.
func listOptions(r *http.Request) (history.ListOptions, error) {
	q := r.URL.Query()
	opts := history.ListOptions{Kind: content.Kind(q.Get("kind"))}
	if opts.Kind != "" && !opts.Kind.IsText() {
		return opts, fmt.Errorf("%w: unknown kind %q", content.ErrInvalidRequest, opts.Kind)
	}
	if l := q.Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 0 {
			return opts, fmt.Errorf("%w: limit %q", content.ErrInvalidRequest, l)
		}
		opts.Limit = n
	}
	return opts, nil
}

func (s *Server) records(w http.ResponseWriter, r *http.Request, opts history.ListOptions) ([]history.Record, bool) {
	if s.history == nil {
		fail(w, r, history.ErrNotFound)
		return nil, false
	}
	recs, err := s.history.List(r.Context(), UserFrom(r.Context()), opts)
	if err != nil {
		fail(w, r, err)
		return nil, false
	}
	return recs, true
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	opts, err := listOptions(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	recs, ok := s.records(w, r, opts)
	if !ok {
		return
	}
	if recs == nil {
		recs = []history.Record{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		fail(w, r, err)
		return
	}
	opts, err := listOptions(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	if opts.Limit == 0 {
		opts.Limit = history.MaxLimit
	}
	recs, ok := s.records(w, r, opts)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", format.Filename(s.now())))
	if err := export.Write(w, format, recs); err != nil {
		// Headers are gone; all that is left is to log.
		observe.Logger(r.Context()).Error("export failed", "format", format, "err", err)
	}
}

func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		fail(w, r, history.ErrNotFound)
		return
	}
	rec, err := s.history.Get(r.Context(), r.PathValue("id"))
	if err == nil && rec.UserID != UserFrom(r.Context()) {
		err = history.ErrNotFound
	}
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	list := []config.ProviderStatus{}
	if s.providers != nil {
		list = append(list, s.providers()...)
	}
	writeJSON(w, http.StatusOK, map[string]any{"providers": list})
}
