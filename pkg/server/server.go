// Package server runs prerender plugins around a renderer and serves the
// result over HTTP.
//
// Requests have the form GET /<page-url>, for example
// GET /https://example.com/products?id=1.
package server

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/johnnybui/prerender-redis-cache/pkg/metrics"
	"github.com/johnnybui/prerender-redis-cache/pkg/prerender"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Renderer produces the rendered page for a URL.
type Renderer interface {
	Render(ctx context.Context, pageURL string) (statusCode int, content []byte, err error)
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is a prerender pipeline.
type Server struct {
	renderer Renderer
	plugins  []prerender.Plugin
	ready    Pinger
	logger   zerolog.Logger
}

// New creates a pipeline that runs plugins, in order, around renderer.
func New(renderer Renderer, plugins ...prerender.Plugin) *Server {
	if renderer == nil {
		panic("renderer cannot be nil")
	}
	return &Server{
		renderer: renderer,
		plugins:  plugins,
		logger:   log.With().Str("component", "server").Logger(),
	}
}

// SetReadiness sets the dependency checked by /ready.
func (s *Server) SetReadiness(p Pinger) {
	s.ready = p
}

// response collects the first answer a plugin sends.
type response struct {
	sent   bool
	status int
	body   []byte
}

func (r *response) Send(status int, body []byte) {
	if r.sent {
		return
	}
	r.sent = true
	r.status = status
	r.body = body
}

// hook invokes one plugin hook with the given continuation.
type hook func(p prerender.Plugin, next prerender.Next)

// run calls h on each plugin until one responds or fails to continue.
// It reports whether every plugin continued.
func (s *Server) run(h hook, res *response) bool {
	for _, p := range s.plugins {
		proceed := false
		h(p, func() { proceed = true })

		if res.sent {
			return false
		}
		if !proceed {
			s.logger.Warn().Str("plugin", fmt.Sprintf("%T", p)).Msg("Plugin neither continued nor responded")
			res.Send(http.StatusGatewayTimeout, nil)
			return false
		}
	}
	return true
}

// Handle runs the pipeline for req and returns the status and body to send.
func (s *Server) Handle(ctx context.Context, req *prerender.Request) (int, []byte) {
	if req.ReceivedAt.IsZero() {
		req.ReceivedAt = time.Now()
	}
	res := &response{}

	if !s.run(func(p prerender.Plugin, next prerender.Next) {
		p.RequestReceived(ctx, req, res, next)
	}, res) {
		return res.status, res.body
	}

	status, content, err := s.renderer.Render(ctx, req.URL)
	if err != nil {
		s.logger.Warn().Err(err).Str("url", req.URL).Msg("Render failed")
		status, content = http.StatusGatewayTimeout, nil
	}
	req.StatusCode = status
	req.Content = content

	if !s.run(func(p prerender.Plugin, next prerender.Next) {
		p.PageLoaded(ctx, req, res, next)
	}, res) {
		return res.status, res.body
	}

	return req.StatusCode, req.Content
}

// Handler returns the HTTP handler: /health, /ready, /metrics, and
// /<page-url> for everything else.
//
// Routing is done by hand because http.ServeMux cleans the "//" in
// embedded page URLs and redirects.
func (s *Server) Handler() http.Handler {
	metricsHandler := metrics.Handler()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			s.healthHandler(w, r)
		case "/ready":
			s.readyHandler(w, r)
		case "/metrics":
			metricsHandler.ServeHTTP(w, r)
		default:
			s.renderHandler(w, r)
		}
	})
}

func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) readyHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")

	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := s.ready.Ping(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("Readiness check failed")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("UNAVAILABLE"))
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) renderHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	pageURL, err := ParsePageURL(r.RequestURI)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	req := &prerender.Request{
		Method:     r.Method,
		URL:        pageURL,
		ReceivedAt: time.Now(),
	}

	status, body := s.Handle(r.Context(), req)

	s.logger.Info().
		Str("url", pageURL).
		Int("status", status).
		Dur("duration", req.Elapsed()).
		Msg("Request served")

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if r.Method != http.MethodHead && len(body) > 0 {
		if _, err := w.Write(body); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to write response")
		}
	}
}

// ParsePageURL extracts the page URL from a request URI of the form
// /<page-url>. The page URL must be an absolute http or https URL.
func ParsePageURL(requestURI string) (string, error) {
	raw := strings.TrimPrefix(requestURI, "/")
	if raw == "" {
		return "", fmt.Errorf("missing page url")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid page url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("page url must be an absolute http(s) url (got %q)", raw)
	}

	return raw, nil
}
