// Package render fetches rendered pages from an upstream rendering service.
package render

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for render operations.
var (
	renderRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prerender_render_requests_total",
		Help: "Total render requests by status",
	}, []string{"status"})

	renderDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "prerender_render_duration_seconds",
		Help:    "Render duration in seconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	})
)

// Client renders pages through an upstream rendering service.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger
}

// Config holds the renderer configuration.
type Config struct {
	// BaseURL of the rendering service. Pages are fetched from
	// BaseURL + "/" + pageURL. Empty fetches the page directly.
	BaseURL string

	// User-Agent header sent upstream
	UserAgent string

	// Timeout per render
	Timeout time.Duration

	// MaxBodyBytes caps the rendered page size
	MaxBodyBytes int64
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:      baseURL,
		UserAgent:    "prerender-cache/0.1.0",
		Timeout:      30 * time.Second,
		MaxBodyBytes: 10 << 20,
	}
}

// New creates a new renderer client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL != "" {
		u, err := url.Parse(cfg.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, fmt.Errorf("renderer url must be an absolute http(s) url (got %q)", cfg.BaseURL)
		}
	}

	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be > 0 (got %s)", cfg.Timeout)
	}

	if cfg.MaxBodyBytes <= 0 {
		return nil, fmt.Errorf("max_body_bytes must be > 0 (got %d)", cfg.MaxBodyBytes)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		config: cfg,
		logger: log.With().Str("component", "renderer").Logger(),
	}, nil
}

// Render fetches the rendered page and returns its status and body.
// Non-2xx statuses are not errors; transport failures are.
func (c *Client) Render(ctx context.Context, pageURL string) (int, []byte, error) {
	startTime := time.Now()
	defer func() {
		renderDuration.Observe(time.Since(startTime).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.target(pageURL), nil)
	if err != nil {
		renderRequestsTotal.WithLabelValues("error").Inc()
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Str("url", pageURL).Msg("Render request failed")
		renderRequestsTotal.WithLabelValues("error").Inc()
		return 0, nil, fmt.Errorf("render %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.config.MaxBodyBytes+1))
	if err != nil {
		renderRequestsTotal.WithLabelValues("error").Inc()
		return 0, nil, fmt.Errorf("read rendered page: %w", err)
	}
	if int64(len(body)) > c.config.MaxBodyBytes {
		renderRequestsTotal.WithLabelValues("error").Inc()
		return 0, nil, fmt.Errorf("rendered page exceeds %d bytes", c.config.MaxBodyBytes)
	}

	renderRequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()
	c.logger.Debug().
		Str("url", pageURL).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(startTime)).
		Msg("Page rendered")

	return resp.StatusCode, body, nil
}

func (c *Client) target(pageURL string) string {
	if c.config.BaseURL == "" {
		return pageURL
	}
	return strings.TrimRight(c.config.BaseURL, "/") + "/" + pageURL
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
