// Package testutil provides testing utilities for the prerender cache.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// MockPage defines how the mock renderer answers for one page URL.
type MockPage struct {
	StatusCode int
	Body       string
	Delay      time.Duration
}

// MockRenderer is a configurable mock rendering service for testing.
// It answers GET /<page-url> like a prerender renderer.
type MockRenderer struct {
	server *httptest.Server
	mu     sync.RWMutex
	pages  map[string]MockPage

	// Tracking
	requests      map[string]int
	lastUserAgent string
}

// NewMockRenderer creates a new mock renderer.
func NewMockRenderer() *MockRenderer {
	mock := &MockRenderer{
		pages:    make(map[string]MockPage),
		requests: make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pageURL := strings.TrimPrefix(r.RequestURI, "/")

		mock.mu.Lock()
		mock.requests[pageURL]++
		mock.lastUserAgent = r.Header.Get("User-Agent")
		page, exists := mock.pages[pageURL]
		mock.mu.Unlock()

		if !exists {
			page = MockPage{StatusCode: http.StatusOK, Body: DefaultHTML(pageURL)}
		}

		if page.Delay > 0 {
			time.Sleep(page.Delay)
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(page.StatusCode)
		if page.Body != "" {
			w.Write([]byte(page.Body))
		}
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockRenderer) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockRenderer) Close() {
	m.server.Close()
}

// SetPage configures the response for a page URL.
func (m *MockRenderer) SetPage(pageURL string, page MockPage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[pageURL] = page
}

// Renders returns how many times a page URL was rendered.
func (m *MockRenderer) Renders(pageURL string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requests[pageURL]
}

// LastUserAgent returns the User-Agent of the most recent request.
func (m *MockRenderer) LastUserAgent() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastUserAgent
}

// Reset clears all tracking counters.
func (m *MockRenderer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = make(map[string]int)
	m.lastUserAgent = ""
}

// DefaultHTML is the page the mock renders for unconfigured URLs.
func DefaultHTML(pageURL string) string {
	return "<html><body>rendered " + pageURL + "</body></html>"
}

// NewNotFoundPage creates a 404 page.
func NewNotFoundPage() MockPage {
	return MockPage{
		StatusCode: http.StatusNotFound,
		Body:       "<html><body>not found</body></html>",
	}
}

// NewServerErrorPage creates a 500 page.
func NewServerErrorPage() MockPage {
	return MockPage{
		StatusCode: http.StatusInternalServerError,
		Body:       "<html><body>error</body></html>",
	}
}
