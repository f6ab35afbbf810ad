// Package prerender defines the contract between a prerendering pipeline and
// the plugins it runs.
//
// A pipeline calls RequestReceived on every plugin before a page is rendered
// and PageLoaded after rendering completes. A plugin either calls next to let
// the pipeline proceed, or answers the request itself through the
// ResponseWriter, which stops the pipeline.
package prerender

import (
	"context"
	"net/http"
	"time"
)

// Request is a render request as it travels through the pipeline.
type Request struct {
	// Method is the HTTP method of the incoming request.
	Method string

	// URL is the page to render.
	URL string

	// ReceivedAt is when the pipeline accepted the request.
	ReceivedAt time.Time

	// StatusCode is the status the renderer produced. Zero before rendering.
	StatusCode int

	// Content is the rendered page. Empty before rendering.
	Content []byte
}

// Elapsed returns the time since the request was received,
// or 0 if ReceivedAt is unset.
func (r *Request) Elapsed() time.Duration {
	if r.ReceivedAt.IsZero() {
		return 0
	}
	return time.Since(r.ReceivedAt)
}

// IsRead reports whether the request is a GET.
func (r *Request) IsRead() bool {
	return r.Method == http.MethodGet
}

// ResponseWriter lets a plugin answer a request directly.
type ResponseWriter interface {
	// Send writes the response. The pipeline does not continue afterwards.
	Send(statusCode int, body []byte)
}

// Next resumes the pipeline.
type Next func()

// Plugin is implemented by anything that hooks into the pipeline.
type Plugin interface {
	// RequestReceived runs before rendering.
	RequestReceived(ctx context.Context, req *Request, res ResponseWriter, next Next)

	// PageLoaded runs after rendering, with req.StatusCode and req.Content set.
	PageLoaded(ctx context.Context, req *Request, res ResponseWriter, next Next)
}
