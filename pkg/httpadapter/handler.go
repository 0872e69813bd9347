package httpadapter

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/cors"
	"github.com/ogero/stremio-addon-sdk/pkg/router"
)

var errNotFound = []byte(`{"err":"not found"}`)

// Option configures the handler returned by Handler.
type Option func(*options)

type options struct {
	cacheMaxAge *int
	cors        bool
	logger      *slog.Logger
}

// WithCacheMaxAge sets "Cache-Control: max-age=N, public" on successful
// responses that carry no Cache-Control of their own.
func WithCacheMaxAge(seconds int) Option {
	return func(o *options) {
		o.cacheMaxAge = &seconds
	}
}

// WithoutCORS disables the default permissive CORS handling.
func WithoutCORS() Option {
	return func(o *options) {
		o.cors = false
	}
}

// WithLogger sets the logger used to report response write failures.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

/*
Handler serves the addon protocol on net/http.

Requests the router does not match are passed to next. When next is nil
they are answered with 404 {"err":"not found"}.

By default any origin may call the addon with GET, HEAD and OPTIONS.
*/
func Handler(rt *router.Router, next http.Handler, opts ...Option) http.Handler {
	o := options{cors: true, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	if next == nil {
		next = http.HandlerFunc(notFound)
	}

	var h http.Handler = &handler{router: rt, next: next, opts: o}
	if o.cors {
		h = cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
			AllowedHeaders: []string{
				"Content-Type",
				"X-Requested-With",
				"Accept",
				"Accept-Language",
				"Accept-Encoding",
				"Content-Language",
				"Origin",
			},
			MaxAge: 300,
		})(h)
	}
	return h
}

type handler struct {
	router *router.Router
	next   http.Handler
	opts   options
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	resp := h.router.Route(ctx, &router.Request{
		Method: r.Method,
		URL:    r.URL,
		Header: r.Header,
		Body:   r.Body,
	})
	if resp == nil {
		h.next.ServeHTTP(w, r)
		return
	}

	header := w.Header()
	for k, v := range resp.Header {
		header[k] = v
	}
	if h.opts.cacheMaxAge != nil && resp.Status >= 200 && resp.Status < 300 && header.Get("Cache-Control") == "" {
		header.Set("Cache-Control", "max-age="+strconv.Itoa(*h.opts.cacheMaxAge)+", public")
	}
	if len(resp.Body) > 0 {
		header.Set("Content-Length", strconv.Itoa(len(resp.Body)))
	}

	w.WriteHeader(resp.Status)
	if r.Method == http.MethodHead || len(resp.Body) == 0 {
		return
	}
	if _, err := w.Write(resp.Body); err != nil {
		h.opts.logger.WarnContext(ctx, "Failed to write response", "err", err)
	}
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", router.ContentTypeJSON)
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write(errNotFound)
}
