package transport

import (
	"net/http"
)

// HeaderOption sets a header on every outgoing request.
type HeaderOption func(h http.Header)

type headersRoundTripper struct {
	next    http.RoundTripper
	options []HeaderOption
}

// NewHeadersRoundTripper returns a RoundTripper that applies opts to a clone
// of each request before passing it to next. A nil next means
// http.DefaultTransport.
func NewHeadersRoundTripper(next http.RoundTripper, opts ...HeaderOption) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return &headersRoundTripper{next: next, options: opts}
}

func (rt *headersRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for _, opt := range rt.options {
		opt(req.Header)
	}
	return rt.next.RoundTrip(req)
}

// WithHeader sets key to value.
func WithHeader(key, value string) HeaderOption {
	return func(h http.Header) {
		h.Set(key, value)
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(userAgent string) HeaderOption {
	return WithHeader("User-Agent", userAgent)
}

// WithAcceptLanguage sets the Accept-Language header.
func WithAcceptLanguage(acceptLanguage string) HeaderOption {
	return WithHeader("Accept-Language", acceptLanguage)
}

// WithJSON declares JSON request and response bodies.
func WithJSON() HeaderOption {
	return func(h http.Header) {
		h.Set("Accept", "application/json")
		h.Set("Content-Type", "application/json")
	}
}
