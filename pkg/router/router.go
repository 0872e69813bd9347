package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ogero/stremio-addon-sdk/pkg/addon"
	"github.com/ogero/stremio-addon-sdk/pkg/stremio"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ContentTypeJSON is the content type of every JSON body the router produces.
const ContentTypeJSON = "application/json; charset=utf-8"

var (
	errResourceNotFound = []byte(`{"err":"resource not found"}`)
	errHandler          = []byte(`{"err":"handler error"}`)
)

// Interface is the addon the router dispatches to. *addon.Addon implements it.
type Interface interface {
	Manifest() stremio.Manifest
	Get(ctx context.Context, q stremio.Query) (stremio.Result, error)
}

// Request is the transport independent HTTP request consumed by the router.
// URL must keep its raw (escaped) path.
type Request struct {
	Method string
	URL    *url.URL
	Header http.Header
	Body   io.Reader
}

// Response is the transport independent HTTP response produced by the router.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Option configures a Router.
type Option func(*Router)

// WithStrictResourceMatching controls what happens to requests for resources
// the manifest does not declare: when strict (the default) they get a 404
// {"err":"resource not found"}, otherwise they fall through.
func WithStrictResourceMatching(strict bool) Option {
	return func(rt *Router) {
		rt.strict = strict
	}
}

// WithLogger sets the logger used to report handler failures.
func WithLogger(logger *slog.Logger) Option {
	return func(rt *Router) {
		rt.logger = logger
	}
}

// Router maps addon protocol requests to responses. It holds no per-request
// state and is safe for concurrent use.
type Router struct {
	iface  Interface
	strict bool
	logger *slog.Logger

	hasConfig     bool
	declared      []stremio.Resource
	manifestBody  []byte
	sanitizedBody []byte
	sanitize      bool
}

// New creates a Router for iface. The manifest is serialized once here.
func New(iface Interface, opts ...Option) (*Router, error) {
	rt := &Router{
		iface:  iface,
		strict: true,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(rt)
	}

	manifest := iface.Manifest()
	rt.hasConfig = manifest.HasConfig()
	rt.declared = manifest.DeclaredResources()

	var err error
	rt.manifestBody, err = json.Marshal(manifest)
	if err != nil {
		return nil, fmt.Errorf("failed to json.Marshal manifest: %w", err)
	}

	if hints := manifest.BehaviorHints; hints != nil && (hints.Configurable || hints.ConfigurationRequired) {
		rt.sanitize = true
		rt.sanitizedBody, err = json.Marshal(manifest.Sanitized())
		if err != nil {
			return nil, fmt.Errorf("failed to json.Marshal sanitized manifest: %w", err)
		}
	}

	return rt, nil
}

// Route answers req. It returns nil when req does not match any addon route,
// so the caller can try another handler or answer 404 itself.
func (rt *Router) Route(ctx context.Context, req *Request) *Response {
	if req == nil || req.URL == nil {
		return nil
	}
	if req.Method != "" && req.Method != http.MethodGet && req.Method != http.MethodHead {
		return nil
	}

	segments, ok := splitPath(req.URL.EscapedPath())
	if !ok {
		return nil
	}

	if config, ok := rt.matchManifest(segments); ok {
		return rt.manifestResponse(config)
	}

	p, ok := rt.matchResource(segments)
	if !ok {
		return nil
	}

	ctx, span := trace.SpanFromContext(ctx).TracerProvider().Tracer("").Start(ctx, "router.Router.Route")
	defer span.End()
	span.SetAttributes(
		attribute.String("params.resource", p.resource),
		attribute.String("params.type", p.typ),
		attribute.String("params.id", p.id),
	)

	res := rt.dispatch(ctx, p)
	if res != nil {
		span.SetAttributes(attribute.Int("http.response.status_code", res.Status))
	}
	return res
}

func (rt *Router) manifestResponse(config string) *Response {
	body := rt.manifestBody
	if config != "" && rt.sanitize {
		body = rt.sanitizedBody
	}
	return jsonResponse(http.StatusOK, body)
}

func (rt *Router) dispatch(ctx context.Context, p params) *Response {
	span := trace.SpanFromContext(ctx)

	resource, known := stremio.ParseResource(p.resource)
	if rt.strict && !(known && lo.Contains(rt.declared, resource)) {
		return jsonResponse(http.StatusNotFound, errResourceNotFound)
	}
	if !known {
		return nil
	}

	q := stremio.Query{
		Resource: resource,
		Type:     stremio.ContentType(p.typ),
		ID:       p.id,
		Extra:    parseExtra(p.rawExtra),
		Config:   parseConfig(p.config),
	}

	res, err := rt.get(ctx, q)
	if errors.Is(err, addon.ErrNoHandler) {
		return nil
	}
	if err == nil && res == nil {
		err = errors.New("handler returned no result")
	}
	if err != nil {
		rt.logger.ErrorContext(ctx, "Failed to addon.Get", "err", err,
			"resource", q.Resource, "type", q.Type, "id", q.ID)
		span.RecordError(err)
		span.SetStatus(codes.Error, "handler error")
		return jsonResponse(http.StatusInternalServerError, errHandler)
	}

	directives := stremio.DirectivesOf(res)
	if directives.Redirect != "" {
		return &Response{
			Status: http.StatusTemporaryRedirect,
			Header: http.Header{"Location": {directives.Redirect}},
		}
	}

	body, err := json.Marshal(res)
	if err != nil {
		rt.logger.ErrorContext(ctx, "Failed to json.Marshal handler result", "err", err,
			"resource", q.Resource, "type", q.Type, "id", q.ID)
		span.RecordError(err)
		return jsonResponse(http.StatusInternalServerError, errHandler)
	}

	resp := jsonResponse(http.StatusOK, body)
	if cc := CacheControl(directives); cc != "" {
		resp.Header.Set("Cache-Control", cc)
	}
	return resp
}

// get calls the addon, turning a handler panic into an error.
func (rt *Router) get(ctx context.Context, q stremio.Query) (res stremio.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("handler panic: %v", r)
		}
	}()
	return rt.iface.Get(ctx, q)
}

// CacheControl renders the Cache-Control header value for d, or "" when d
// carries no cache directive.
func CacheControl(d stremio.Directives) string {
	var parts []string
	add := func(name string, seconds *int) {
		if seconds != nil && *seconds >= 0 {
			parts = append(parts, name+"="+strconv.Itoa(*seconds))
		}
	}
	add("max-age", d.CacheMaxAge)
	add("stale-while-revalidate", d.StaleRevalidate)
	add("stale-if-error", d.StaleError)

	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, ", ") + ", public"
}

func jsonResponse(status int, body []byte) *Response {
	return &Response{
		Status: status,
		Header: http.Header{"Content-Type": {ContentTypeJSON}},
		Body:   body,
	}
}
