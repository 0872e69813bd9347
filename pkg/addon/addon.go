package addon

import (
	"context"
	"net/url"

	"github.com/ogero/stremio-addon-sdk/pkg/stremio"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Addon is the sealed addon: a frozen manifest and its resource handlers.
// It is safe for concurrent use.
type Addon struct {
	manifest stremio.Manifest
	handlers map[stremio.Resource]Handler
}

// Manifest returns the validated manifest. Callers must treat it as read-only.
func (a *Addon) Manifest() stremio.Manifest {
	return a.manifest
}

// Get dispatches q to the handler registered for q.Resource and returns its
// result unmodified. A resource without handler yields a *NoHandlerError.
func (a *Addon) Get(ctx context.Context, q stremio.Query) (stremio.Result, error) {
	handler, ok := a.handlers[q.Resource]
	if !ok {
		return nil, &NoHandlerError{Resource: q.Resource}
	}

	ctx, span := trace.SpanFromContext(ctx).TracerProvider().Tracer("").Start(ctx, "addon.Addon.Get")
	defer span.End()
	span.SetAttributes(
		attribute.String("addon.resource", string(q.Resource)),
		attribute.String("addon.type", string(q.Type)),
		attribute.String("addon.id", q.ID),
	)

	args := Args{
		Type:   q.Type,
		ID:     q.ID,
		Extra:  q.Extra,
		Config: q.Config,
	}
	if args.Extra == nil {
		args.Extra = url.Values{}
	}
	if args.Config == nil {
		args.Config = map[string]any{}
	}

	res, err := handler(ctx, args)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "handler failed")
	}
	return res, err
}
