package addon

import (
	"context"
	"log/slog"
	"net/url"
	"sync"

	"github.com/ogero/stremio-addon-sdk/pkg/stremio"
	"github.com/ogero/stremio-addon-sdk/pkg/validation"
	"github.com/samber/lo"
)

// Args are passed to every resource handler.
type Args struct {
	Type stremio.ContentType
	ID   string
	// Extra holds extra properties such as search, genre or skip. Never nil.
	Extra url.Values
	// Config holds the user configuration. Never nil.
	Config map[string]any
}

// Handler answers the queries of one resource.
type Handler func(ctx context.Context, args Args) (stremio.Result, error)

type (
	// CatalogHandler answers catalog queries; args.ID is the catalog id.
	CatalogHandler func(ctx context.Context, args Args) (stremio.MetasResponse, error)
	// MetaHandler answers meta queries.
	MetaHandler func(ctx context.Context, args Args) (stremio.MetaResponse, error)
	// StreamHandler answers stream queries.
	StreamHandler func(ctx context.Context, args Args) (stremio.StreamsResponse, error)
	// SubtitlesHandler answers subtitles queries.
	SubtitlesHandler func(ctx context.Context, args Args) (stremio.SubtitlesResponse, error)
	// AddonCatalogHandler answers addon_catalog queries.
	AddonCatalogHandler func(ctx context.Context, args Args) (stremio.AddonsResponse, error)
)

// Option configures a Builder.
type Option func(*options)

type options struct {
	schema      validation.Schema
	strict      bool
	consistency bool
	logger      *slog.Logger
}

// WithSchema validates the manifest with schema when the builder is created.
func WithSchema(schema validation.Schema) Option {
	return func(o *options) {
		o.schema = schema
	}
}

// WithConsistencyCheck makes Interface fail unless the registered handlers
// match the resources the manifest declares.
func WithConsistencyCheck() Option {
	return func(o *options) {
		o.consistency = true
	}
}

// WithStrictValidation validates the manifest with the lint profile over the
// JSON Schema and enables the consistency check.
func WithStrictValidation() Option {
	return func(o *options) {
		o.strict = true
		o.consistency = true
	}
}

// WithLogger sets the logger used for validation warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Builder registers resource handlers for a manifest and seals them into an Addon.
type Builder struct {
	manifest stremio.Manifest
	opts     options

	mu       sync.Mutex
	handlers map[stremio.Resource]Handler
	order    []stremio.Resource
	addon    *Addon
}

// NewBuilder validates manifest when a schema is configured and returns a
// Builder holding a private copy of it.
func NewBuilder(manifest stremio.Manifest, opts ...Option) (*Builder, error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.strict {
		o.schema = validation.LintSchema(validation.JSONSchema(), o.logger)
	}

	m := manifest.Clone()
	if o.schema != nil {
		validated, err := validation.Validate(o.schema, m)
		if err != nil {
			return nil, &InvalidManifestError{Err: err}
		}
		m = validated.Clone()
	}

	return &Builder{
		manifest: m,
		opts:     o,
		handlers: make(map[stremio.Resource]Handler),
	}, nil
}

// NewStrictBuilder is NewBuilder with WithStrictValidation.
func NewStrictBuilder(manifest stremio.Manifest, opts ...Option) (*Builder, error) {
	return NewBuilder(manifest, append(opts, WithStrictValidation())...)
}

// DefineResourceHandler registers handler for resource. A resource accepts a single handler.
func (b *Builder) DefineResourceHandler(resource stremio.Resource, handler Handler) error {
	if _, ok := stremio.ParseResource(string(resource)); !ok {
		return &UnknownResourceError{Resource: resource}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.addon != nil {
		return ErrSealed
	}
	if _, ok := b.handlers[resource]; ok {
		return &DuplicateHandlerError{Resource: resource}
	}
	b.handlers[resource] = handler
	b.order = append(b.order, resource)
	return nil
}

// DefineCatalogHandler registers the catalog handler.
func (b *Builder) DefineCatalogHandler(handler CatalogHandler) error {
	return b.DefineResourceHandler(stremio.ResourceCatalog, func(ctx context.Context, args Args) (stremio.Result, error) {
		res, err := handler(ctx, args)
		if res.Metas == nil {
			res.Metas = []stremio.MetaPreview{}
		}
		return res, err
	})
}

// DefineMetaHandler registers the meta handler.
func (b *Builder) DefineMetaHandler(handler MetaHandler) error {
	return b.DefineResourceHandler(stremio.ResourceMeta, func(ctx context.Context, args Args) (stremio.Result, error) {
		return handler(ctx, args)
	})
}

// DefineStreamHandler registers the stream handler.
func (b *Builder) DefineStreamHandler(handler StreamHandler) error {
	return b.DefineResourceHandler(stremio.ResourceStream, func(ctx context.Context, args Args) (stremio.Result, error) {
		res, err := handler(ctx, args)
		if res.Streams == nil {
			res.Streams = []stremio.Stream{}
		}
		return res, err
	})
}

// DefineSubtitlesHandler registers the subtitles handler.
func (b *Builder) DefineSubtitlesHandler(handler SubtitlesHandler) error {
	return b.DefineResourceHandler(stremio.ResourceSubtitles, func(ctx context.Context, args Args) (stremio.Result, error) {
		res, err := handler(ctx, args)
		if res.Subtitles == nil {
			res.Subtitles = []stremio.Subtitle{}
		}
		return res, err
	})
}

// DefineAddonCatalogHandler registers the addon_catalog handler.
func (b *Builder) DefineAddonCatalogHandler(handler AddonCatalogHandler) error {
	return b.DefineResourceHandler(stremio.ResourceAddonCatalog, func(ctx context.Context, args Args) (stremio.Result, error) {
		res, err := handler(ctx, args)
		if res.Addons == nil {
			res.Addons = []stremio.AddonCatalogItem{}
		}
		return res, err
	})
}

// Interface seals the builder and returns the Addon. With the consistency
// check enabled it fails with a *ConsistencyError when handlers and manifest
// disagree, leaving the builder open. Later calls return the same Addon.
func (b *Builder) Interface() (*Addon, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.addon != nil {
		return b.addon, nil
	}

	if b.opts.consistency {
		if errs := CheckConsistency(&b.manifest, b.order); len(errs) > 0 {
			return nil, &ConsistencyError{Errs: errs}
		}
	}

	b.addon = &Addon{
		manifest: b.manifest,
		handlers: lo.Assign(b.handlers),
	}
	return b.addon, nil
}

// CheckConsistency compares the resources m declares with the registered
// ones. Unused handlers are reported first, then missing ones.
func CheckConsistency(m *stremio.Manifest, registered []stremio.Resource) []error {
	declared := m.DeclaredResources()

	var errs []error
	for _, r := range registered {
		if !lo.Contains(declared, r) {
			errs = append(errs, &UnusedHandlerError{Resource: r})
		}
	}
	for _, r := range declared {
		if !lo.Contains(registered, r) {
			errs = append(errs, &MissingHandlerError{Resource: r})
		}
	}
	return errs
}
