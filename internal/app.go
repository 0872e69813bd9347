package internal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/ogero/stremio-addon-sdk/internal/common"
	"github.com/ogero/stremio-addon-sdk/pkg/addon"
	"github.com/ogero/stremio-addon-sdk/pkg/httpadapter"
	"github.com/ogero/stremio-addon-sdk/pkg/router"
	"github.com/ogero/stremio-addon-sdk/pkg/stremio"
	"github.com/wlynxg/chardet/consts"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const catalogID = "helloworldmovies"

// subtitlesLanguageKey is the config setting restricting the listed subtitles.
const subtitlesLanguageKey = "subtitlesLanguage"

var manifest = stremio.Manifest{
	ID:          "community.stremio.helloworld",
	Version:     "1.0.0",
	Name:        "Hello World Addon",
	Description: "Sample addon providing a few public domain movies",
	Resources: []stremio.ResourceDecl{
		stremio.ShortResource(stremio.ResourceStream),
		stremio.LongResource(stremio.ResourceMeta, []stremio.ContentType{stremio.ContentTypeMovie, stremio.ContentTypeSeries}, "tt"),
		stremio.ShortResource(stremio.ResourceSubtitles),
	},
	Types: []stremio.ContentType{stremio.ContentTypeMovie, stremio.ContentTypeSeries},
	Catalogs: []stremio.Catalog{
		{
			Type: stremio.ContentTypeMovie,
			ID:   catalogID,
			Name: "Hello World",
			Extra: []stremio.CatalogExtra{
				{Name: "search"},
				{Name: "skip"},
			},
		},
	},
	IDPrefixes: []string{"tt"},
	Config: []stremio.ConfigSetting{
		{
			Key:     subtitlesLanguageKey,
			Type:    "select",
			Title:   "Subtitles language",
			Options: []string{"eng", "spa"},
			Default: "eng",
		},
	},
	BehaviorHints: &stremio.BehaviorHints{Configurable: true},
}

// Cache directives of the addon responses, in seconds.
const (
	catalogCacheMaxAge = 3600
	metaCacheMaxAge    = 48 * 3600
	streamCacheMaxAge  = 3600
	staleRevalidate    = 3600
	staleError         = 7 * 24 * 3600
)

// App represents the main application structure that holds the Stremio service, the addon built on it and the addon host information.
type App struct {
	StremioService StremioService
	AddonHost      string
	Addon          *addon.Addon
}

/*
NewApp creates a new instance of the App struct.

Parameters:
  - stremioService: The service answering the addon resources.
  - addonHost: The host address for the addon.

Returns:
  - A pointer to the newly created App instance, with its addon validated and sealed.
*/
func NewApp(stremioService StremioService, addonHost string) (*App, error) {
	a := &App{
		StremioService: stremioService,
		AddonHost:      addonHost,
	}

	builder, err := addon.NewStrictBuilder(manifest, addon.WithLogger(common.Log))
	if err != nil {
		return nil, fmt.Errorf("failed to addon.NewStrictBuilder: %w", err)
	}

	err = errors.Join(
		builder.DefineCatalogHandler(a.catalogHandler),
		builder.DefineMetaHandler(a.metaHandler),
		builder.DefineStreamHandler(a.streamHandler),
		builder.DefineSubtitlesHandler(a.subtitlesHandler),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to define addon handlers: %w", err)
	}

	a.Addon, err = builder.Interface()
	if err != nil {
		return nil, fmt.Errorf("failed to addon.Builder.Interface: %w", err)
	}

	return a, nil
}

/*
Handler mounts the addon on a chi router.

Besides the addon protocol it serves:
  - GET /subtitles-file/{name}: a bundled subtitle file, as UTF-8.
  - GET /ws: the stats websocket.
*/
func (a *App) Handler(strictResourceMatching bool, cacheMaxAge int) (http.Handler, error) {
	rt, err := router.New(a.Addon,
		router.WithStrictResourceMatching(strictResourceMatching),
		router.WithLogger(common.Log))
	if err != nil {
		return nil, fmt.Errorf("failed to router.New: %w", err)
	}

	var opts []httpadapter.Option
	if cacheMaxAge > 0 {
		opts = append(opts, httpadapter.WithCacheMaxAge(cacheMaxAge))
	}

	r := chi.NewRouter()
	r.Get("/subtitles-file/{name}", a.SubtitleFileHandler)
	r.Get("/ws", a.WebsocketHandler)
	r.Handle("/*", httpadapter.Handler(rt, nil, append(opts, httpadapter.WithLogger(common.Log))...))

	return r, nil
}

func (a *App) catalogHandler(ctx context.Context, args addon.Args) (stremio.MetasResponse, error) {
	q := CatalogQuery{
		Type:   args.Type,
		ID:     args.ID,
		Search: args.Extra.Get("search"),
	}
	if skip := args.Extra.Get("skip"); skip != "" {
		var err error
		if q.Skip, err = strconv.Atoi(skip); err != nil || q.Skip < 0 {
			common.Log.WarnContext(ctx, "Invalid catalog skip", "skip", skip)
			q.Skip = 0
		}
	}

	metas, err := a.StremioService.GetCatalog(ctx, q)
	a.track(ctx, stremio.ResourceCatalog, err)
	if err != nil {
		return stremio.MetasResponse{}, fmt.Errorf("failed to StremioService.GetCatalog: %w", err)
	}

	return stremio.MetasResponse{
		Metas: metas,
		Directives: stremio.Directives{
			CacheMaxAge:     stremio.Seconds(catalogCacheMaxAge),
			StaleRevalidate: stremio.Seconds(staleRevalidate),
			StaleError:      stremio.Seconds(staleError),
		},
	}, nil
}

func (a *App) metaHandler(ctx context.Context, args addon.Args) (stremio.MetaResponse, error) {
	if err := common.ValidateContentType(string(args.Type)); err != nil {
		a.track(ctx, stremio.ResourceMeta, err)
		return stremio.MetaResponse{}, err
	}
	imdbID, _, _, err := common.ParseVideoID(args.ID)
	if err != nil {
		a.track(ctx, stremio.ResourceMeta, err)
		return stremio.MetaResponse{}, fmt.Errorf("failed to common.ParseVideoID: %w", err)
	}

	meta, err := a.StremioService.GetMeta(ctx, args.Type, imdbID)
	a.track(ctx, stremio.ResourceMeta, err)
	if err != nil {
		return stremio.MetaResponse{}, fmt.Errorf("failed to StremioService.GetMeta: %w", err)
	}

	return stremio.MetaResponse{
		Meta: *meta,
		Directives: stremio.Directives{
			CacheMaxAge:     stremio.Seconds(metaCacheMaxAge),
			StaleRevalidate: stremio.Seconds(staleRevalidate),
			StaleError:      stremio.Seconds(staleError),
		},
	}, nil
}

func (a *App) streamHandler(ctx context.Context, args addon.Args) (stremio.StreamsResponse, error) {
	streams, err := a.StremioService.GetStreams(ctx, args.ID)
	a.track(ctx, stremio.ResourceStream, err)
	if err != nil {
		return stremio.StreamsResponse{}, fmt.Errorf("failed to StremioService.GetStreams: %w", err)
	}

	res := stremio.StreamsResponse{Streams: streams}
	if len(streams) > 0 {
		res.CacheMaxAge = stremio.Seconds(streamCacheMaxAge)
	}
	return res, nil
}

func (a *App) subtitlesHandler(ctx context.Context, args addon.Args) (stremio.SubtitlesResponse, error) {
	lang, _ := args.Config[subtitlesLanguageKey].(string)

	subtitles, err := a.StremioService.GetSubtitles(ctx, args.ID, lang)
	a.track(ctx, stremio.ResourceSubtitles, err)
	if err != nil {
		return stremio.SubtitlesResponse{}, fmt.Errorf("failed to StremioService.GetSubtitles: %w", err)
	}

	return stremio.SubtitlesResponse{Subtitles: subtitles}, nil
}

// track counts an addon request and broadcasts the updated stats.
func (a *App) track(ctx context.Context, resource stremio.Resource, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	common.AddonRequestsTotalIncr(ctx, string(resource), result)

	err = a.StremioService.BroadcastStats(func(stats *Stats) error {
		stats.RequestsCount++
		stats.ResourceCounts[string(resource)]++
		return nil
	})
	if err != nil {
		common.Log.WarnContext(ctx, "Failed to internal.StremioService.BroadcastStats", "err", err)
	}
}

/*
SubtitleFileHandler handles requests for a bundled subtitle file by name.

This method validates the name, loads the file transcoded to UTF-8, and writes it to the response with the appropriate content type.
*/
func (a *App) SubtitleFileHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	span := trace.SpanFromContext(ctx)

	common.Log.DebugContext(ctx, "SubtitleFileHandler")

	paramsName := chi.URLParam(r, "name")
	if err := common.ValidateSubtitleFileName(paramsName); err != nil {
		common.Log.WarnContext(ctx, "Failed to common.ValidateSubtitleFileName", "err", err)
		span.RecordError(err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	span.SetAttributes(attribute.String("param.name", paramsName))

	data, err := a.StremioService.GetSubtitleFile(ctx, paramsName)
	if errors.Is(err, ErrSubtitleFileNotFound) {
		common.Log.WarnContext(ctx, "Subtitle file not found", "name", paramsName)
		w.WriteHeader(http.StatusNotFound)
		return
	} else if err != nil {
		common.Log.ErrorContext(ctx, "Failed to StremioService.GetSubtitleFile", "err", err)
		span.RecordError(err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	common.SubtitlesDownloadsTotalIncr(ctx)

	w.Header().Set("Content-Type", fmt.Sprintf("text/plain; charset=%s", consts.UTF8))
	w.Header().Set("CDN-Cache-Control", "public, max-age=1296000")
	w.Header().Set("Cache-Control", "public, max-age=1296000")

	if _, err = w.Write(data); err != nil {
		common.Log.ErrorContext(ctx, "Failed to write response", "err", err)
		span.RecordError(err)
		return
	}
}

// WebsocketHandler handles WebSocket connections
func (a *App) WebsocketHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	common.Log.DebugContext(ctx, "WebsocketHandler")

	a.StremioService.ServeHTTP(w, r)
}
