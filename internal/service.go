package internal

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"slices"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/centrifugal/centrifuge"
	"github.com/ogero/stremio-addon-sdk/internal/cache"
	"github.com/ogero/stremio-addon-sdk/internal/common"
	"github.com/ogero/stremio-addon-sdk/pkg/imdb"
	"github.com/ogero/stremio-addon-sdk/pkg/stremio"
	"github.com/samber/lo"
	"github.com/wlynxg/chardet"
	"github.com/wlynxg/chardet/consts"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

//go:embed subtitles/*.srt
var subtitlesFS embed.FS

// catalogPageSize is the number of metas returned per catalog page.
const catalogPageSize = 100

// ErrSubtitleFileNotFound is returned for subtitle files that are not bundled.
var ErrSubtitleFileNotFound = errors.New("subtitle file not found")

// Stats represents the addon usage counters broadcast to websocket subscribers.
type Stats struct {
	// RequestsCount is the number of addon requests answered since start.
	RequestsCount int `json:"requestsCount"`
	// ResourceCounts is RequestsCount split per resource.
	ResourceCounts map[string]int `json:"resourceCounts"`
	// TitleInstant holds the last looked up title, for immediate reporting.
	TitleInstant string `json:"titleInstant"`
}

// CatalogQuery selects a catalog page.
type CatalogQuery struct {
	Type   stremio.ContentType
	ID     string
	Search string
	Skip   int
}

// StremioService holds the example addon domain: the bundled catalog, IMDb
// metadata and subtitle files, plus the stats websocket.
type StremioService interface {
	// Handler handles incoming HTTP requests via a websocket handler
	http.Handler
	// GetCatalog lists the bundled titles matching q.
	GetCatalog(ctx context.Context, q CatalogQuery) ([]stremio.MetaPreview, error)
	// GetMeta describes a title, looking it up on IMDb.
	GetMeta(ctx context.Context, contentType stremio.ContentType, imdbID string) (*stremio.MetaDetail, error)
	// GetStreams returns the bundled streams for a video id.
	GetStreams(ctx context.Context, id string) ([]stremio.Stream, error)
	// GetSubtitles lists the bundled subtitles of a video id, optionally
	// restricted to one language.
	GetSubtitles(ctx context.Context, id string, lang string) ([]stremio.Subtitle, error)
	// GetSubtitleFile returns a bundled subtitle file transcoded to UTF-8.
	GetSubtitleFile(ctx context.Context, name string) ([]byte, error)
	// BroadcastStats updates and publishes statistical data to a websocket channel.
	// Accepts a function to modify stats and returns an error if updating or publishing fails.
	BroadcastStats(statsUpdater func(stats *Stats) error) error
	// Shutdown stops the websocket node.
	Shutdown(ctx context.Context) error
}

type stremioService struct {
	statsWebsocketChannel string
	addonHost             string
	imdb                  imdb.IMDB
	subtitles             fs.FS

	node             *centrifuge.Node
	websocketHandler *centrifuge.WebsocketHandler
	statsMutex       *sync.Mutex
	stats            Stats
}

// NewStremioService creates a new instance of StremioService.
func NewStremioService(statsWebsocketChannel, addonHost string, imdb imdb.IMDB) (StremioService, error) {
	subtitles, err := fs.Sub(subtitlesFS, "subtitles")
	if err != nil {
		return nil, fmt.Errorf("failed to fs.Sub: %w", err)
	}

	svc := &stremioService{
		statsWebsocketChannel: statsWebsocketChannel,
		addonHost:             addonHost,
		imdb:                  imdb,
		subtitles:             subtitles,

		statsMutex: &sync.Mutex{},
		stats:      Stats{ResourceCounts: map[string]int{}},
	}

	node, err := centrifuge.New(centrifuge.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to centrifuge.New: %w", err)
	}
	svc.node = node

	node.OnConnecting(func(ctx context.Context, e centrifuge.ConnectEvent) (centrifuge.ConnectReply, error) {
		return centrifuge.ConnectReply{}, nil
	})

	node.OnConnect(func(client *centrifuge.Client) {
		client.OnSubscribe(func(e centrifuge.SubscribeEvent, cb centrifuge.SubscribeCallback) {
			if e.Channel != statsWebsocketChannel {
				cb(centrifuge.SubscribeReply{}, centrifuge.ErrorPermissionDenied)
				return
			}

			cb(centrifuge.SubscribeReply{}, nil)

			go func() {
				err := svc.BroadcastStats(func(*Stats) error { return nil })
				if err != nil {
					common.Log.Warn("Failed to internal.StremioService.BroadcastStats", "err", err)
				}
			}()
		})
	})

	if err := node.Run(); err != nil {
		return nil, fmt.Errorf("failed to centrifuge.Node.Run: %w", err)
	}

	svc.websocketHandler = centrifuge.NewWebsocketHandler(node, centrifuge.WebsocketConfig{
		ReadBufferSize:     1024,
		UseWriteBufferPool: true,
	})

	return svc, nil
}

// GetCatalog lists the bundled titles matching q.
func (s *stremioService) GetCatalog(ctx context.Context, q CatalogQuery) ([]stremio.MetaPreview, error) {
	_, span := trace.SpanFromContext(ctx).TracerProvider().Tracer("").Start(ctx, "internal.StremioService.GetCatalog")
	defer span.End()
	span.SetAttributes(
		attribute.String("catalog.id", q.ID),
		attribute.String("catalog.search", q.Search),
		attribute.Int("catalog.skip", q.Skip),
	)

	if q.Type != stremio.ContentTypeMovie || q.ID != catalogID {
		return []stremio.MetaPreview{}, nil
	}

	matches := exampleTitles
	if query := searchWords(q.Search); len(query) > 0 {
		scores := lo.SliceToMap(exampleTitles, func(t exampleTitle) (string, int) {
			return t.ID, searchScore(query, t.Stream.Name)
		})
		matches = lo.Filter(exampleTitles, func(t exampleTitle, _ int) bool {
			return scores[t.ID] > 0
		})
		slices.SortStableFunc(matches, func(a, b exampleTitle) int {
			return scores[b.ID] - scores[a.ID]
		})
	}
	if q.Skip >= len(matches) {
		return []stremio.MetaPreview{}, nil
	}
	page := matches[q.Skip:min(q.Skip+catalogPageSize, len(matches))]

	return lo.Map(page, func(t exampleTitle, _ int) stremio.MetaPreview {
		return stremio.MetaPreview{
			ID:     t.ID,
			Type:   stremio.ContentTypeMovie,
			Name:   t.Stream.Name,
			Poster: posterURL(t.ID),
		}
	}), nil
}

// GetMeta describes a title, looking it up on IMDb.
// It uses caching to improve performance and reduce API calls.
func (s *stremioService) GetMeta(ctx context.Context, contentType stremio.ContentType, imdbID string) (*stremio.MetaDetail, error) {
	ctx, span := trace.SpanFromContext(ctx).TracerProvider().Tracer("").Start(ctx, "internal.StremioService.GetMeta")
	defer span.End()

	cacheResult := "hit"
	cacheKey := fmt.Sprintf("imdb.title : %s", imdbID)
	cacheTTL := 48 * time.Hour
	imdbTitle, err := cache.Memoize(ctx, cacheKey, cacheTTL, func(ctx context.Context) (*imdb.Title, error) {

		cacheResult = "miss"
		title, err := s.imdb.GetTitle(ctx, imdbID)
		if err != nil {
			return nil, fmt.Errorf("failed to imdb.IMDB.GetTitle: %w", err)
		}

		return title, nil
	})
	span.SetAttributes(attribute.String("cache.imdb.title.result", cacheResult))
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("imdb.id", imdbID))
	span.SetAttributes(attribute.String("imdb.title", imdbTitle.Name))

	go func() {
		err := s.BroadcastStats(func(data *Stats) error {
			data.TitleInstant = imdbTitle.Name
			return nil
		})
		if err != nil {
			common.Log.WarnContext(ctx, "Failed to internal.StremioService.BroadcastStats", "err", err)
		}
	}()

	poster := imdbTitle.Poster
	if poster == "" {
		poster = posterURL(imdbID)
	}
	meta := &stremio.MetaDetail{
		MetaPreview: stremio.MetaPreview{
			ID:          imdbID,
			Type:        contentType,
			Name:        imdbTitle.Name,
			Poster:      poster,
			Description: imdbTitle.Description,
		},
		Genres:     imdbTitle.Genres,
		Director:   imdbTitle.Directors,
		Cast:       imdbTitle.Cast,
		IMDbRating: imdbTitle.Rating,
		Runtime:    imdbTitle.Runtime,
	}
	if imdbTitle.Year != 0 {
		meta.ReleaseInfo = fmt.Sprint(imdbTitle.Year)
	}

	return meta, nil
}

// GetStreams returns the bundled streams for a video id.
func (s *stremioService) GetStreams(ctx context.Context, id string) ([]stremio.Stream, error) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attribute.String("stream.id", id))

	title, ok := findExampleTitle(id)
	if !ok {
		return []stremio.Stream{}, nil
	}
	return []stremio.Stream{title.Stream}, nil
}

// GetSubtitles lists the bundled subtitles of a video id, optionally
// restricted to one language.
func (s *stremioService) GetSubtitles(ctx context.Context, id string, lang string) ([]stremio.Subtitle, error) {
	imdbID, _, _, err := common.ParseVideoID(id)
	if err != nil {
		return nil, fmt.Errorf("failed to common.ParseVideoID: %w", err)
	}

	files := lo.Filter(exampleSubtitles[imdbID], func(sub exampleSubtitle, _ int) bool {
		return lang == "" || sub.Lang == lang
	})
	common.Log.InfoContext(ctx, "Found subtitles", "imdb.id", imdbID, "count", len(files))

	return lo.Map(files, func(sub exampleSubtitle, _ int) stremio.Subtitle {
		return stremio.Subtitle{
			ID:   sub.File,
			Lang: sub.Lang,
			URL:  fmt.Sprintf("%s/subtitles-file/%s", s.addonHost, sub.File),
		}
	}), nil
}

// GetSubtitleFile returns a bundled subtitle file transcoded to UTF-8.
func (s *stremioService) GetSubtitleFile(ctx context.Context, name string) ([]byte, error) {
	ctx, span := trace.SpanFromContext(ctx).TracerProvider().Tracer("").Start(ctx, "internal.StremioService.GetSubtitleFile")
	defer span.End()

	if err := common.ValidateSubtitleFileName(name); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSubtitleFileNotFound, err)
	}

	data, err := fs.ReadFile(s.subtitles, name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrSubtitleFileNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to fs.ReadFile: %w", err)
	}

	detected := chardet.Detect(data).Encoding
	span.SetAttributes(attribute.String("file.encoding", detected))
	common.Log.WithGroup("file").InfoContext(ctx, "Got SRT", "name", name, "size", len(data), "encoding", detected)

	return toUTF8(data, detected)
}

// toUTF8 transcodes data to UTF-8. Valid UTF-8 is returned as is; anything
// else is decoded as ISO-8859-1 when detected so, or as Windows-1252.
func toUTF8(data []byte, detected string) ([]byte, error) {
	if utf8.Valid(data) {
		return data, nil
	}

	var decoder *encoding.Decoder
	switch detected {
	case consts.ISO88591:
		decoder = charmap.ISO8859_1.NewDecoder()
	default:
		decoder = charmap.Windows1252.NewDecoder()
	}

	out, err := io.ReadAll(transform.NewReader(bytes.NewReader(data), decoder))
	if err != nil {
		return nil, fmt.Errorf("failed to transcode from %s: %w", detected, err)
	}
	return out, nil
}

// BroadcastStats updates and publishes statistical data to a websocket channel.
// Accepts a function to modify stats and returns an error if updating or publishing fails.
func (s *stremioService) BroadcastStats(statsUpdater func(stats *Stats) error) error {
	stats, err := func() (Stats, error) {
		s.statsMutex.Lock()
		defer s.statsMutex.Unlock()
		err := statsUpdater(&s.stats)
		if err != nil {
			return Stats{}, err
		}
		snapshot := s.stats
		snapshot.ResourceCounts = lo.Assign(s.stats.ResourceCounts)
		return snapshot, nil
	}()
	if err != nil {
		return fmt.Errorf("failed to statsUpdater: %w", err)
	}

	b, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to json.Marshal: %w", err)
	}

	_, err = s.node.Publish(s.statsWebsocketChannel, b)
	if err != nil {
		return fmt.Errorf("failed to centrifuge.Node.Publish: %w", err)
	}

	return nil
}

// Shutdown stops the websocket node.
func (s *stremioService) Shutdown(ctx context.Context) error {
	return s.node.Shutdown(ctx)
}

// ServeHTTP handles incoming HTTP requests via a websocket handler
func (s *stremioService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	newCtx := centrifuge.SetCredentials(ctx, &centrifuge.Credentials{})
	r = r.WithContext(newCtx)

	s.websocketHandler.ServeHTTP(w, r)
}
