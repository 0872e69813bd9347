package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"testing"

	"github.com/ogero/stremio-addon-sdk/pkg/addon"
	"github.com/ogero/stremio-addon-sdk/pkg/router"
	"github.com/ogero/stremio-addon-sdk/pkg/stremio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testManifest = stremio.Manifest{
	ID:          "org.myexampleaddon",
	Version:     "1.0.0",
	Name:        "simple example",
	Description: "not so simple",
	Resources:   []stremio.ResourceDecl{stremio.ShortResource(stremio.ResourceStream)},
	Types:       []stremio.ContentType{stremio.ContentTypeMovie},
	Catalogs:    []stremio.Catalog{},
}

func configurableManifest() stremio.Manifest {
	m := testManifest.Clone()
	m.Config = []stremio.ConfigSetting{{Key: "quality", Type: "text"}}
	m.BehaviorHints = &stremio.BehaviorHints{Configurable: true, ConfigurationRequired: true}
	return m
}

// fakeAddon records the last query and answers with res or err.
type fakeAddon struct {
	manifest stremio.Manifest
	res      stremio.Result
	err      error
	panicMsg string
	got      *stremio.Query
}

func (f *fakeAddon) Manifest() stremio.Manifest {
	return f.manifest
}

func (f *fakeAddon) Get(_ context.Context, q stremio.Query) (stremio.Result, error) {
	f.got = &q
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	return f.res, f.err
}

func get(t *testing.T, rt *router.Router, rawURL string) *router.Response {
	t.Helper()
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	return rt.Route(context.Background(), &router.Request{Method: http.MethodGet, URL: u})
}

func newRouter(t *testing.T, iface router.Interface, opts ...router.Option) *router.Router {
	t.Helper()
	rt, err := router.New(iface, opts...)
	require.NoError(t, err)
	return rt
}

func TestRouter_Manifest(t *testing.T) {
	rt := newRouter(t, &fakeAddon{manifest: testManifest})

	resp := get(t, rt, "/manifest.json")
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, router.ContentTypeJSON, resp.Header.Get("Content-Type"))

	var got stremio.Manifest
	require.NoError(t, json.Unmarshal(resp.Body, &got))
	assert.Equal(t, testManifest, got)
}

func TestRouter_ManifestSanitization(t *testing.T) {
	tests := []struct {
		name               string
		manifest           stremio.Manifest
		path               string
		wantMatch          bool
		wantConfigurable   bool
		wantConfigRequired bool
	}{
		{
			name:               "without config segment",
			manifest:           configurableManifest(),
			path:               "/manifest.json",
			wantMatch:          true,
			wantConfigurable:   true,
			wantConfigRequired: true,
		},
		{
			name:      "with config segment",
			manifest:  configurableManifest(),
			path:      "/%7B%22quality%22%3A%22hd%22%7D/manifest.json",
			wantMatch: true,
		},
		{
			name: "config segment without config settings",
			manifest: func() stremio.Manifest {
				m := configurableManifest()
				m.Config = nil
				return m
			}(),
			path: "/%7B%7D/manifest.json",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := newRouter(t, &fakeAddon{manifest: tt.manifest})

			resp := get(t, rt, tt.path)
			if !tt.wantMatch {
				assert.Nil(t, resp)
				return
			}
			require.NotNil(t, resp)

			var got stremio.Manifest
			require.NoError(t, json.Unmarshal(resp.Body, &got))
			require.NotNil(t, got.BehaviorHints)
			assert.Equal(t, tt.wantConfigurable, got.BehaviorHints.Configurable)
			assert.Equal(t, tt.wantConfigRequired, got.BehaviorHints.ConfigurationRequired)
		})
	}
}

func TestRouter_Query(t *testing.T) {
	tests := []struct {
		name     string
		manifest stremio.Manifest
		path     string
		want     stremio.Query
	}{
		{
			name:     "plain",
			manifest: testManifest,
			path:     "/stream/movie/tt123.json",
			want: stremio.Query{
				Resource: stremio.ResourceStream,
				Type:     stremio.ContentTypeMovie,
				ID:       "tt123",
				Extra:    url.Values{},
				Config:   map[string]any{},
			},
		},
		{
			name:     "encoded ampersand in extra",
			manifest: testManifest,
			path:     "/stream/movie/tt123/search=foo%26bar.json",
			want: stremio.Query{
				Resource: stremio.ResourceStream,
				Type:     stremio.ContentTypeMovie,
				ID:       "tt123",
				Extra:    url.Values{"search": {"foo&bar"}},
				Config:   map[string]any{},
			},
		},
		{
			name:     "several extras",
			manifest: testManifest,
			path:     "/stream/movie/tt123/search=foo&skip=100.json",
			want: stremio.Query{
				Resource: stremio.ResourceStream,
				Type:     stremio.ContentTypeMovie,
				ID:       "tt123",
				Extra:    url.Values{"search": {"foo"}, "skip": {"100"}},
				Config:   map[string]any{},
			},
		},
		{
			name:     "encoded id",
			manifest: testManifest,
			path:     "/stream/movie/tt123%3A1%3A2.json",
			want: stremio.Query{
				Resource: stremio.ResourceStream,
				Type:     stremio.ContentTypeMovie,
				ID:       "tt123:1:2",
				Extra:    url.Values{},
				Config:   map[string]any{},
			},
		},
		{
			name:     "config",
			manifest: configurableManifest(),
			path:     "/%7B%22quality%22%3A%22hd%22%7D/stream/movie/tt123.json",
			want: stremio.Query{
				Resource: stremio.ResourceStream,
				Type:     stremio.ContentTypeMovie,
				ID:       "tt123",
				Extra:    url.Values{},
				Config:   map[string]any{"quality": "hd"},
			},
		},
		{
			name:     "config and extra",
			manifest: configurableManifest(),
			path:     "/%7B%22quality%22%3A%22hd%22%7D/stream/movie/tt123/skip=20.json",
			want: stremio.Query{
				Resource: stremio.ResourceStream,
				Type:     stremio.ContentTypeMovie,
				ID:       "tt123",
				Extra:    url.Values{"skip": {"20"}},
				Config:   map[string]any{"quality": "hd"},
			},
		},
		{
			name:     "extra when manifest has config",
			manifest: configurableManifest(),
			path:     "/stream/movie/tt123/skip=20.json",
			want: stremio.Query{
				Resource: stremio.ResourceStream,
				Type:     stremio.ContentTypeMovie,
				ID:       "tt123",
				Extra:    url.Values{"skip": {"20"}},
				Config:   map[string]any{},
			},
		},
		{
			name:     "search extra when manifest has config",
			manifest: configurableManifest(),
			path:     "/stream/movie/tt1/search=x.json",
			want: stremio.Query{
				Resource: stremio.ResourceStream,
				Type:     stremio.ContentTypeMovie,
				ID:       "tt1",
				Extra:    url.Values{"search": {"x"}},
				Config:   map[string]any{},
			},
		},
		{
			name:     "malformed config",
			manifest: configurableManifest(),
			path:     "/not-json/stream/movie/tt123.json",
			want: stremio.Query{
				Resource: stremio.ResourceStream,
				Type:     stremio.ContentTypeMovie,
				ID:       "tt123",
				Extra:    url.Values{},
				Config:   map[string]any{},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeAddon{manifest: tt.manifest, res: stremio.StreamsResponse{Streams: []stremio.Stream{}}}
			rt := newRouter(t, fake)

			resp := get(t, rt, tt.path)
			require.NotNil(t, resp)
			assert.Equal(t, http.StatusOK, resp.Status)
			require.NotNil(t, fake.got)
			assert.Equal(t, tt.want, *fake.got)
		})
	}
}

func TestRouter_ConfigRoutesRequireConfigSettings(t *testing.T) {
	fake := &fakeAddon{manifest: testManifest, res: stremio.StreamsResponse{}}
	rt := newRouter(t, fake)

	assert.Nil(t, get(t, rt, "/%7B%7D/stream/movie/tt123/skip=20.json"))
	assert.Nil(t, fake.got)
}

func TestRouter_CacheControl(t *testing.T) {
	tests := []struct {
		name string
		res  stremio.Result
		want string
	}{
		{
			name: "max age",
			res:  stremio.StreamsResponse{Directives: stremio.Directives{CacheMaxAge: stremio.Seconds(3600)}},
			want: "max-age=3600, public",
		},
		{
			name: "all directives",
			res: stremio.StreamsResponse{Directives: stremio.Directives{
				CacheMaxAge:     stremio.Seconds(3600),
				StaleRevalidate: stremio.Seconds(60),
				StaleError:      stremio.Seconds(86400),
			}},
			want: "max-age=3600, stale-while-revalidate=60, stale-if-error=86400, public",
		},
		{
			name: "raw result",
			res:  stremio.RawResult{"streams": []any{}, "cacheMaxAge": float64(120)},
			want: "max-age=120, public",
		},
		{
			name: "negative value ignored",
			res:  stremio.StreamsResponse{Directives: stremio.Directives{CacheMaxAge: stremio.Seconds(-1)}},
		},
		{
			name: "none",
			res:  stremio.StreamsResponse{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := newRouter(t, &fakeAddon{manifest: testManifest, res: tt.res})

			resp := get(t, rt, "/stream/movie/tt123.json")
			require.NotNil(t, resp)
			assert.Equal(t, http.StatusOK, resp.Status)
			assert.Equal(t, tt.want, resp.Header.Get("Cache-Control"))
			if tt.want == "" {
				assert.NotContains(t, resp.Header, "Cache-Control")
			}
		})
	}
}

func TestRouter_Redirect(t *testing.T) {
	rt := newRouter(t, &fakeAddon{
		manifest: testManifest,
		res: stremio.StreamsResponse{Directives: stremio.Directives{
			Redirect:    "https://example.com/other.json",
			CacheMaxAge: stremio.Seconds(60),
		}},
	})

	resp := get(t, rt, "/stream/movie/tt123.json")
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusTemporaryRedirect, resp.Status)
	assert.Equal(t, "https://example.com/other.json", resp.Header.Get("Location"))
	assert.Empty(t, resp.Body)
	assert.Empty(t, resp.Header.Get("Cache-Control"))
}

func TestRouter_UndeclaredResource(t *testing.T) {
	t.Run("strict", func(t *testing.T) {
		fake := &fakeAddon{manifest: testManifest}
		rt := newRouter(t, fake)

		resp := get(t, rt, "/meta/movie/tt123.json")
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusNotFound, resp.Status)
		assert.JSONEq(t, `{"err":"resource not found"}`, string(resp.Body))
		assert.Nil(t, fake.got)

		resp = get(t, rt, "/unknown/movie/tt123.json")
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusNotFound, resp.Status)
	})

	t.Run("lenient", func(t *testing.T) {
		fake := &fakeAddon{manifest: testManifest, err: &addon.NoHandlerError{Resource: stremio.ResourceMeta}}
		rt := newRouter(t, fake, router.WithStrictResourceMatching(false))

		assert.Nil(t, get(t, rt, "/meta/movie/tt123.json"))
		require.NotNil(t, fake.got)
		assert.Equal(t, stremio.ResourceMeta, fake.got.Resource)

		fake.got = nil
		assert.Nil(t, get(t, rt, "/unknown/movie/tt123.json"))
		assert.Nil(t, fake.got)
	})
}

func TestRouter_NoHandlerFallsThrough(t *testing.T) {
	rt := newRouter(t, &fakeAddon{manifest: testManifest, err: &addon.NoHandlerError{Resource: stremio.ResourceStream}})

	assert.Nil(t, get(t, rt, "/stream/movie/tt123.json"))
}

func TestRouter_HandlerError(t *testing.T) {
	tests := []struct {
		name  string
		fake  *fakeAddon
		wantL string
	}{
		{
			name:  "error",
			fake:  &fakeAddon{manifest: testManifest, err: errors.New("upstream unavailable")},
			wantL: "upstream unavailable",
		},
		{
			name:  "panic",
			fake:  &fakeAddon{manifest: testManifest, panicMsg: "kaboom"},
			wantL: "handler panic: kaboom",
		},
		{
			name:  "no result",
			fake:  &fakeAddon{manifest: testManifest},
			wantL: "handler returned no result",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))
			rt := newRouter(t, tt.fake, router.WithLogger(logger))

			resp := get(t, rt, "/stream/movie/tt123.json")
			require.NotNil(t, resp)
			assert.Equal(t, http.StatusInternalServerError, resp.Status)
			assert.JSONEq(t, `{"err":"handler error"}`, string(resp.Body))
			assert.Contains(t, buf.String(), tt.wantL)
		})
	}
}

func TestRouter_NoMatch(t *testing.T) {
	fake := &fakeAddon{manifest: testManifest, res: stremio.StreamsResponse{}}
	rt := newRouter(t, fake)

	for _, path := range []string{
		"/",
		"/configure",
		"/stream/movie.json",
		"/stream/movie/tt123",
		"/stream//tt123.json",
		"/a/b/c/d/e/f.json",
		"/stream/movie/tt123/skip=1/extra.json",
	} {
		assert.Nil(t, get(t, rt, path), path)
	}
	assert.Nil(t, fake.got)
}

func TestRouter_Methods(t *testing.T) {
	rt := newRouter(t, &fakeAddon{manifest: testManifest, res: stremio.StreamsResponse{}})
	u, err := url.Parse("/manifest.json")
	require.NoError(t, err)

	for method, wantMatch := range map[string]bool{
		http.MethodGet:     true,
		http.MethodHead:    true,
		"":                 true,
		http.MethodPost:    false,
		http.MethodOptions: false,
	} {
		resp := rt.Route(context.Background(), &router.Request{Method: method, URL: u})
		assert.Equal(t, wantMatch, resp != nil, method)
	}
	assert.Nil(t, rt.Route(context.Background(), nil))
}

func TestRouter_EndToEnd(t *testing.T) {
	m := testManifest.Clone()
	m.Types = []stremio.ContentType{stremio.ContentTypeMovie, stremio.ContentTypeSeries}

	b, err := addon.NewStrictBuilder(m)
	require.NoError(t, err)
	require.NoError(t, b.DefineStreamHandler(func(_ context.Context, args addon.Args) (stremio.StreamsResponse, error) {
		if args.Type == stremio.ContentTypeMovie && args.ID == "tt1254207" {
			return stremio.StreamsResponse{
				Streams:    []stremio.Stream{{URL: "http://distribution.bbb3d.renderfarming.net/video/mp4/bbb_sunflower_1080p_30fps_normal.mp4"}},
				Directives: stremio.Directives{CacheMaxAge: stremio.Seconds(3600)},
			}, nil
		}
		return stremio.StreamsResponse{}, nil
	}))
	a, err := b.Interface()
	require.NoError(t, err)

	rt := newRouter(t, a)

	resp := get(t, rt, "/stream/movie/tt1254207.json")
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "max-age=3600, public", resp.Header.Get("Cache-Control"))
	assert.JSONEq(t, `{"streams":[{"url":"http://distribution.bbb3d.renderfarming.net/video/mp4/bbb_sunflower_1080p_30fps_normal.mp4"}],"cacheMaxAge":3600}`, string(resp.Body))

	resp = get(t, rt, "/stream/series/tt0000001.json")
	require.NotNil(t, resp)
	assert.JSONEq(t, `{"streams":[]}`, string(resp.Body))
	assert.Empty(t, resp.Header.Get("Cache-Control"))
}

func TestCacheControl(t *testing.T) {
	assert.Equal(t, "", router.CacheControl(stremio.Directives{}))
	assert.Equal(t, "stale-if-error=0, public", router.CacheControl(stremio.Directives{StaleError: stremio.Seconds(0)}))
}
