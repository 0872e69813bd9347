package internal

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ogero/stremio-addon-sdk/pkg/stremio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, svc StremioService) *httptest.Server {
	t.Helper()

	app, err := NewApp(svc, "http://127.0.0.1:3593")
	require.NoError(t, err)

	h, err := app.Handler(true, 0)
	require.NoError(t, err)

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, srv *httptest.Server, path string) (*http.Response, string) {
	t.Helper()
	res, err := srv.Client().Get(srv.URL + path)
	require.NoError(t, err)
	defer func() { _ = res.Body.Close() }()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res, string(body)
}

func TestApp_Manifest(t *testing.T) {
	srv := newTestServer(t, newTestService(t, newFakeIMDB()))

	res, body := get(t, srv, "/manifest.json")
	require.Equal(t, http.StatusOK, res.StatusCode)

	var got stremio.Manifest
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	assert.Equal(t, "community.stremio.helloworld", got.ID)
	assert.True(t, got.BehaviorHints.Configurable)
	assert.Equal(t, []stremio.Resource{
		stremio.ResourceCatalog,
		stremio.ResourceStream,
		stremio.ResourceMeta,
		stremio.ResourceSubtitles,
	}, got.DeclaredResources())

	res, body = get(t, srv, "/%7B%22subtitlesLanguage%22%3A%22spa%22%7D/manifest.json")
	require.Equal(t, http.StatusOK, res.StatusCode)
	got = stremio.Manifest{}
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	assert.False(t, got.BehaviorHints.Configurable)
}

func TestApp_Resources(t *testing.T) {
	srv := newTestServer(t, newTestService(t, newFakeIMDB()))

	tests := []struct {
		name             string
		path             string
		wantStatus       int
		wantCacheControl string
		check            func(t *testing.T, body string)
	}{
		{
			name:             "catalog",
			path:             "/catalog/movie/helloworldmovies.json",
			wantStatus:       http.StatusOK,
			wantCacheControl: "max-age=3600, stale-while-revalidate=3600, stale-if-error=604800, public",
			check: func(t *testing.T, body string) {
				var res stremio.MetasResponse
				require.NoError(t, json.Unmarshal([]byte(body), &res))
				assert.Len(t, res.Metas, len(exampleTitles))
			},
		},
		{
			name:       "catalog search",
			path:       "/catalog/movie/helloworldmovies/search=wizard.json",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body string) {
				var res stremio.MetasResponse
				require.NoError(t, json.Unmarshal([]byte(body), &res))
				require.Len(t, res.Metas, 1)
				assert.Equal(t, "The Wizard of Oz", res.Metas[0].Name)
			},
		},
		{
			name:             "stream",
			path:             "/stream/movie/tt1254207.json",
			wantStatus:       http.StatusOK,
			wantCacheControl: "max-age=3600, public",
			check: func(t *testing.T, body string) {
				assert.JSONEq(t, `{"streams":[{"name":"Big Buck Bunny","url":"http://clips.vorwaerts-gmbh.de/big_buck_bunny.mp4"}],"cacheMaxAge":3600}`, body)
			},
		},
		{
			name:       "stream not in dataset",
			path:       "/stream/series/tt0944947%3A1%3A1.json",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body string) {
				assert.JSONEq(t, `{"streams":[]}`, body)
			},
		},
		{
			name:             "meta",
			path:             "/meta/movie/tt1254207.json",
			wantStatus:       http.StatusOK,
			wantCacheControl: "max-age=172800, stale-while-revalidate=3600, stale-if-error=604800, public",
			check: func(t *testing.T, body string) {
				var res stremio.MetaResponse
				require.NoError(t, json.Unmarshal([]byte(body), &res))
				assert.Equal(t, "Big Buck Bunny", res.Meta.Name)
				assert.Equal(t, stremio.ContentTypeMovie, res.Meta.Type)
			},
		},
		{
			name:       "meta with invalid id",
			path:       "/meta/movie/kitsu%3A1.json",
			wantStatus: http.StatusInternalServerError,
			check: func(t *testing.T, body string) {
				assert.JSONEq(t, `{"err":"handler error"}`, body)
			},
		},
		{
			name:       "subtitles",
			path:       "/subtitles/movie/tt1254207/videoHash=abc&videoSize=1024.json",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body string) {
				var res stremio.SubtitlesResponse
				require.NoError(t, json.Unmarshal([]byte(body), &res))
				assert.Len(t, res.Subtitles, 2)
			},
		},
		{
			name:       "subtitles with config",
			path:       "/%7B%22subtitlesLanguage%22%3A%22spa%22%7D/subtitles/movie/tt1254207.json",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body string) {
				var res stremio.SubtitlesResponse
				require.NoError(t, json.Unmarshal([]byte(body), &res))
				require.Len(t, res.Subtitles, 1)
				assert.Equal(t, "spa", res.Subtitles[0].Lang)
				assert.Equal(t, "http://127.0.0.1:3593/subtitles-file/big-buck-bunny.es.srt", res.Subtitles[0].URL)
			},
		},
		{
			name:       "undeclared resource",
			path:       "/addon_catalog/movie/all.json",
			wantStatus: http.StatusNotFound,
			check: func(t *testing.T, body string) {
				assert.JSONEq(t, `{"err":"resource not found"}`, body)
			},
		},
		{
			name:       "not an addon route",
			path:       "/configure",
			wantStatus: http.StatusNotFound,
			check: func(t *testing.T, body string) {
				assert.JSONEq(t, `{"err":"not found"}`, body)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, body := get(t, srv, tt.path)
			assert.Equal(t, tt.wantStatus, res.StatusCode)
			if tt.wantCacheControl != "" {
				assert.Equal(t, tt.wantCacheControl, res.Header.Get("Cache-Control"))
			}
			tt.check(t, body)
		})
	}
}

func TestApp_SubtitleFileHandler(t *testing.T) {
	srv := newTestServer(t, newTestService(t, newFakeIMDB()))

	res, body := get(t, srv, "/subtitles-file/big-buck-bunny.es.srt")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.True(t, strings.HasPrefix(res.Header.Get("Content-Type"), "text/plain"))
	assert.Equal(t, "public, max-age=1296000", res.Header.Get("Cache-Control"))
	assert.Contains(t, body, "Mañana será otro día.")

	res, _ = get(t, srv, "/subtitles-file/missing.srt")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	res, _ = get(t, srv, "/subtitles-file/Not%20Valid.srt")
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestApp_TracksRequests(t *testing.T) {
	svc := newTestService(t, newFakeIMDB())
	srv := newTestServer(t, svc)

	get(t, srv, "/stream/movie/tt1254207.json")
	get(t, srv, "/stream/movie/tt0017136.json")
	get(t, srv, "/meta/movie/tt0032138.json")

	stats := func() Stats {
		var got Stats
		require.NoError(t, svc.BroadcastStats(func(s *Stats) error {
			got = *s
			return nil
		}))
		return got
	}

	got := stats()
	assert.Equal(t, 3, got.RequestsCount)
	assert.Equal(t, 2, got.ResourceCounts["stream"])
	assert.Equal(t, 1, got.ResourceCounts["meta"])
	assert.Eventually(t, func() bool {
		return stats().TitleInstant == "The Wizard of Oz"
	}, time.Second, 10*time.Millisecond)
}
