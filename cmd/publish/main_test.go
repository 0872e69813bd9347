package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validManifest = `{
	"id": "org.myexampleaddon",
	"version": "1.0.0",
	"name": "simple example",
	"description": "not so simple",
	"resources": ["stream"],
	"types": ["movie"],
	"catalogs": []
}`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestPublish(t *testing.T) {
	tests := []struct {
		name          string
		manifest      string
		extraArgs     []string
		wantPublished bool
		wantErr       assert.ErrorAssertionFunc
	}{
		{
			name:          "valid manifest",
			manifest:      validManifest,
			wantPublished: true,
			wantErr:       assert.NoError,
		},
		{
			name:     "invalid manifest",
			manifest: `{"id": "org.myexampleaddon"}`,
			wantErr:  assert.Error,
		},
		{
			name:          "invalid manifest without check",
			manifest:      `{"id": "org.myexampleaddon"}`,
			extraArgs:     []string{"--skip-check"},
			wantPublished: true,
			wantErr:       assert.NoError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addon := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(tt.manifest))
			}))
			defer addon.Close()

			published := false
			api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				published = true
				assert.Equal(t, "/api/addonPublish", r.URL.Path)
				_, _ = w.Write([]byte(`{"result":{"success":true}}`))
			}))
			defer api.Close()

			args := append([]string{"--api", api.URL, addon.URL + "/manifest.json"}, tt.extraArgs...)
			out, err := run(t, args...)
			tt.wantErr(t, err)
			assert.Equal(t, tt.wantPublished, published)
			if tt.wantPublished {
				assert.Contains(t, out, `Published `+addon.URL+`/manifest.json: {"success":true}`)
			}
		})
	}
}

func TestPublish_RegistryError(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"error":"addon already published"}`))
	}))
	defer api.Close()

	_, err := run(t, "--api", api.URL, "--skip-check", "https://addon.example.com/manifest.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "addon already published")
}

func TestPublish_Canceled(t *testing.T) {
	addon := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(validManifest))
	}))
	defer addon.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cmd := newRootCmd()
	cmd.SetArgs([]string{"--api", "http://127.0.0.1:0", addon.URL + "/manifest.json"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.ExecuteContext(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "failed to fetch manifest")
}

func TestPublish_Args(t *testing.T) {
	_, err := run(t)
	assert.Error(t, err)
}
