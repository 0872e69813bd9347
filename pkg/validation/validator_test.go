package validation_test

import (
	"testing"

	"github.com/ogero/stremio-addon-sdk/pkg/stremio"
	"github.com/ogero/stremio-addon-sdk/pkg/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testManifest() stremio.Manifest {
	return stremio.Manifest{
		ID:          "org.example.addon",
		Version:     "1.0.0",
		Name:        "Example",
		Description: "Example addon",
		Resources:   []stremio.ResourceDecl{stremio.ShortResource(stremio.ResourceStream)},
		Types:       []stremio.ContentType{stremio.ContentTypeMovie},
		Catalogs:    []stremio.Catalog{},
	}
}

func TestValidate(t *testing.T) {
	m := testManifest()

	t.Run("value", func(t *testing.T) {
		schema := validation.SchemaFunc(func(input any) validation.Outcome {
			return validation.Result{Value: &m}
		})
		got, err := validation.Validate(schema, m)
		require.NoError(t, err)
		assert.Equal(t, &m, got)
	})

	t.Run("issues", func(t *testing.T) {
		schema := validation.SchemaFunc(func(input any) validation.Outcome {
			return validation.Result{Issues: []validation.Issue{{Message: "first"}, {Message: "second"}}}
		})
		_, err := validation.Validate(schema, m)

		var verr *validation.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "first", err.Error())
		assert.Len(t, verr.Issues, 2)
		assert.NotErrorIs(t, err, validation.ErrDeferredResult)
	})

	t.Run("deferred", func(t *testing.T) {
		schema := validation.SchemaFunc(func(input any) validation.Outcome {
			c := make(chan validation.Result, 1)
			c <- validation.Result{Value: &m}
			return validation.Deferred{C: c}
		})
		_, err := validation.Validate(schema, m)

		var verr *validation.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.ErrorIs(t, err, validation.ErrDeferredResult)
	})

	t.Run("no value", func(t *testing.T) {
		schema := validation.SchemaFunc(func(input any) validation.Outcome {
			return validation.Result{}
		})
		_, err := validation.Validate(schema, m)
		assert.Error(t, err)
	})
}

func TestJSONSchema(t *testing.T) {
	tests := []struct {
		name    string
		input   any
		wantErr assert.ErrorAssertionFunc
	}{
		{"struct", testManifest(), assert.NoError},
		{"pointer", func() *stremio.Manifest { m := testManifest(); return &m }(), assert.NoError},
		{
			"raw long resource",
			[]byte(`{"id":"a.b","version":"1.0.0","name":"n","description":"d","types":["movie"],"catalogs":[],
				"resources":[{"name":"stream","types":["movie"],"idPrefixes":["tt"]},"meta"]}`),
			assert.NoError,
		},
		{"null", nil, assert.Error},
		{"not an object", []byte(`["a"]`), assert.Error},
		{"missing fields", []byte(`{"name":"something"}`), assert.Error},
		{
			"unknown resource",
			[]byte(`{"id":"a.b","version":"1.0.0","name":"n","description":"d","types":["movie"],"catalogs":[],"resources":["streams"]}`),
			assert.Error,
		},
		{
			"empty id",
			[]byte(`{"id":"","version":"1.0.0","name":"n","description":"d","types":["movie"],"catalogs":[],"resources":["stream"]}`),
			assert.Error,
		},
		{
			"bad config type",
			[]byte(`{"id":"a.b","version":"1.0.0","name":"n","description":"d","types":["movie"],"catalogs":[],"resources":["stream"],
				"config":[{"key":"k","type":"color"}]}`),
			assert.Error,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := validation.Validate(validation.JSONSchema(), tt.input)
			tt.wantErr(t, err)
		})
	}
}

func TestJSONSchema_DecodesValue(t *testing.T) {
	got, err := validation.Validate(validation.JSONSchema(), []byte(
		`{"id":"a.b","version":"1.0.0","name":"n","description":"d","types":["movie"],"catalogs":[],"resources":["stream"]}`,
	))
	require.NoError(t, err)

	assert.Equal(t, "a.b", got.ID)
	assert.Equal(t, []stremio.Resource{stremio.ResourceStream}, got.DeclaredResources())
}
