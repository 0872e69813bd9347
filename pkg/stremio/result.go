package stremio

import (
	"math"
	"net/url"
)

// Query is a typed resource query, built once per request from the URL path.
type Query struct {
	Resource Resource
	Type     ContentType
	ID       string
	// Extra holds the free-form extra properties, e.g. search or skip.
	Extra url.Values
	// Config holds the user supplied configuration, decoded from JSON.
	Config map[string]any
}

// Directives are the optional caching and redirect instructions a handler
// result may carry. Cache values are in seconds.
type Directives struct {
	CacheMaxAge     *int   `json:"cacheMaxAge,omitempty"`
	StaleRevalidate *int   `json:"staleRevalidate,omitempty"`
	StaleError      *int   `json:"staleError,omitempty"`
	Redirect        string `json:"redirect,omitempty"`
}

func (d Directives) directives() Directives {
	return d
}

// Seconds is a helper for filling Directives fields.
func Seconds(n int) *int {
	return &n
}

// Result is the value a resource handler resolves to. It is serialized as
// the JSON response body unless it carries a redirect. Custom result types
// implement it by embedding Directives.
type Result interface {
	directives() Directives
}

// DirectivesOf returns the caching and redirect directives of r.
func DirectivesOf(r Result) Directives {
	if r == nil {
		return Directives{}
	}
	return r.directives()
}

// StreamsResponse is the result of a stream handler.
type StreamsResponse struct {
	Streams []Stream `json:"streams"`
	Directives
}

// MetasResponse is the result of a catalog handler.
type MetasResponse struct {
	Metas []MetaPreview `json:"metas"`
	Directives
}

// MetaResponse is the result of a meta handler.
type MetaResponse struct {
	Meta MetaDetail `json:"meta"`
	Directives
}

// SubtitlesResponse is the result of a subtitles handler.
type SubtitlesResponse struct {
	Subtitles []Subtitle `json:"subtitles"`
	Directives
}

// AddonsResponse is the result of an addon_catalog handler.
type AddonsResponse struct {
	Addons []AddonCatalogItem `json:"addons"`
	Directives
}

// RawResult is a free-form result. Directives are read from the
// cacheMaxAge, staleRevalidate, staleError and redirect keys; cache values
// count only when they are integers.
type RawResult map[string]any

func (r RawResult) directives() Directives {
	d := Directives{
		CacheMaxAge:     integer(r["cacheMaxAge"]),
		StaleRevalidate: integer(r["staleRevalidate"]),
		StaleError:      integer(r["staleError"]),
	}
	if redirect, ok := r["redirect"].(string); ok {
		d.Redirect = redirect
	}
	return d
}

func integer(v any) *int {
	switch n := v.(type) {
	case int:
		return &n
	case int64:
		if n < math.MinInt || n > math.MaxInt {
			return nil
		}
		i := int(n)
		return &i
	case float64:
		// float64(math.MaxInt) rounds up to 2^63, which int cannot hold.
		if n != math.Trunc(n) || n < math.MinInt || n >= math.MaxInt {
			return nil
		}
		i := int(n)
		return &i
	default:
		return nil
	}
}
