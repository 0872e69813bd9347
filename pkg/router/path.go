package router

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/ogero/stremio-addon-sdk/pkg/stremio"
	"github.com/samber/lo"
)

const manifestSegment = "manifest"

// params are the path parameters of a resource request. Every field but
// rawExtra is already percent-decoded.
type params struct {
	config   string
	resource string
	typ      string
	id       string
	rawExtra string
}

// splitPath splits an escaped path ending in ".json" into its non empty
// segments, with the suffix removed.
func splitPath(escaped string) ([]string, bool) {
	rest, ok := strings.CutPrefix(escaped, "/")
	if !ok {
		return nil, false
	}
	rest, ok = strings.CutSuffix(rest, ".json")
	if !ok || rest == "" {
		return nil, false
	}
	segments := strings.Split(rest, "/")
	if lo.Contains(segments, "") {
		return nil, false
	}
	return segments, true
}

// matchManifest matches /manifest.json and, when the manifest has config
// settings, /{config}/manifest.json. It returns the decoded config segment.
func (rt *Router) matchManifest(segments []string) (string, bool) {
	switch {
	case len(segments) == 1 && segments[0] == manifestSegment:
		return "", true
	case len(segments) == 2 && segments[1] == manifestSegment && rt.hasConfig:
		config, err := url.PathUnescape(segments[0])
		if err != nil {
			return "", false
		}
		return config, true
	}
	return "", false
}

// matchResource matches the resource routes:
//
//	/{resource}/{type}/{id}.json
//	/{resource}/{type}/{id}/{extra}.json
//	/{config}/{resource}/{type}/{id}.json
//	/{config}/{resource}/{type}/{id}/{extra}.json
//
// The config forms exist only when the manifest has config settings. Four
// segments then read both ways; the config reading wins when its resource
// is declared, otherwise the extra reading wins when its resource is.
func (rt *Router) matchResource(segments []string) (params, bool) {
	switch len(segments) {
	case 3:
		return decodeParams("", segments[0], segments[1], segments[2], "")
	case 4:
		withExtra, extraOK := decodeParams("", segments[0], segments[1], segments[2], segments[3])
		if !rt.hasConfig {
			return withExtra, extraOK
		}
		withConfig, configOK := decodeParams(segments[0], segments[1], segments[2], segments[3], "")
		switch {
		case configOK && rt.isDeclared(withConfig.resource):
			return withConfig, true
		case extraOK && rt.isDeclared(withExtra.resource):
			return withExtra, true
		default:
			return withConfig, configOK
		}
	case 5:
		if !rt.hasConfig {
			return params{}, false
		}
		return decodeParams(segments[0], segments[1], segments[2], segments[3], segments[4])
	}
	return params{}, false
}

func (rt *Router) isDeclared(name string) bool {
	r, ok := stremio.ParseResource(name)
	return ok && lo.Contains(rt.declared, r)
}

func decodeParams(config, resource, typ, id, rawExtra string) (params, bool) {
	var err error
	p := params{rawExtra: rawExtra}
	if p.config, err = url.PathUnescape(config); err != nil {
		return params{}, false
	}
	if p.resource, err = url.PathUnescape(resource); err != nil {
		return params{}, false
	}
	if p.typ, err = url.PathUnescape(typ); err != nil {
		return params{}, false
	}
	if p.id, err = url.PathUnescape(id); err != nil {
		return params{}, false
	}
	return p, true
}

// parseExtra parses the raw extra segment as a query string. Malformed pairs
// are skipped.
func parseExtra(raw string) url.Values {
	values, _ := url.ParseQuery(raw)
	if values == nil {
		return url.Values{}
	}
	return values
}

// parseConfig decodes the config segment as a JSON object. Anything else
// yields an empty config.
func parseConfig(s string) map[string]any {
	config := map[string]any{}
	if s == "" {
		return config
	}
	if err := json.Unmarshal([]byte(s), &config); err != nil || config == nil {
		return map[string]any{}
	}
	return config
}
