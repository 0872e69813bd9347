package addon

import (
	"errors"
	"fmt"

	"github.com/ogero/stremio-addon-sdk/pkg/stremio"
)

var (
	// ErrNoHandler is matched by NoHandlerError.
	ErrNoHandler = errors.New("no handler")
	// ErrSealed is returned when registering handlers after Interface was obtained.
	ErrSealed = errors.New("addon builder is sealed")
)

// InvalidManifestError is returned by NewBuilder when the manifest schema rejects the manifest.
type InvalidManifestError struct {
	Err error
}

func (e *InvalidManifestError) Error() string {
	return "invalid manifest: " + e.Err.Error()
}

func (e *InvalidManifestError) Unwrap() error {
	return e.Err
}

// DuplicateHandlerError is returned when a resource already has a handler.
type DuplicateHandlerError struct {
	Resource stremio.Resource
}

func (e *DuplicateHandlerError) Error() string {
	return fmt.Sprintf("handler for resource %q is already defined", e.Resource)
}

// UnknownResourceError is returned when registering a handler for a tag
// outside the known resource set.
type UnknownResourceError struct {
	Resource stremio.Resource
}

func (e *UnknownResourceError) Error() string {
	return fmt.Sprintf("unknown resource %q", e.Resource)
}

// MissingHandlerError reports a resource the manifest declares but no handler answers.
type MissingHandlerError struct {
	Resource stremio.Resource
}

func (e *MissingHandlerError) Error() string {
	return fmt.Sprintf("manifest definition requires handler for %s, but it is not provided (use .%s())",
		e.Resource, defineMethod(e.Resource))
}

// UnusedHandlerError reports a handler for a resource the manifest does not declare.
type UnusedHandlerError struct {
	Resource stremio.Resource
}

func (e *UnusedHandlerError) Error() string {
	if e.Resource == stremio.ResourceCatalog {
		return "manifest.catalogs is empty, catalog handler will never be called"
	}
	return "manifest.resources does not contain: " + string(e.Resource)
}

// ConsistencyError collects every manifest/handler mismatch. Its message is
// the first mismatch; errors.Is and errors.As see all of them.
type ConsistencyError struct {
	Errs []error
}

func (e *ConsistencyError) Error() string {
	return e.Errs[0].Error()
}

func (e *ConsistencyError) Unwrap() []error {
	return e.Errs
}

// NoHandlerError is returned by Addon.Get for a resource without handler.
type NoHandlerError struct {
	Resource stremio.Resource
}

func (e *NoHandlerError) Error() string {
	return "no handler for " + string(e.Resource)
}

func (e *NoHandlerError) Is(target error) bool {
	return target == ErrNoHandler
}

func defineMethod(r stremio.Resource) string {
	switch r {
	case stremio.ResourceCatalog:
		return "DefineCatalogHandler"
	case stremio.ResourceMeta:
		return "DefineMetaHandler"
	case stremio.ResourceStream:
		return "DefineStreamHandler"
	case stremio.ResourceSubtitles:
		return "DefineSubtitlesHandler"
	case stremio.ResourceAddonCatalog:
		return "DefineAddonCatalogHandler"
	default:
		return "DefineResourceHandler"
	}
}
