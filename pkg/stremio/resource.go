package stremio

import (
	"encoding/json"
	"fmt"

	"github.com/samber/lo"
)

// Resource is a capability tag describing what kind of query an addon answers.
type Resource string

const (
	ResourceCatalog      Resource = "catalog"
	ResourceMeta         Resource = "meta"
	ResourceStream       Resource = "stream"
	ResourceSubtitles    Resource = "subtitles"
	ResourceAddonCatalog Resource = "addon_catalog"
)

// Resources lists every known resource tag.
var Resources = []Resource{
	ResourceCatalog,
	ResourceMeta,
	ResourceStream,
	ResourceSubtitles,
	ResourceAddonCatalog,
}

// ParseResource maps s to one of the known resource tags.
func ParseResource(s string) (Resource, bool) {
	r := Resource(s)
	return r, lo.Contains(Resources, r)
}

// PayloadKey returns the response field that carries the resource payload.
func (r Resource) PayloadKey() string {
	switch r {
	case ResourceCatalog:
		return "metas"
	case ResourceMeta:
		return "meta"
	case ResourceStream:
		return "streams"
	case ResourceSubtitles:
		return "subtitles"
	case ResourceAddonCatalog:
		return "addons"
	default:
		return ""
	}
}

// ResourceDecl is an entry of Manifest.Resources. It is either a bare resource
// name or the long form carrying supported types and id prefixes.
type ResourceDecl struct {
	Name       Resource      `json:"name"`
	Types      []ContentType `json:"types,omitempty"`
	IDPrefixes []string      `json:"idPrefixes,omitempty"`

	long bool
}

// ShortResource declares a resource by name only.
func ShortResource(name Resource) ResourceDecl {
	return ResourceDecl{Name: name}
}

// LongResource declares a resource restricted to the given types and id prefixes.
func LongResource(name Resource, types []ContentType, idPrefixes ...string) ResourceDecl {
	return ResourceDecl{Name: name, Types: types, IDPrefixes: idPrefixes, long: true}
}

// IsShort reports whether the declaration marshals as a bare resource name.
func (d ResourceDecl) IsShort() bool {
	return !d.long && len(d.Types) == 0 && len(d.IDPrefixes) == 0
}

func (d ResourceDecl) MarshalJSON() ([]byte, error) {
	if d.IsShort() {
		return json.Marshal(string(d.Name))
	}
	type long struct {
		Name       Resource      `json:"name"`
		Types      []ContentType `json:"types"`
		IDPrefixes []string      `json:"idPrefixes,omitempty"`
	}
	types := d.Types
	if types == nil {
		types = []ContentType{}
	}
	return json.Marshal(long{Name: d.Name, Types: types, IDPrefixes: d.IDPrefixes})
}

func (d *ResourceDecl) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err == nil {
		*d = ShortResource(Resource(name))
		return nil
	}

	var long struct {
		Name       Resource      `json:"name"`
		Types      []ContentType `json:"types"`
		IDPrefixes []string      `json:"idPrefixes"`
	}
	if err := json.Unmarshal(b, &long); err != nil {
		return fmt.Errorf("failed to json.Unmarshal resource declaration: %w", err)
	}
	*d = LongResource(long.Name, long.Types, long.IDPrefixes...)
	return nil
}

// DeclaredResources returns the resources the manifest implies, in order and
// without duplicates: catalog when Catalogs is non-empty, then every entry of Resources.
func (m *Manifest) DeclaredResources() []Resource {
	declared := make([]Resource, 0, len(m.Resources)+1)
	if len(m.Catalogs) > 0 {
		declared = append(declared, ResourceCatalog)
	}
	for _, r := range m.Resources {
		declared = append(declared, r.Name)
	}
	return lo.Uniq(declared)
}

// HasConfig reports whether the manifest defines user configurable settings.
func (m *Manifest) HasConfig() bool {
	return len(m.Config) > 0
}

// Clone returns a deep copy of m. Nil Resources, Types and Catalogs become
// empty slices so they serialize as JSON arrays.
func (m *Manifest) Clone() Manifest {
	c := *m
	c.Resources = make([]ResourceDecl, len(m.Resources))
	for i, r := range m.Resources {
		r.Types = cloneSlice(r.Types)
		r.IDPrefixes = cloneSlice(r.IDPrefixes)
		c.Resources[i] = r
	}
	c.Types = append(make([]ContentType, 0, len(m.Types)), m.Types...)
	c.Catalogs = cloneCatalogs(m.Catalogs)
	if c.Catalogs == nil {
		c.Catalogs = []Catalog{}
	}
	c.AddonCatalogs = cloneCatalogs(m.AddonCatalogs)
	c.IDPrefixes = cloneSlice(m.IDPrefixes)
	if m.Config != nil {
		c.Config = make([]ConfigSetting, len(m.Config))
		for i, s := range m.Config {
			s.Options = cloneSlice(s.Options)
			c.Config[i] = s
		}
	}
	if m.BehaviorHints != nil {
		hints := *m.BehaviorHints
		c.BehaviorHints = &hints
	}
	return c
}

// Sanitized returns a copy of m as served to a client that already supplied
// its configuration: configurable and configurationRequired are stripped.
func (m *Manifest) Sanitized() Manifest {
	c := m.Clone()
	if c.BehaviorHints != nil {
		c.BehaviorHints.Configurable = false
		c.BehaviorHints.ConfigurationRequired = false
	}
	return c
}

func cloneCatalogs(catalogs []Catalog) []Catalog {
	if catalogs == nil {
		return nil
	}
	out := make([]Catalog, len(catalogs))
	for i, c := range catalogs {
		if c.Extra != nil {
			extra := make([]CatalogExtra, len(c.Extra))
			for j, e := range c.Extra {
				e.Options = cloneSlice(e.Options)
				extra[j] = e
			}
			c.Extra = extra
		}
		out[i] = c
	}
	return out
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	return append(make([]T, 0, len(s)), s...)
}
