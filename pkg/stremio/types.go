package stremio

// ContentType is a Stremio content type tag such as "movie" or "series".
type ContentType string

const (
	ContentTypeMovie   ContentType = "movie"
	ContentTypeSeries  ContentType = "series"
	ContentTypeChannel ContentType = "channel"
	ContentTypeTV      ContentType = "tv"
)

// Manifest represents a Stremio addon manifest
type Manifest struct {
	ID            string          `json:"id" jsonschema:"minLength=1"`
	Version       string          `json:"version" jsonschema:"minLength=1"`
	Name          string          `json:"name" jsonschema:"minLength=1"`
	Description   string          `json:"description" jsonschema:"minLength=1"`
	Resources     []ResourceDecl  `json:"resources"`
	Types         []ContentType   `json:"types"`
	Catalogs      []Catalog       `json:"catalogs"`
	AddonCatalogs []Catalog       `json:"addonCatalogs,omitempty"`
	IDPrefixes    []string        `json:"idPrefixes,omitempty"`
	Config        []ConfigSetting `json:"config,omitempty"`
	Background    string          `json:"background,omitempty"`
	Logo          string          `json:"logo,omitempty"`
	ContactEmail  string          `json:"contactEmail,omitempty"`
	BehaviorHints *BehaviorHints  `json:"behaviorHints,omitempty"`
}

// Catalog represents a Stremio manifest catalog item
type Catalog struct {
	Type  ContentType    `json:"type" jsonschema:"minLength=1"`
	ID    string         `json:"id" jsonschema:"minLength=1"`
	Name  string         `json:"name"`
	Extra []CatalogExtra `json:"extra,omitempty"`
}

// CatalogExtra declares an extra property a catalog accepts, e.g. "search" or "skip".
type CatalogExtra struct {
	Name         string   `json:"name" jsonschema:"minLength=1"`
	IsRequired   bool     `json:"isRequired,omitempty"`
	Options      []string `json:"options,omitempty"`
	OptionsLimit int      `json:"optionsLimit,omitempty"`
}

// ConfigSetting is a user configurable addon setting.
type ConfigSetting struct {
	Key      string   `json:"key" jsonschema:"minLength=1"`
	Type     string   `json:"type" jsonschema:"enum=text,enum=number,enum=password,enum=checkbox,enum=select"`
	Default  string   `json:"default,omitempty"`
	Title    string   `json:"title,omitempty"`
	Options  []string `json:"options,omitempty"`
	Required bool     `json:"required,omitempty"`
}

// BehaviorHints tells the client how to present the addon.
type BehaviorHints struct {
	Adult                 bool `json:"adult,omitempty"`
	P2P                   bool `json:"p2p,omitempty"`
	Configurable          bool `json:"configurable,omitempty"`
	ConfigurationRequired bool `json:"configurationRequired,omitempty"`
}

// Stream tells the client how to obtain the media content.
type Stream struct {
	URL           string               `json:"url,omitempty"`
	YouTubeID     string               `json:"ytId,omitempty"`
	InfoHash      string               `json:"infoHash,omitempty"`
	FileIndex     *int                 `json:"fileIdx,omitempty"`
	ExternalURL   string               `json:"externalUrl,omitempty"`
	Name          string               `json:"name,omitempty"`
	Title         string               `json:"title,omitempty"`
	Description   string               `json:"description,omitempty"`
	Subtitles     []Subtitle           `json:"subtitles,omitempty"`
	Sources       []string             `json:"sources,omitempty"`
	BehaviorHints *StreamBehaviorHints `json:"behaviorHints,omitempty"`
}

// StreamBehaviorHints carries stream playback hints.
type StreamBehaviorHints struct {
	CountryWhitelist []string `json:"countryWhitelist,omitempty"`
	NotWebReady      bool     `json:"notWebReady,omitempty"`
	BingeGroup       string   `json:"bingeGroup,omitempty"`
	VideoHash        string   `json:"videoHash,omitempty"`
	VideoSize        int64    `json:"videoSize,omitempty"`
	Filename         string   `json:"filename,omitempty"`
}

// MetaPreview is the summarized meta item listed in catalogs.
type MetaPreview struct {
	ID          string      `json:"id"`
	Type        ContentType `json:"type"`
	Name        string      `json:"name"`
	Poster      string      `json:"poster,omitempty"`
	PosterShape string      `json:"posterShape,omitempty"`
	Background  string      `json:"background,omitempty"`
	Logo        string      `json:"logo,omitempty"`
	Description string      `json:"description,omitempty"`
}

// MetaDetail is the detailed description of a meta item.
type MetaDetail struct {
	MetaPreview
	Genres      []string    `json:"genres,omitempty"`
	ReleaseInfo string      `json:"releaseInfo,omitempty"`
	Director    []string    `json:"director,omitempty"`
	Cast        []string    `json:"cast,omitempty"`
	IMDbRating  string      `json:"imdbRating,omitempty"`
	Released    string      `json:"released,omitempty"`
	Links       []MetaLink  `json:"links,omitempty"`
	Videos      []MetaVideo `json:"videos,omitempty"`
	Runtime     string      `json:"runtime,omitempty"`
	Language    string      `json:"language,omitempty"`
	Country     string      `json:"country,omitempty"`
	Awards      string      `json:"awards,omitempty"`
	Website     string      `json:"website,omitempty"`
}

// MetaLink links a meta item to internal pages or external URLs.
type MetaLink struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	URL      string `json:"url"`
}

// MetaVideo is a single video (e.g. an episode) of a meta item.
type MetaVideo struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Released  string   `json:"released"`
	Thumbnail string   `json:"thumbnail,omitempty"`
	Streams   []Stream `json:"streams,omitempty"`
	Available bool     `json:"available,omitempty"`
	Season    int      `json:"season,omitempty"`
	Episode   int      `json:"episode,omitempty"`
	Overview  string   `json:"overview,omitempty"`
}

// Subtitle represents a Stremio subtitle
type Subtitle struct {
	ID   string `json:"id"`
	Lang string `json:"lang"`
	URL  string `json:"url"`
}

// AddonCatalogItem is an entry of an addon_catalog response.
type AddonCatalogItem struct {
	TransportName string   `json:"transportName"`
	TransportURL  string   `json:"transportUrl"`
	Manifest      Manifest `json:"manifest"`
}
