package internal

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/ogero/stremio-addon-sdk/pkg/stremio"
)

const metahubURL = "https://images.metahub.space"

// exampleTitle is an entry of the bundled catalog.
type exampleTitle struct {
	ID     string
	Stream stremio.Stream
}

// exampleTitles is the public domain dataset served by the addon, in catalog order.
var exampleTitles = []exampleTitle{
	// fileIdx is the index of the file within the torrent; without it the largest file is selected
	{ID: "tt0032138", Stream: stremio.Stream{Name: "The Wizard of Oz", InfoHash: "24c8802e2624e17d46cd555f364debd949f2c81e", FileIndex: intPtr(0)}},
	{ID: "tt0017136", Stream: stremio.Stream{Name: "Metropolis", InfoHash: "dca926c0328bb54d209d82dc8a2f391617b47d7a", FileIndex: intPtr(1)}},
	{ID: "tt0063350", Stream: mustFromMagnet("Night of the Living Dead",
		"magnet:?xt=urn:btih:A7CFBB7840A8B67FD735AC73A373302D14A7CDC9&dn=night+of+the+living+dead+1968+remastered+bdrip+1080p+ita+eng+x265+nahom&tr=udp%3A%2F%2Ftracker.publicbt.com%2Fannounce&tr=udp%3A%2F%2Fglotorrents.pw%3A6969%2Fannounce&tr=udp%3A%2F%2Ftracker.openbittorrent.com%3A80%2Fannounce")},
	{ID: "tt0051744", Stream: stremio.Stream{Name: "House on Haunted Hill", InfoHash: "9f86563ce2ed86bbfedd5d3e9f4e55aedd660960"}},
	{ID: "tt1254207", Stream: stremio.Stream{Name: "Big Buck Bunny", URL: "http://clips.vorwaerts-gmbh.de/big_buck_bunny.mp4"}},
	{ID: "tt0031051", Stream: stremio.Stream{Name: "The Arizona Kid", YouTubeID: "m3BKVSpP80s"}},
	{ID: "tt0137523", Stream: stremio.Stream{Name: "Fight Club", ExternalURL: "https://www.netflix.com/watch/26004747"}},
}

// exampleSubtitle is a subtitle file bundled under subtitles/.
type exampleSubtitle struct {
	File string
	Lang string
}

// exampleSubtitles maps IMDb title ids to their bundled subtitle files.
var exampleSubtitles = map[string][]exampleSubtitle{
	"tt1254207": {
		{File: "big-buck-bunny.en.srt", Lang: "eng"},
		{File: "big-buck-bunny.es.srt", Lang: "spa"},
	},
	"tt0032138": {
		{File: "the-wizard-of-oz.en.srt", Lang: "eng"},
	},
}

func findExampleTitle(id string) (exampleTitle, bool) {
	for _, t := range exampleTitles {
		if t.ID == id {
			return t, true
		}
	}
	return exampleTitle{}, false
}

func posterURL(imdbID string) string {
	return fmt.Sprintf("%s/poster/medium/%s/img", metahubURL, imdbID)
}

// fromMagnet builds a torrent stream from a magnet link. Trackers become
// stream sources next to the DHT.
func fromMagnet(name, magnet string) (stremio.Stream, error) {
	u, err := url.Parse(magnet)
	if err != nil {
		return stremio.Stream{}, fmt.Errorf("failed to url.Parse: %w", err)
	}
	if u.Scheme != "magnet" {
		return stremio.Stream{}, fmt.Errorf("not a magnet link: %q", magnet)
	}

	q := u.Query()
	infoHash, ok := strings.CutPrefix(q.Get("xt"), "urn:btih:")
	if !ok || infoHash == "" {
		return stremio.Stream{}, fmt.Errorf("magnet link without btih: %q", magnet)
	}
	infoHash = strings.ToLower(infoHash)

	sources := make([]string, 0, len(q["tr"])+1)
	for _, tr := range q["tr"] {
		sources = append(sources, "tracker:"+tr)
	}
	sources = append(sources, "dht:"+infoHash)

	return stremio.Stream{
		Name:     name,
		InfoHash: infoHash,
		Sources:  sources,
	}, nil
}

func mustFromMagnet(name, magnet string) stremio.Stream {
	s, err := fromMagnet(name, magnet)
	if err != nil {
		panic(err)
	}
	return s
}

func intPtr(i int) *int {
	return &i
}
