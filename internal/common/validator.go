package common

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	imdbTitleIDRE      = regexp.MustCompile(`^tt\d+$`)
	subtitleFileNameRE = regexp.MustCompile(`^[a-z0-9]+(?:[-_.][a-z0-9]+)*\.srt$`)
)

// ValidateIMDBTitleID checks if the given IMDB title ID is valid.
// It ensures the title starts with 'tt' followed by a numeric suffix.
func ValidateIMDBTitleID(ID string) error {

	if !imdbTitleIDRE.MatchString(ID) {
		return errors.New("invalid IMDB title")
	}

	return nil
}

// ValidateContentType checks if the content type is served by the example addon.
// It expects 'movie' and 'series' as valid types.
func ValidateContentType(t string) error {
	if t != "movie" && t != "series" {
		return errors.New("invalid content type, only movie and series are supported")
	}

	return nil
}

// ValidateSubtitleFileName checks if name looks like a bundled subtitle file,
// a lowercase slug with the .srt extension.
func ValidateSubtitleFileName(name string) error {
	if !subtitleFileNameRE.MatchString(name) {
		return errors.New("invalid subtitle file name")
	}

	return nil
}

// ParseVideoID splits a Stremio video id of the form "tt123" or
// "tt123:season:episode" into its parts. Season and episode are 0 for movies.
func ParseVideoID(id string) (imdbID string, season, episode int, err error) {
	parts := strings.Split(id, ":")
	imdbID = parts[0]
	if err = ValidateIMDBTitleID(imdbID); err != nil {
		return "", 0, 0, err
	}

	switch len(parts) {
	case 1:
		return imdbID, 0, 0, nil
	case 3:
		if season, err = strconv.Atoi(parts[1]); err != nil || season < 0 {
			return "", 0, 0, fmt.Errorf("invalid season %q", parts[1])
		}
		if episode, err = strconv.Atoi(parts[2]); err != nil || episode < 0 {
			return "", 0, 0, fmt.Errorf("invalid episode %q", parts[2])
		}
		return imdbID, season, episode, nil
	default:
		return "", 0, 0, fmt.Errorf("invalid video id %q", id)
	}
}
