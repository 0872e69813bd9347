package imdb

import "context"

// Title holds the IMDb details the addon shows for a movie or series.
type Title struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Year        int      `json:"year"`
	Description string   `json:"description,omitempty"`
	Genres      []string `json:"genres,omitempty"`
	Rating      string   `json:"rating,omitempty"`
	Runtime     string   `json:"runtime,omitempty"`
	Poster      string   `json:"poster,omitempty"`
	Directors   []string `json:"directors,omitempty"`
	Cast        []string `json:"cast,omitempty"`
}

// IMDB defines the methods to interact with the IMDB service.
type IMDB interface {
	// GetTitle gets a Title by its ID.
	GetTitle(ctx context.Context, imdbID string) (*Title, error)
}
