package imdb

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/StalkR/imdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStalkrIMDB_GetTitle(t *testing.T) {

	s := &stalkrIMDB{
		httpClient: &http.Client{},
		getTitle: func(c *http.Client, id string) (*imdb.Title, error) {
			if id == "tt1254207" {
				return &imdb.Title{
					Name:        "Big Buck Bunny",
					Year:        2008,
					Description: "A large and lovable rabbit deals with three tiny bullies.",
					Genres:      []string{"Animation", "Short"},
					Rating:      "6.4",
					Duration:    "10m",
					Directors:   []imdb.Name{{FullName: "Sacha Goedegebure"}},
					Actors:      []imdb.Name{{FullName: "Sacha Goedegebure"}, {FullName: "Jan Morgenstern"}},
				}, nil
			}
			return nil, fmt.Errorf("expected id tt1254207, got %s", id)
		},
	}

	title, err := s.GetTitle(context.Background(), "tt1254207")
	require.NoError(t, err)

	assert.Equal(t, &Title{
		ID:          "tt1254207",
		Name:        "Big Buck Bunny",
		Year:        2008,
		Description: "A large and lovable rabbit deals with three tiny bullies.",
		Genres:      []string{"Animation", "Short"},
		Rating:      "6.4",
		Runtime:     "10m",
		Directors:   []string{"Sacha Goedegebure"},
		Cast:        []string{"Sacha Goedegebure", "Jan Morgenstern"},
	}, title)

	_, err = s.GetTitle(context.Background(), "tt0000001")
	assert.Error(t, err)
}
