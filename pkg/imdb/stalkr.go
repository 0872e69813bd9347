package imdb

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/StalkR/imdb"
	"github.com/ogero/stremio-addon-sdk/pkg/transport"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type stalkrIMDB struct {
	httpClient *http.Client
	getTitle   func(c *http.Client, id string) (*imdb.Title, error)
}

// NewStalkrIMDB creates a new instance of the Stalkr implementation of the IMDB service.
func NewStalkrIMDB() IMDB {

	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 100
	t.MaxConnsPerHost = 100
	t.MaxIdleConnsPerHost = 100

	rt := transport.NewHeadersRoundTripper(t,
		transport.WithAcceptLanguage("en"), // avoid IP-based language detection
		transport.WithUserAgent("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/107.0.0.0 Safari/537.36"),
	)

	return &stalkrIMDB{
		httpClient: &http.Client{
			Timeout:   time.Second * 10,
			Transport: rt,
		},
		getTitle: imdb.NewTitle,
	}
}

// GetTitle gets a Title by its ID.
func (c *stalkrIMDB) GetTitle(ctx context.Context, imdbID string) (*Title, error) {

	_, span := trace.SpanFromContext(ctx).TracerProvider().Tracer("").Start(ctx, "imdb.IMDB.GetTitle")
	defer span.End()
	span.SetAttributes(attribute.String("imdb.id", imdbID))

	imdbResult, err := c.getTitle(c.httpClient, imdbID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "get title failed")
		return nil, fmt.Errorf("failed to stalkrIMDB.getTitle: %w", err)
	}

	fullName := func(n imdb.Name, _ int) string { return n.FullName }

	return &Title{
		ID:          imdbID,
		Name:        imdbResult.Name,
		Year:        imdbResult.Year,
		Description: imdbResult.Description,
		Genres:      imdbResult.Genres,
		Rating:      imdbResult.Rating,
		Runtime:     imdbResult.Duration,
		Poster:      imdbResult.Poster.ContentURL,
		Directors:   lo.Map(imdbResult.Directors, fullName),
		Cast:        lo.Map(imdbResult.Actors, fullName),
	}, nil
}
