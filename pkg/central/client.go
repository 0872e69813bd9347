package central

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ogero/stremio-addon-sdk/pkg/transport"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultAPIURL is the Stremio API that hosts the central addon registry.
const DefaultAPIURL = "https://api.strem.io"

const userAgent = "stremio-addon-sdk-go"

// PublishError is the error reported by the registry for a rejected addon.
type PublishError struct {
	// Raw is the error value exactly as returned by the API.
	Raw json.RawMessage
}

func (e *PublishError) Error() string {
	var msg string
	if err := json.Unmarshal(e.Raw, &msg); err == nil {
		return "addon publish rejected: " + msg
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(e.Raw, &obj); err == nil && obj.Message != "" {
		return "addon publish rejected: " + obj.Message
	}
	return "addon publish rejected: " + string(e.Raw)
}

// Client publishes addons to the central registry.
type Client struct {
	apiURL     string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Its transport is
// wrapped to set the JSON and user agent headers.
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.httpClient = c
	}
}

// NewClient creates a registry client for apiURL. An empty apiURL means DefaultAPIURL.
func NewClient(apiURL string, opts ...Option) *Client {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	c := &Client{
		apiURL:     strings.TrimSuffix(apiURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}

	httpClient := *c.httpClient
	httpClient.Transport = transport.NewHeadersRoundTripper(httpClient.Transport,
		transport.WithUserAgent(userAgent),
		transport.WithJSON(),
	)
	c.httpClient = &httpClient

	return c
}

type publishRequest struct {
	TransportURL  string `json:"transportUrl"`
	TransportName string `json:"transportName"`
}

type publishResponse struct {
	Result json.RawMessage `json:"result"`
	Error  json.RawMessage `json:"error"`
}

// Publish submits the manifest URL of an addon to the registry and returns
// the registry result. A registry error is returned as *PublishError.
func (c *Client) Publish(ctx context.Context, addonURL string) (json.RawMessage, error) {
	ctx, span := trace.SpanFromContext(ctx).TracerProvider().Tracer("").Start(ctx, "central.Client.Publish")
	defer span.End()
	span.SetAttributes(attribute.String("addon.url", addonURL))

	result, err := c.publish(ctx, addonURL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "publish failed")
	}
	return result, err
}

func (c *Client) publish(ctx context.Context, addonURL string) (json.RawMessage, error) {
	body, err := json.Marshal(publishRequest{TransportURL: addonURL, TransportName: "http"})
	if err != nil {
		return nil, fmt.Errorf("failed to json.Marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/api/addonPublish", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to http.NewRequestWithContext: %w", err)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to http.Client.Do: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	resBody, err := transport.ReadBody(res.Body)
	if err != nil {
		return nil, err
	}

	var reply publishResponse
	if err = json.Unmarshal(resBody, &reply); err != nil {
		return nil, fmt.Errorf("failed to json.Unmarshal reply (status %d): %w", res.StatusCode, err)
	}
	if len(reply.Error) > 0 && !isFalsy(reply.Error) {
		return nil, &PublishError{Raw: reply.Error}
	}

	return reply.Result, nil
}

// isFalsy reports whether raw is a JSON value that does not signal an error.
func isFalsy(raw json.RawMessage) bool {
	switch string(bytes.TrimSpace(raw)) {
	case "null", "false", `""`, "0":
		return true
	}
	return false
}
