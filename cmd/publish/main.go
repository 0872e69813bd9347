// Command publish announces an addon to the Stremio central registry.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/ogero/stremio-addon-sdk/pkg/central"
	"github.com/ogero/stremio-addon-sdk/pkg/transport"
	"github.com/ogero/stremio-addon-sdk/pkg/validation"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		apiURL    string
		timeout   time.Duration
		skipCheck bool
	)

	cmd := &cobra.Command{
		Use:   "publish <manifest-url>",
		Short: "Publish an addon to the Stremio central registry",
		Long: "Publish an addon to the Stremio central registry.\n\n" +
			"The manifest is fetched and validated first, unless --skip-check is given.",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			addonURL := args[0]
			httpClient := &http.Client{Timeout: timeout}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil))

			if !skipCheck {
				if err := checkManifest(ctx, httpClient, addonURL, logger); err != nil {
					return err
				}
			}

			result, err := central.NewClient(apiURL, central.WithHTTPClient(httpClient)).Publish(ctx, addonURL)
			if err != nil {
				return fmt.Errorf("failed to central.Client.Publish: %w", err)
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Published %s: %s\n", addonURL, result)
			return err
		},
	}

	cmd.Flags().StringVar(&apiURL, "api", central.DefaultAPIURL, "Stremio API base URL")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "HTTP timeout")
	cmd.Flags().BoolVar(&skipCheck, "skip-check", false, "Publish without fetching and validating the manifest")

	return cmd
}

// checkManifest fetches the manifest at addonURL and validates it with the
// lint profile. Lint warnings are logged.
func checkManifest(ctx context.Context, httpClient *http.Client, addonURL string, logger *slog.Logger) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addonURL, nil)
	if err != nil {
		return fmt.Errorf("failed to http.NewRequestWithContext: %w", err)
	}

	res, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch manifest: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to fetch manifest: unexpected status %d", res.StatusCode)
	}

	body, err := transport.ReadBody(res.Body)
	if err != nil {
		return fmt.Errorf("failed to read manifest: %w", err)
	}

	schema := validation.LintSchema(validation.JSONSchema(), logger)
	if _, err = validation.Validate(schema, json.RawMessage(body)); err != nil {
		return fmt.Errorf("invalid manifest: %w", err)
	}
	return nil
}
