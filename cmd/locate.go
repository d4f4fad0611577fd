package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	json "github.com/json-iterator/go"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/xpathfinder/internal/browser"
	"github.com/xkilldash9x/xpathfinder/internal/config"
	"github.com/xkilldash9x/xpathfinder/internal/llmclient"
	"github.com/xkilldash9x/xpathfinder/internal/locator"
	"github.com/xkilldash9x/xpathfinder/internal/observability"
)

// newLocateCmd creates the `locate` command.
func newLocateCmd(v *viper.Viper) *cobra.Command {
	var (
		htmlPath string
		url      string
		target   string
		asJSON   bool
	)

	locateCmd := &cobra.Command{
		Use:   "locate",
		Short: "Resolve an XPath for a described element in a page",
		Long: `Splits the page markup into line-aligned segments and asks the completion
service, one segment at a time, for an XPath of the described element. The first
answer that is an absolute path wins. The markup comes from a local file (--html)
or from a page loaded in the browser (--url).`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if (htmlPath == "") == (url == "") {
				return errors.New("exactly one of --html or --url is required")
			}
			return bindFlags(v, cmd.Flags(), map[string]string{
				"locator.verify_exists":     "verify",
				"locator.max_segment_chars": "max-segment-chars",
			})
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := config.NewConfigFromViper(v)
			if err != nil {
				return fmt.Errorf("failed to load or validate config: %w", err)
			}

			var doc string
			if htmlPath != "" {
				doc, err = readDocument(htmlPath)
			} else {
				doc, err = fetchDocument(cmd, cfg, url, logger)
			}
			if err != nil {
				return err
			}

			client, err := llmclient.NewClient(ctx, cfg.LLM, logger)
			if err != nil {
				return fmt.Errorf("failed to create completion client: %w", err)
			}
			defer client.Close()

			resolver := locator.New(client, cfg.Locator, logger)
			result, resolveErr := resolver.ResolveDocument(ctx, doc, locator.Target{Description: target})
			if result != nil {
				if err := printResult(cmd.OutOrStdout(), result, asJSON); err != nil {
					return err
				}
			}
			return resolveErr
		},
	}

	locateCmd.Flags().StringVar(&htmlPath, "html", "", "local HTML file to search")
	locateCmd.Flags().StringVar(&url, "url", "", "page to load in the browser and search")
	locateCmd.Flags().StringVarP(&target, "target", "t", "", "natural-language description of the element")
	locateCmd.Flags().Bool("verify", false, "reject locators that match nothing in the page")
	locateCmd.Flags().Int("max-segment-chars", 12000, "character budget of one segment")
	locateCmd.Flags().BoolVar(&asJSON, "json", false, "print the full resolution result as JSON")
	_ = locateCmd.MarkFlagRequired("target")
	return locateCmd
}

func readDocument(path string) (string, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", fmt.Errorf("failed to expand path %q: %w", path, err)
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		return "", fmt.Errorf("failed to read HTML file: %w", err)
	}
	return string(data), nil
}

// fetchDocument loads url in a short-lived browser and returns its markup.
func fetchDocument(cmd *cobra.Command, cfg *config.Config, url string, logger *zap.Logger) (string, error) {
	ctx := cmd.Context()
	driver, err := browser.NewDriver(ctx, cfg.Browser, logger)
	if err != nil {
		return "", err
	}
	defer driver.Close(ctx)

	if err := driver.Navigate(ctx, url); err != nil {
		return "", err
	}
	return driver.PageSource(ctx)
}

func printResult(w io.Writer, result *locator.Result, asJSON bool) error {
	if asJSON {
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		_, err = fmt.Fprintln(w, string(out))
		return err
	}

	if !result.Found {
		_, err := fmt.Fprintf(w, "not found after %d segment(s), %d service failure(s)\n",
			len(result.Attempts), len(result.ServiceFailures()))
		return err
	}
	if _, err := fmt.Fprintf(w, "%s\n", result.Locator); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "segment: %d\n", result.SegmentIndex); err != nil {
		return err
	}
	if result.Canonical != "" {
		if _, err := fmt.Fprintf(w, "canonical: %s\n", result.Canonical); err != nil {
			return err
		}
	}
	return nil
}
