package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xkilldash9x/xpathfinder/api/schemas"
	"github.com/xkilldash9x/xpathfinder/internal/browser"
	"github.com/xkilldash9x/xpathfinder/internal/config"
	"github.com/xkilldash9x/xpathfinder/internal/observability"
	"github.com/xkilldash9x/xpathfinder/internal/store"
)

// newCaptureCmd creates the `capture` command, which records a page's URL and markup to CSV.
func newCaptureCmd(v *viper.Viper) *cobra.Command {
	var url string

	captureCmd := &cobra.Command{
		Use:   "capture",
		Short: "Load a page in the browser and record its URL and markup to CSV",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindFlags(v, cmd.Flags(), map[string]string{
				"output.csv_path":  "out",
				"browser.headless": "headless",
			})
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := config.NewConfigFromViper(v)
			if err != nil {
				return fmt.Errorf("failed to load or validate config: %w", err)
			}

			sink, err := store.New(cfg.Output.CSVPath, logger)
			if err != nil {
				return err
			}
			defer sink.Close()

			driver, err := browser.NewDriver(ctx, cfg.Browser, logger)
			if err != nil {
				return err
			}
			defer driver.Close(ctx)

			if err := driver.Navigate(ctx, url); err != nil {
				return err
			}
			current, err := driver.CurrentURL(ctx)
			if err != nil {
				return err
			}
			source, err := driver.PageSource(ctx)
			if err != nil {
				return err
			}
			if err := sink.Record(schemas.PageCapture{URL: current, HTML: source, CapturedAt: time.Now()}); err != nil {
				return err
			}
			if err := sink.Close(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "captured %s (%d bytes) to %s\n", current, len(source), sink.Path())
			return nil
		},
	}

	captureCmd.Flags().StringVar(&url, "url", "", "page to capture")
	captureCmd.Flags().StringP("out", "o", "output.csv", "CSV file to write")
	captureCmd.Flags().Bool("headless", true, "run the browser without a window")
	_ = captureCmd.MarkFlagRequired("url")
	return captureCmd
}
