package cmd

import (
	"errors"
	"fmt"

	json "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xkilldash9x/xpathfinder/internal/browser"
	"github.com/xkilldash9x/xpathfinder/internal/config"
	"github.com/xkilldash9x/xpathfinder/internal/llmclient"
	"github.com/xkilldash9x/xpathfinder/internal/locator"
	"github.com/xkilldash9x/xpathfinder/internal/observability"
	"github.com/xkilldash9x/xpathfinder/internal/orchestrator"
	"github.com/xkilldash9x/xpathfinder/internal/store"
)

type runOptions struct {
	taskPath string
	url      string
	target   string
	value    string
	submit   bool
	clicks   []string
}

// task loads the task file, if any, and applies the flag overrides on top of it.
func (o *runOptions) task() (*orchestrator.Task, error) {
	task := &orchestrator.Task{}
	if o.taskPath != "" {
		loaded, err := orchestrator.LoadTask(o.taskPath)
		if err != nil {
			return nil, err
		}
		task = loaded
	}

	if o.url != "" {
		task.URL = o.url
	}
	if o.target != "" {
		task.Input.Description = o.target
	}
	if o.value != "" {
		task.Input.Value = o.value
	}
	if o.submit {
		task.Submit = true
	}
	if len(o.clicks) > 0 {
		task.Clicks = o.clicks
	}
	return task, task.Validate()
}

// newRunCmd creates the `run` command.
func newRunCmd(v *viper.Viper) *cobra.Command {
	opts := &runOptions{}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Open a page, fill a described input and follow described links",
		Long: `Runs a task: navigate to a URL, locate and fill the described input, then
locate and click each described target in order, capturing every page to CSV and
optionally finishing with a screenshot. The task comes from a YAML file (--task),
from flags, or from a file with flag overrides.`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.taskPath == "" && opts.url == "" {
				return errors.New("either --task or --url is required")
			}
			return bindFlags(v, cmd.Flags(), map[string]string{
				"output.csv_path":       "out",
				"output.screenshot_dir": "screenshot-dir",
				"locator.verify_exists": "verify",
			})
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			task, err := opts.task()
			if err != nil {
				return fmt.Errorf("invalid task: %w", err)
			}

			cfg, err := config.NewConfigFromViper(v)
			if err != nil {
				return fmt.Errorf("failed to load or validate config: %w", err)
			}

			client, err := llmclient.NewClient(ctx, cfg.LLM, logger)
			if err != nil {
				return fmt.Errorf("failed to create completion client: %w", err)
			}
			defer client.Close()

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

			resolver := locator.New(client, cfg.Locator, logger)
			orch, err := orchestrator.New(cfg, logger, driver, resolver, sink)
			if err != nil {
				return err
			}

			report, runErr := orch.Run(ctx, task)
			if report != nil {
				out, err := json.MarshalIndent(report, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to encode run report: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
			}
			return runErr
		},
	}

	runCmd.Flags().StringVar(&opts.taskPath, "task", "", "YAML task file")
	runCmd.Flags().StringVar(&opts.url, "url", "", "page to open (overrides the task file)")
	runCmd.Flags().StringVar(&opts.target, "target", "", "description of the input element")
	runCmd.Flags().StringVar(&opts.value, "value", "", "text to type into the input element")
	runCmd.Flags().BoolVar(&opts.submit, "submit", false, "press Enter after typing")
	runCmd.Flags().StringArrayVar(&opts.clicks, "click", nil, "description of an element to click (repeatable)")
	runCmd.Flags().StringP("out", "o", "output.csv", "CSV file for page captures")
	runCmd.Flags().String("screenshot-dir", ".", "directory for relative screenshot paths")
	runCmd.Flags().Bool("verify", false, "reject locators that match nothing in the page")
	return runCmd
}
