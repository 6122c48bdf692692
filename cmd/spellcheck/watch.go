package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/japaniel/spellcheck/pkg/discover"
	"github.com/japaniel/spellcheck/pkg/spellcheck"
	"github.com/japaniel/spellcheck/pkg/watch"
)

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [root]",
		Short: "Rewrite the report whenever a checked file changes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}
			cfg, logger, err := a.setup(cmd)
			if err != nil {
				return &ExitError{Code: spellcheck.ExitIO, Err: err}
			}
			linter, err := spellcheck.New(*cfg, logger)
			if err != nil {
				return exitFor(spellcheck.Result{Err: err})
			}
			opts := cfg.DiscoverOptions()

			pass := func(ctx context.Context) error {
				files, err := discover.Discover(root, opts)
				if err != nil {
					return err
				}
				res, err := linter.Report(ctx, files)
				if err != nil {
					return err
				}
				a.printSummary(res)
				return nil
			}
			if err := pass(cmd.Context()); err != nil {
				return &ExitError{Code: spellcheck.ExitIO, Err: err}
			}

			w, err := watch.New(watch.Config{
				Root:     root,
				Discover: opts,
				Debounce: cfg.Debounce,
				Logger:   logger,
				OnChange: func(ctx context.Context, changed []string) error {
					logger.Debug("files changed", "paths", changed)
					return pass(ctx)
				},
			})
			if err != nil {
				return &ExitError{Code: spellcheck.ExitIO, Err: err}
			}
			fmt.Fprintln(a.stdout, subtleStyle.Render("Watching "+root+" for changes. Press Ctrl+C to stop."))
			if err := w.Run(cmd.Context()); err != nil {
				return &ExitError{Code: spellcheck.ExitIO, Err: err}
			}
			return nil
		},
	}
}
