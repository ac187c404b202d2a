package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/chadnetzer/hardlinkable/internal/config"
	"github.com/chadnetzer/hardlinkable/internal/engine"
	"github.com/chadnetzer/hardlinkable/internal/event"
	"github.com/chadnetzer/hardlinkable/internal/filter"
	"github.com/chadnetzer/hardlinkable/internal/plan"
	"github.com/chadnetzer/hardlinkable/internal/stats"
	"github.com/chadnetzer/hardlinkable/internal/ui"
)

var version = "dev"

func main() {
	os.Exit(run())
}

// regexFlag is a custom pflag.Value that preserves CLI ordering of
// repeatable --match and --exclude rules by appending to a shared
// filter.NameFilter.
type regexFlag struct {
	f       *filter.NameFilter
	exclude bool
}

func (*regexFlag) String() string { return "" }
func (*regexFlag) Type() string   { return "RE" }

func (r *regexFlag) Set(val string) error {
	if r.exclude {
		return r.f.AddExclude(val)
	}
	return r.f.AddMatch(val)
}

//nolint:gocyclo,revive // cognitive-complexity: main CLI entry point orchestrates all flag parsing
func run() int {
	var (
		enableLinking bool
		noStats       bool
		verbosity     int
		noProgress    bool
		jsonOut       bool
		sameName      bool
		ignorePerms   bool
		ignoreTime    bool
		ignoreXattr   bool
		contentOnly   bool
		minSizeStr    string
		maxSizeStr    string
		linkMax       uint64
		showVersion   bool
	)

	nameFilter := filter.NewNameFilter()

	rootCmd := &cobra.Command{
		Use:   "hardlinkable [flags] directory [directory ...]",
		Short: "Find identical files and consolidate them with hard links",
		Long: `hardlinkable scans directory trees and reports on the space that could be
saved by hard linking identical files. It can also perform the linking.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				return nil
			}
			return cobra.MinimumNArgs(1)(cmd, args)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				fmt.Fprintf(os.Stdout, "hardlinkable %s\n", version)
				return nil
			}

			for _, dir := range args {
				info, err := os.Stat(dir)
				if err != nil {
					return &exitError{code: 2, msg: fmt.Sprintf("%s: %v", dir, err)}
				}
				if !info.IsDir() {
					return &exitError{code: 2, msg: fmt.Sprintf("%s is not a directory", dir)}
				}
			}

			// Load optional config file and apply defaults for flags not
			// explicitly set on the CLI.
			cfg, err := config.Load()
			if err != nil {
				slog.Warn("failed to load config", "error", err)
			}
			applyConfigDefaults(cmd, cfg.Defaults,
				&minSizeStr, &maxSizeStr, &linkMax, &verbosity, &noProgress, &jsonOut)

			policy := plan.Policy{
				SameName:    sameName,
				IgnorePerms: ignorePerms,
				IgnoreTime:  ignoreTime,
				IgnoreXattr: ignoreXattr,
				ContentOnly: contentOnly,
				MinSize:     1,
			}
			policy.MinSize, err = filter.ParseSize(minSizeStr)
			if err != nil {
				return &exitError{code: 2, msg: fmt.Sprintf("invalid --min-size: %v", err)}
			}
			if maxSizeStr != "" {
				policy.MaxSize, err = filter.ParseSize(maxSizeStr)
				if err != nil {
					return &exitError{code: 2, msg: fmt.Sprintf("invalid --max-size: %v", err)}
				}
				if policy.MaxSize < policy.MinSize {
					return &exitError{code: 2, msg: "--max-size cannot be smaller than --min-size"}
				}
			}

			// Configure logging.
			logLevel := slog.LevelWarn
			if verbosity > 2 {
				logLevel = slog.LevelDebug
			} else if verbosity > 0 {
				logLevel = slog.LevelInfo
			}
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: logLevel,
			}))
			slog.SetDefault(logger)

			if enableLinking {
				fmt.Fprintln(os.Stderr,
					"----- Hardlinking enabled.  The filesystem will be modified -----")
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			collector := stats.NewCollector()
			collector.CollectPairs(verbosity > 0)
			collector.CollectClusters(verbosity > 1)

			events := make(chan event.Event, 256)
			presenter := ui.NewPresenter(ui.Config{
				Writer:     os.Stdout,
				ErrWriter:  os.Stderr,
				Stats:      collector,
				IsTTY:      ui.IsTTY(os.Stderr.Fd()),
				Quiet:      noStats,
				Verbosity:  verbosity,
				NoProgress: noProgress || jsonOut,
			})

			var presenterWg sync.WaitGroup
			presenterWg.Add(1)
			go func() {
				defer presenterWg.Done()
				_ = presenter.Run(events) //nolint:errcheck // presenter error is non-fatal
			}()

			result := engine.Run(ctx, engine.Config{
				Dirs:           args,
				Policy:         policy,
				Filter:         nameFilter,
				LinkingEnabled: enableLinking,
				MaxNlink:       linkMax,
				Stats:          collector,
				Events:         events,
			})
			stop()
			close(events)
			presenterWg.Wait()

			if jsonOut {
				if err := stats.WriteJSON(os.Stdout, result.Stats); err != nil {
					return fmt.Errorf("write json: %w", err)
				}
			} else if !noStats {
				stats.WriteText(os.Stdout, collector, stats.ReportOptions{
					LinkingEnabled: enableLinking,
					Verbosity:      verbosity,
					Incomplete:     result.Err != nil,
				})
			}

			if result.Err != nil {
				slog.Error("scan failed", "error", result.Err)
				return &exitError{code: 2}
			}
			if result.FailedLinks > 0 {
				return &exitError{code: 1}
			}
			return nil
		},
	}

	rootCmd.Flags().BoolVar(&showVersion, "version", false, "print version and exit")

	rootCmd.Flags().
		BoolVar(&enableLinking, "enable-linking", false, "perform the actual hardlinking")
	rootCmd.Flags().BoolVarP(&noStats, "no-stats", "q", false, "do not print the statistics")
	rootCmd.Flags().
		CountVarP(&verbosity, "verbose", "v", "increase verbosity level (up to 3 times)")
	rootCmd.Flags().BoolVar(&noProgress, "no-progress", false, "disable progress output")
	rootCmd.Flags().BoolVar(&jsonOut, "json", false, "emit the report as JSON")

	rootCmd.Flags().BoolVarP(&sameName, "same-name", "f", false, "filenames have to be identical")
	rootCmd.Flags().
		BoolVarP(&ignorePerms, "ignore-perms", "p", false, "file permissions do not need to match")
	rootCmd.Flags().
		BoolVarP(&ignoreTime, "ignore-time", "t", false, "file modification times do not need to match")
	rootCmd.Flags().
		BoolVar(&ignoreXattr, "ignore-xattr", false, "extended attributes do not need to match")
	rootCmd.Flags().
		BoolVarP(&contentOnly, "content-only", "c", false, "only file contents have to match")
	rootCmd.Flags().
		StringVarP(&minSizeStr, "min-size", "s", "1", "minimum file size (e.g. 4k, 1m)")
	rootCmd.Flags().
		StringVarP(&maxSizeStr, "max-size", "S", "", "maximum file size (e.g. 1g)")
	rootCmd.Flags().
		Uint64Var(&linkMax, "link-max", 0, "per-device link-count ceiling override")

	rootCmd.Flags().
		VarP(&regexFlag{f: nameFilter}, "match", "m", "regular expression used to match files (repeatable)")
	rootCmd.Flags().
		VarP(&regexFlag{f: nameFilter, exclude: true}, "exclude", "x", "regular expression used to exclude files/dirs (repeatable)")

	if err := rootCmd.Execute(); err != nil {
		if exitErr, ok := err.(*exitError); ok {
			if exitErr.msg != "" {
				fmt.Fprintf(os.Stderr, "Error: %s\n", exitErr.msg)
			}
			return exitErr.code
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	return 0
}

// applyConfigDefaults applies config file defaults for flags not
// explicitly set on the CLI.
func applyConfigDefaults(
	cmd *cobra.Command,
	defaults config.DefaultsConfig,
	minSize *string,
	maxSize *string,
	linkMax *uint64,
	verbosity *int,
	noProgress *bool,
	jsonOut *bool,
) {
	if !cmd.Flags().Changed("min-size") && defaults.MinSize != nil {
		*minSize = *defaults.MinSize
	}
	if !cmd.Flags().Changed("max-size") && defaults.MaxSize != nil {
		*maxSize = *defaults.MaxSize
	}
	if !cmd.Flags().Changed("link-max") && defaults.LinkMax != nil {
		*linkMax = *defaults.LinkMax
	}
	if !cmd.Flags().Changed("verbose") && defaults.Verbose != nil {
		*verbosity = *defaults.Verbose
	}
	if !cmd.Flags().Changed("no-progress") && defaults.NoProgress != nil {
		*noProgress = *defaults.NoProgress
	}
	if !cmd.Flags().Changed("json") && defaults.JSON != nil {
		*jsonOut = *defaults.JSON
	}
}

type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string {
	if e.msg != "" {
		return e.msg
	}
	return fmt.Sprintf("exit code %d", e.code)
}
