package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hubro-apparatus/hubro/internal/config"
	"github.com/hubro-apparatus/hubro/internal/errors"
	"github.com/hubro-apparatus/hubro/internal/logging"
	"github.com/hubro-apparatus/hubro/pkg/defaults"
	"github.com/hubro-apparatus/hubro/pkg/hierarchy"
)

// Build information set with -ldflags.
var (
	commit = "none"
	date   = "unknown"
)

const banner = `
  ╦ ╦┬ ┬┌┐ ┬─┐┌─┐
  ╠═╣│ │├┴┐├┬┘│ │
  ╩ ╩└─┘└─┘┴└─└─┘
`

// globalFlags are shared by every command.
type globalFlags struct {
	dir      string
	logLevel string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errors.Fprint(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "hubro",
		Short: "File system routing and streaming server rendering",
		Long: `Hubro serves an application whose routes are the directories of a
pages folder.

Each route directory may hold a page, an API route, a form action, a
client bundle and middleware. Pages are streamed as they render and
client bundles are built with esbuild.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&flags.dir, "dir", "C", "", "Project directory (default is the working directory)")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level: trace, debug, info, warn, error (default from config)")

	rootCmd.AddCommand(
		devCmd(flags),
		startCmd(flags),
		buildCmd(flags),
		routesCmd(flags),
		publishCmd(flags),
		versionCmd(),
	)

	return rootCmd
}

// load reads the project config and builds the logger for it.
func (f *globalFlags) load(cmd *cobra.Command, development bool) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(config.Options{Dir: f.dir, Development: development})
	if err != nil {
		return nil, nil, err
	}
	if f.logLevel != "" {
		cfg.Logging.Level = f.logLevel
		if err := cfg.Validate(); err != nil {
			return nil, nil, err
		}
	}

	log := logging.New(logging.Options{
		Name:        cfg.LogName(),
		Level:       cfg.Logging.Level,
		Development: development,
		Output:      cmd.ErrOrStderr(),
	})
	return cfg, log, nil
}

// resolve scans the pages directory of cfg once.
func resolve(ctx context.Context, cfg *config.Config, log *slog.Logger) (*hierarchy.Snapshot, error) {
	resolver := hierarchy.NewResolver(hierarchy.Options{
		PagesDir:  cfg.PagesDir(),
		SystemDir: cfg.SystemDir(),
		SrcDir:    cfg.SrcDir(),
		Base:      cfg.URLPathBase(),
		Packaged:  defaults.Registry(),
		Logger:    log,
	})
	return resolver.Rebuild(ctx)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

var (
	successMark = color.New(color.FgGreen).Sprint("✓")
	warnMark    = color.New(color.FgYellow).Sprint("⚠")
	dim         = color.New(color.Faint)
)

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", successMark, fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", warnMark, fmt.Sprintf(format, args...))
}

// formatBytes formats bytes as a human readable string.
func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}
