package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hubro-apparatus/hubro/internal/build"
)

func buildCmd(flags *globalFlags) *cobra.Command {
	var (
		minify     bool
		sourceMaps bool
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build for production",
		Long: `Build the application for production.

This command:
  • Bundles every client.js into js/pages/<hash>.<contenthash>.js
  • Writes the hydration runtime to js/lit/hydration.<contenthash>.js
  • Copies the public directory
  • Writes manifest.json, mapping logical names to the hashed files

The build directory is removed first.

Examples:
  hubro build
  hubro build --minify=false --sourcemaps`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := flags.load(cmd, false)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("minify") {
				cfg.Build.Minify = minify
			}
			if cmd.Flags().Changed("sourcemaps") {
				cfg.Build.SourceMaps = sourceMaps
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			snap, err := resolve(ctx, cfg, log)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			info(out, "Building %d entries...", snap.Len())

			builder := build.New(cfg, build.Options{
				Logger: log,
				OnProgress: func(step string) {
					info(out, "%s", step)
				},
			})
			result, err := builder.Build(ctx, snap)
			if err != nil {
				return err
			}

			success(out, "Build complete in %s", result.Duration.Round(1000000))
			for _, b := range result.Bundles {
				rel, err := filepath.Rel(cfg.Dir(), b)
				if err != nil {
					rel = b
				}
				size := int64(0)
				if fi, err := os.Stat(b); err == nil {
					size = fi.Size()
				}
				info(out, "%s %s", rel, dim.Sprintf("(%s)", formatBytes(size)))
			}
			info(out, "%d public files, %d manifest entries", result.Public, result.Manifest.Len())
			return nil
		},
	}

	cmd.Flags().BoolVar(&minify, "minify", true, "Minify bundles (default from config)")
	cmd.Flags().BoolVar(&sourceMaps, "sourcemaps", false, "Write source maps (default from config)")

	return cmd
}
