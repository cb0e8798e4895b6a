package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/hubro-apparatus/hubro"
	"github.com/hubro-apparatus/hubro/internal/errors"
	"github.com/hubro-apparatus/hubro/pkg/router"
)

// embedHint explains why the CLI cannot load route modules by itself.
const embedHint = `Route modules are Go functions, so this binary only knows the packaged
system modules and serves client only entries. To serve your pages,
routes and actions, build your own binary that registers them:

  app, err := hubro.New(cfg, hubro.WithModules(registry))
  ...
  app.Run(ctx)`

// serveFlags override the server section of the config.
type serveFlags struct {
	port int
	host string
}

func (s *serveFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&s.port, "port", "p", 0, "Port to listen on (default from config)")
	cmd.Flags().StringVarP(&s.host, "host", "H", "", "Host to bind to (default from config)")
}

func devCmd(flags *globalFlags) *cobra.Command {
	serve := &serveFlags{}

	cmd := &cobra.Command{
		Use:   "dev",
		Short: "Start the development server",
		Long: `Start the development server with live reload.

The pages, system, components, layouts and public directories are
watched. A change rebuilds the route hierarchy in process and reloads
connected browsers. Client bundles are built on request.

`+embedHint+`

Examples:
  hubro dev
  hubro dev --port=8080`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, flags, serve, true)
		},
	}
	serve.register(cmd)

	return cmd
}

func startCmd(flags *globalFlags) *cobra.Command {
	serve := &serveFlags{}

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the production server",
		Long: `Start the server in production mode.

Static files and client bundles are served from the build directory.
Run "hubro build" first.

`+embedHint+`

Examples:
  hubro start
  hubro start --host=127.0.0.1 --port=4000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, flags, serve, false)
		},
	}
	serve.register(cmd)

	return cmd
}

func runServe(cmd *cobra.Command, flags *globalFlags, serve *serveFlags, development bool) error {
	cfg, log, err := flags.load(cmd, development)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = serve.port
	}
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = serve.host
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	app, err := hubro.New(cfg, hubro.WithLogger(log))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if development {
		fmt.Fprint(out, banner)
	}
	success(out, "Serving %d routes on %s", len(app.Router().Routes()), cfg.URL())
	reportFailures(out, app.Router().Failures())

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()
	return app.Run(ctx)
}

// reportFailures prints the entries that could not be routed. Modules
// missing from the registry get the embedding hint once.
func reportFailures(w io.Writer, failures []router.Failure) {
	unregistered := false
	for _, f := range failures {
		warn(w, "%s", f.Error())
		if errors.HasCode(f, "E130") {
			unregistered = true
		}
	}
	if unregistered {
		fmt.Fprintln(w)
		fmt.Fprintln(w, dim.Sprint(embedHint))
	}
}
