// Package build produces the production output of a Hubro application.
//
// A build bundles the client file of every entry that needs one, writes
// the hydration runtime, copies the public directory and records every
// bundle in a manifest:
//
//	builder := build.New(cfg, build.Options{})
//	result, err := builder.Build(ctx, resolver.Snapshot())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("Built %d bundles in %s\n", len(result.Bundles), result.Duration)
//
// # Output Structure
//
//	build/
//	├── js/
//	│   ├── lit/hydration.js    # declarative shadow DOM runtime
//	│   └── pages/<hash>.js     # one bundle per entry with a client file
//	├── favicon.ico             # copied from the public directory
//	└── manifest.json
//
// The build directory is served at paths.public, so a bundle is
// requested as /public/js/pages/<hash>.js.
//
// Bundling goes through the Bundler interface. Esbuild is the
// implementation used by the CLI and the development server.
package build
