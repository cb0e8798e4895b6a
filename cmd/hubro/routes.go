package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hubro-apparatus/hubro/pkg/hierarchy"
	"github.com/hubro-apparatus/hubro/pkg/router"
)

// routeInfo is one entry as printed by `hubro routes --json`.
type routeInfo struct {
	Route   string            `json:"route"`
	Pattern string            `json:"pattern"`
	Kind    hierarchy.Kind    `json:"kind"`
	Hash    string            `json:"hash"`
	Bundle  bool              `json:"bundle"`
	Files   map[string]string `json:"files"`
}

var kindColors = map[hierarchy.Kind]*color.Color{
	hierarchy.KindPage:   color.New(color.FgGreen),
	hierarchy.KindAPI:    color.New(color.FgCyan),
	hierarchy.KindClient: color.New(color.FgMagenta),
	hierarchy.KindEmpty:  color.New(color.Faint),
}

func routesCmd(flags *globalFlags) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "Print the route hierarchy",
		Long: `Scan the pages directory and print every route with its kind,
hash and the files found for it.

Examples:
  hubro routes
  hubro routes --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := flags.load(cmd, false)
			if err != nil {
				return err
			}
			snap, err := resolve(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}

			routes := describe(snap)
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(routes)
			}
			return printRoutes(cmd.OutOrStdout(), routes)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")

	return cmd
}

func describe(snap *hierarchy.Snapshot) []routeInfo {
	routes := make([]routeInfo, 0, snap.Len())
	for _, e := range snap.Entries() {
		ri := routeInfo{
			Route:   e.Route(),
			Pattern: router.MapRoute(e.Route()).Path,
			Kind:    e.Kind(),
			Hash:    e.Hash(),
			Bundle:  e.Bundle(),
			Files:   make(map[string]string),
		}
		for _, role := range hierarchy.Roles {
			if loc, ok := e.Locator(role); ok {
				ri.Files[string(role)] = loc.Key
			}
		}
		routes = append(routes, ri)
	}
	return routes
}

func printRoutes(w io.Writer, routes []routeInfo) error {
	if len(routes) == 0 {
		warn(w, "No routes found")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ROUTE\tPATTERN\tKIND\tHASH\tFILES")
	for _, r := range routes {
		var files []string
		for _, role := range hierarchy.Roles {
			if _, ok := r.Files[string(role)]; ok {
				files = append(files, string(role))
			}
		}
		kind := string(r.Kind)
		if c, ok := kindColors[r.Kind]; ok {
			kind = c.Sprint(kind)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.Route, r.Pattern, kind, r.Hash, strings.Join(files, ","))
	}
	return tw.Flush()
}
