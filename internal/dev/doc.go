// Package dev provides the development companion of a Hubro application.
//
// This package implements:
//   - File watching of the pages, system and public directories with fsnotify
//   - Rebuild of the hierarchy and router on change
//   - On-demand bundling of client files, served from memory
//   - WebSocket-based browser refresh with an error overlay
//
// # Usage
//
//	srv := dev.NewServer(dev.Options{
//	    Config:   cfg,
//	    Snapshot: resolver.Snapshot,
//	    Rebuild:  app.Rebuild,
//	})
//
//	// serve srv.Mounts() and wrap pages with srv.Adapter(), then
//	go srv.Run(ctx)
//
// # Endpoints
//
// All endpoints live below /_/ under the base path:
//
//	/_/reload        websocket
//	/_/reload.js     reload client, added to every page
//	/_/js/...        bundles, e.g. /_/js/pages/<hash>.js
//
// # Hot Reload Protocol
//
// Messages are JSON-encoded:
//
//	{"type": "reload"}                // Triggers full page reload
//	{"type": "css", "file": "..."}    // Triggers stylesheet reload
//	{"type": "error", "error": "..."} // Shows error overlay
//	{"type": "clear"}                 // Clears error overlay
package dev
