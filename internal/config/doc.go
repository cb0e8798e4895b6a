// Package config loads and validates the configuration of a Hubro
// application.
//
// Configuration is read from hubro.json, hubro.yaml or hubro.toml in the
// project directory. Every key can be overridden from the environment with
// the HUBRO_ prefix, and a .env file next to the config is loaded first.
//
// # Configuration File Structure
//
//	{
//	  "name": "Hubro",
//	  "directories": {
//	    "src": "./",
//	    "build": "./build",
//	    "system": "./system",
//	    "pages": "./pages",
//	    "public": "./public",
//	    "js": "./js"
//	  },
//	  "paths": {
//	    "base": "./",
//	    "public": "./public/"
//	  },
//	  "server": { "host": "0.0.0.0", "port": 4000 },
//	  "logging": { "level": "info", "requests": false },
//	  "compression": true
//	}
//
// Directories and paths must be relative; absolute values are rejected at
// load time. Development mode is fixed when the config is loaded and cannot
// change afterwards.
//
// # Usage
//
//	cfg, err := config.Load(config.Options{Dir: ".", Development: true})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Pages:", cfg.PagesDir())
package config
