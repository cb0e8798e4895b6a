package errors

// Template defines a registered error type.
type Template struct {
	Category   Category
	Message    string
	Suggestion string
}

// registry maps error codes to their templates.
var registry = map[string]Template{
	// ============================================
	// Configuration Errors (E100-E119)
	// ============================================

	"E101": {
		Category:   CategoryConfig,
		Message:    "System resource not found",
		Suggestion: "Add the file to the system directory or restore the packaged defaults.",
	},
	"E102": {
		Category:   CategoryConfig,
		Message:    "Path is not relative",
		Suggestion: "Use a path relative to the project directory, e.g. ./pages",
	},
	"E103": {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
	},
	"E110": {
		Category:   CategoryConfig,
		Message:    "Configuration file could not be read",
		Suggestion: "Check the file syntax. Supported formats are json, yaml and toml.",
	},

	// ============================================
	// Hierarchy Errors (E120-E129)
	// ============================================

	"E120": {
		Category: CategoryResolve,
		Message:  "Pages directory could not be scanned",
	},

	// ============================================
	// Module Errors (E130-E139)
	// ============================================

	"E130": {
		Category:   CategoryModule,
		Message:    "Module could not be loaded",
		Suggestion: "Register a module for the file with module.Registry.",
	},
	"E131": {
		Category: CategoryModule,
		Message:  "Module does not export the expected handlers",
	},
	"E132": {
		Category: CategoryModule,
		Message:  "Route could not be registered",
	},

	// ============================================
	// Build Errors (E140-E149)
	// ============================================

	"E140": {
		Category: CategoryBuild,
		Message:  "Bundling failed",
	},
	"E141": {
		Category:   CategoryBuild,
		Message:    "Bundle output has no matching entry",
		Suggestion: "Run the build again after the pages directory has settled.",
	},
	"E142": {
		Category: CategoryBuild,
		Message:  "Build output could not be written",
	},
	"E143": {
		Category:   CategoryBuild,
		Message:    "Public file collides with build output",
		Suggestion: "Rename or move the file. The build owns manifest.json and the JS directory.",
	},

	// ============================================
	// Publish Errors (E150-E159)
	// ============================================

	"E150": {
		Category:   CategoryPublish,
		Message:    "Upload failed",
		Suggestion: "Check the bucket name and the AWS credentials in the environment.",
	},

	// ============================================
	// Server Errors (E160-E169)
	// ============================================

	"E160": {
		Category: CategoryRuntime,
		Message:  "Adapter failed",
	},
	"E161": {
		Category: CategoryRuntime,
		Message:  "Server could not start",
	},
}

// Lookup returns the template registered for code.
func Lookup(code string) (Template, bool) {
	t, ok := registry[code]
	return t, ok
}
