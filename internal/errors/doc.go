// Package errors provides coded, actionable errors for Hubro.
//
// Each error carries a code (e.g. "E101") registered with a category, a short
// message and an optional suggestion. Call sites add the detail and the path
// the error relates to:
//
//	err := errors.New("E102").
//	    WithDetail("Value for directories.pages is not relative. Must be relative path.").
//	    WithPath("hubro.json")
//
//	errors.PrintError(err)
//	// Output:
//	// ERROR E102: Path is not relative
//	//
//	//   hubro.json
//	//
//	//   Value for directories.pages is not relative. Must be relative path.
//	//
//	//   Hint: Use a path relative to the project directory, e.g. ./pages
//
// Codes are grouped by range: E100 configuration, E120 hierarchy, E130
// modules, E140 build, E150 publish, E160 server.
package errors
