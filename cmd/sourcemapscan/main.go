// Package main provides the entry point for the sourcemapscan CLI.
//
// sourcemapscan checks whether the scripts referenced by a web page ship
// usable sourcemaps, validates the sourcemaps it finds, and points at the
// local folders holding the files that still need uploading.
//
// Usage:
//
//	sourcemapscan analyze <url>
//	sourcemapscan history [url]
//
// See --help for all available options.
package main

// main is the entry point for sourcemapscan.
func main() {
	Execute()
}
