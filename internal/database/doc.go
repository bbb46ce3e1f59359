// Package database provides SQLite-based storage for sourcemapscan.
//
// This package implements the HistoryDB, which stores one row per saved
// analysis: the page, when it ran, its outcome counters, and the full report
// as JSON. Nothing is written unless the user asks for it with --save.
package database
