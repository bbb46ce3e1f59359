// Package config provides configuration structures and utilities for
// sourcemapscan. It defines the analysis options set from CLI flags and the
// optional YAML file that supplies per-host request headers.
package config
