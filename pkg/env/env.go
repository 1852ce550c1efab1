// Package env provides small helpers for reading process environment
// variables with fallbacks. Structured configuration lives in pkg/config;
// these helpers cover the handful of knobs read outside it.
package env

import (
	"os"
	"strings"
)

// Get returns the named environment variable, or fallback when it is unset
// or blank.
func Get(key, fallback string) string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	return val
}
