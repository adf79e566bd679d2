// Package env reads process environment settings used before the full
// configuration is decoded.
package env

import (
	"os"
	"strings"
)

// Get returns the trimmed value of key. Unset and blank values both report
// false.
func Get(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	return value, true
}

// GetOrDefault retrieves an environment variable with a default value
func GetOrDefault(key, defaultValue string) string {
	if value, ok := Get(key); ok {
		return value
	}
	return defaultValue
}

// IsSet reports whether key is present in the environment, even if blank.
func IsSet(key string) bool {
	_, ok := os.LookupEnv(key)
	return ok
}
