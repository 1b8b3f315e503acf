package utils

import "transitguide.org/internal/models"

// MakeMap creates and returns a map[string]string containing a single key-value pair.
func MakeMap(key, value string) map[string]string {
	return map[string]string{key: value}
}

// SourceTags returns the Sentry tags identifying a data source.
func SourceTags(src models.DataSource) map[string]string {
	return map[string]string{
		"source":      src.Name,
		"source_kind": string(src.Kind),
	}
}
