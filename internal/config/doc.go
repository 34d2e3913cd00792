// Package config loads server, database, cache, scoring and logging settings
// from defaults, an optional YAML file and PSYCHE_* environment variables,
// and validates them before any component starts.
package config
