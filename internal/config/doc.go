// Package config loads the service configuration from an optional YAML file
// and NUDGE_-prefixed environment variables, then validates it.
package config
