// Package config loads the service configuration from a YAML or JSON file,
// a local .env file and process environment variables, in that order of
// increasing precedence.
package config
