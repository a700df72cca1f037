// Package config loads application configuration from environment
// variables (prefix ORDERGEN) layered over an optional YAML file.
package config
