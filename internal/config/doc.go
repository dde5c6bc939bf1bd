// Package config holds the storefront server configuration.
//
// Values come from three layers applied in order: defaults from NewConfig,
// the optional .storefront YAML file, then environment variables. Command
// line flags are applied last by the caller.
package config
