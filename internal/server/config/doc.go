// Package config provides server configuration for PageGate.
//
//   - spec.go: ServerConfig struct definition
//   - default.go: default values
//   - verify.go: validation, first violation wins
//   - sanitize.go: log sanitization (hide the admin secret and redis password)
//
// Configuration is loaded via internal/infra/confloader from a YAML file
// and the environment.
package config
