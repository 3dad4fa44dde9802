// Package config loads the runtime options of envcheck itself from multiple
// sources (YAML file, environment variables, CLI flags) with precedence:
// CLI flags > YAML config > Environment variables > Defaults. The application
// settings that envcheck resolves live in package settings.
package config
