// Package settings resolves named application settings (API keys, connection
// URLs, feature flags) from an ordered chain of providers: the hosted-platform
// secret store, the process environment and a local .env file. It also reports
// which required settings are missing and renders masked console output.
package settings
