// Package application provides dependency wiring. It builds the settings
// providers and resolver from the runtime configuration and, for the serve
// command, the status router and HTTP server, keeping the main package focused
// on CLI parsing and orchestration.
package application
