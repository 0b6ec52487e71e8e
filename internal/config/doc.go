// Package config loads, normalizes, and validates plexdance configuration.
//
// Configuration lives in a TOML file (default ~/.config/plexdance/config.toml,
// with ./plexdance.toml as a project-local fallback) and is organized into
// sections:
//   - [plex]: server URL, token, music library name, request timeout
//   - [paths]: staging/state/log directories and the local:plex path mapping
//   - [dance]: polling interval and attempt bounds for index confirmation
//   - [logging]: log level and format
//
// PLEX_URL and PLEX_TOKEN environment variables fill in missing [plex] values
// so credentials can stay out of the file.
package config
