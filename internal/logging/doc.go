// Package logging constructs slog loggers for plexdance with a human-friendly
// console handler, an optional JSON handler, and shared attribute helpers so
// log fields stay consistent across packages.
package logging
