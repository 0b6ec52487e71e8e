// Package plex is the HTTP client for the Plex Media Server API used as the
// remote index: listing music sections and tracks, probing album existence by
// rating key, and triggering partial rescans. All calls are read-only except
// the rescan trigger.
package plex
