// Command plexdance detects album directories whose on-disk grouping
// disagrees with the Plex index and repairs them by moving each directory out
// of the library and back, forcing a clean re-scan.
package main
