package library

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

// maxStagingNameBytes is the common filesystem limit for a single path
// component.
const maxStagingNameBytes = 255

// StagingName derives a human-readable, filesystem-safe staging directory
// name of the form "{index}_{artist}_{album}", truncated to fit within the
// 255-byte filename limit without splitting a UTF-8 sequence.
func StagingName(index int, artist, album string) string {
	artist = sanitizeComponent(artist)
	album = sanitizeComponent(album)

	name := fmt.Sprintf("%d_%s_%s", index, artist, album)
	if len(name) <= maxStagingNameBytes {
		return name
	}

	prefix := fmt.Sprintf("%d_", index)
	remaining := maxStagingNameBytes - len(prefix) - 1
	if remaining < 2 {
		return truncateUTF8(name, maxStagingNameBytes)
	}
	artistBudget := remaining / 2
	albumBudget := remaining - artistBudget
	return prefix + truncateUTF8(artist, artistBudget) + "_" + truncateUTF8(album, albumBudget)
}

func sanitizeComponent(value string) string {
	out := make([]rune, 0, len(value))
	for _, r := range value {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			out = append(out, r)
		case r == '-' || r == '_' || r == '.' || r == ' ':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}

// truncateUTF8 shortens value to at most maxBytes bytes, backing up to the
// nearest rune boundary.
func truncateUTF8(value string, maxBytes int) string {
	if len(value) <= maxBytes {
		return value
	}
	if maxBytes <= 0 {
		return ""
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(value[cut]) {
		cut--
	}
	return value[:cut]
}
