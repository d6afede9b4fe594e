package helpers

import (
	"strings"
	"time"
)

// Slugify turns a game name into a file and cache key friendly token
func Slugify(name string) string {
	replacer := strings.NewReplacer(" ", "_", "-", "_")
	return strings.ToLower(replacer.Replace(strings.TrimSpace(name)))
}

// DateStamp formats a capture date for table cells
func DateStamp(t time.Time) string {
	return t.Format("2006-01-02")
}

// FileDateStamp formats a capture date for output file names
func FileDateStamp(t time.Time) string {
	return t.Format("2006_01_02")
}
