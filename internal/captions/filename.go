package captions

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const (
	maxFileNameRunes = 150
	fallbackName     = "video"
)

var (
	unsafeFileChars = regexp.MustCompile(`[\\/:*?"<>|]+`)
	whitespaceRun   = regexp.MustCompile(`\s+`)
)

// SanitizeFileName turns a video title into a safe file stem. Titles are
// NFC-normalized so composed and decomposed Hangul produce the same name,
// unsafe characters become spaces, whitespace runs collapse, and the result
// is capped at 150 runes. Empty results fall back to "video".
func SanitizeFileName(title string) string {
	name := norm.NFC.String(title)
	name = unsafeFileChars.ReplaceAllString(name, " ")
	name = strings.TrimSpace(whitespaceRun.ReplaceAllString(name, " "))
	if utf8.RuneCountInString(name) > maxFileNameRunes {
		name = strings.TrimRight(string([]rune(name)[:maxFileNameRunes]), " ")
	}
	if name == "" {
		return fallbackName
	}
	return name
}

// FileName returns the transcript file name for a video title.
func FileName(title string) string {
	return SanitizeFileName(title) + ".txt"
}
