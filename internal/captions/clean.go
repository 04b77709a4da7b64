package captions

import (
	"regexp"
	"strings"
)

var (
	timecodePattern = regexp.MustCompile(`^\d{2}:\d{2}:\d{2}\.\d{3}\s*-->\s*\d{2}:\d{2}:\d{2}\.\d{3}`)
	tagPattern      = regexp.MustCompile(`<[^>]+>`)
)

// metadataPrefixes start lines that describe the track rather than speech.
var metadataPrefixes = []string{"WEBVTT", "Kind:", "Language:", "NOTE", "align:", "position:"}

// Clean converts WebVTT content into newline-joined caption text. Only
// consecutive repeats are collapsed; a line may reappear later in the output.
func Clean(vtt string) string {
	var out []string
	for _, line := range strings.Split(vtt, "\n") {
		if timecodePattern.MatchString(line) {
			continue
		}
		if isMetadata(strings.TrimSpace(line)) {
			continue
		}
		text := strings.TrimSpace(tagPattern.ReplaceAllString(line, ""))
		if text == "" {
			continue
		}
		if n := len(out); n > 0 && out[n-1] == text {
			continue
		}
		out = append(out, text)
	}
	return strings.Join(out, "\n")
}

func isMetadata(line string) bool {
	for _, prefix := range metadataPrefixes {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}
