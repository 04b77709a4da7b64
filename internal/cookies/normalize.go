package cookies

import (
	"strings"
)

// NetscapeHeader is the canonical first line of a Netscape cookie-jar file.
const NetscapeHeader = "# Netscape HTTP Cookie File"

// DefaultDomain is the domain assigned to loose name=value cookies.
const DefaultDomain = "youtube.com"

// Normalizer converts cookie text into canonical jar text. The zero value
// uses DefaultDomain.
type Normalizer struct {
	Domain string
}

func (n Normalizer) domain() string {
	if d := strings.TrimPrefix(strings.TrimSpace(n.Domain), "."); d != "" {
		return d
	}
	return DefaultDomain
}

// Normalize returns raw as a canonical Netscape jar. Empty or whitespace-only
// input yields "". Applying Normalize to its own output is a no-op.
func Normalize(raw string) string {
	return Normalizer{}.Normalize(raw)
}

// Normalize is the method form of the package-level Normalize.
func (n Normalizer) Normalize(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	lines := []string{NetscapeHeader}
	for _, ln := range n.classify(raw) {
		switch ln.kind {
		case lineComment:
			lines = append(lines, ln.text)
		case lineEntry:
			lines = append(lines, ln.entry.String())
		}
	}
	return strings.Join(lines, "\n") + "\n"
}

// Parse returns the cookie entries in raw in source order.
func Parse(raw string) []Entry {
	return Normalizer{}.Parse(raw)
}

// Parse is the method form of the package-level Parse.
func (n Normalizer) Parse(raw string) []Entry {
	var entries []Entry
	for _, ln := range n.classify(raw) {
		if ln.kind == lineEntry {
			entries = append(entries, ln.entry)
		}
	}
	return entries
}

// ExtractMap parses raw into a cookie name to value map. Comment lines are
// ignored and later duplicates win.
func ExtractMap(raw string) map[string]string {
	out := make(map[string]string)
	for _, entry := range Parse(raw) {
		out[entry.Name] = entry.Value
	}
	return out
}

type lineKind int

const (
	lineEntry lineKind = iota
	lineComment
)

type parsedLine struct {
	kind  lineKind
	text  string
	entry Entry
}

func (n Normalizer) classify(raw string) []parsedLine {
	var out []parsedLine
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || line == NetscapeHeader {
			continue
		}
		if strings.HasPrefix(line, "#") && !strings.HasPrefix(line, HTTPOnlyPrefix) {
			out = append(out, parsedLine{kind: lineComment, text: line})
			continue
		}
		if entry, ok := parseJarLine(line); ok {
			out = append(out, parsedLine{kind: lineEntry, entry: entry})
			continue
		}
		if entries, ok := parsePairs(line, n.domain()); ok {
			for _, entry := range entries {
				out = append(out, parsedLine{kind: lineEntry, entry: entry})
			}
		}
	}
	return out
}
