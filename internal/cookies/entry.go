package cookies

import (
	"strconv"
	"strings"
)

// HTTPOnlyPrefix marks an HTTP-only entry in the domain column of a jar line.
const HTTPOnlyPrefix = "#HttpOnly_"

// Entry is one parsed cookie-jar line.
type Entry struct {
	Domain            string
	HTTPOnly          bool
	IncludeSubdomains bool
	Path              string
	Secure            bool
	Expires           int64
	Name              string
	Value             string
}

// String renders the entry as a canonical tab-separated jar line.
func (e Entry) String() string {
	domain := e.Domain
	if e.HTTPOnly {
		domain = HTTPOnlyPrefix + domain
	}
	return strings.Join([]string{
		domain,
		flag(e.IncludeSubdomains),
		e.Path,
		flag(e.Secure),
		strconv.FormatInt(e.Expires, 10),
		e.Name,
		e.Value,
	}, "\t")
}

func flag(v bool) string {
	if v {
		return "TRUE"
	}
	return "FALSE"
}

// parseJarLine reports whether line is a seven-field jar entry. Tab
// separation is tried first; pasted jars whose tabs became spaces are
// accepted when splitting on whitespace yields exactly seven fields. The
// expiry column must be an integer.
func parseJarLine(line string) (Entry, bool) {
	fields := strings.Split(line, "\t")
	if len(fields) != 7 {
		fields = strings.Fields(line)
		if len(fields) != 7 {
			return Entry{}, false
		}
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	expires, err := strconv.ParseInt(fields[4], 10, 64)
	if err != nil {
		return Entry{}, false
	}
	entry := Entry{
		Domain:            fields[0],
		IncludeSubdomains: strings.EqualFold(fields[1], "TRUE"),
		Path:              fields[2],
		Secure:            strings.EqualFold(fields[3], "TRUE"),
		Expires:           expires,
		Name:              fields[5],
		Value:             fields[6],
	}
	if rest, ok := strings.CutPrefix(entry.Domain, HTTPOnlyPrefix); ok {
		entry.Domain = rest
		entry.HTTPOnly = true
	}
	if entry.Domain == "" || entry.Name == "" {
		return Entry{}, false
	}
	return entry, true
}

// parsePairs splits a "name=value; name2=value2" line into loose entries on
// domain. It returns false when the line holds no usable pair.
func parsePairs(line, domain string) ([]Entry, bool) {
	var entries []Entry
	for _, part := range strings.Split(line, ";") {
		name, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		value = strings.TrimSpace(value)
		if name == "" || strings.ContainsAny(name, " \t") || strings.Contains(value, "\t") {
			continue
		}
		entries = append(entries, Entry{
			Domain:            "." + domain,
			IncludeSubdomains: true,
			Path:              "/",
			Secure:            true,
			Name:              name,
			Value:             value,
		})
	}
	return entries, len(entries) > 0
}
