package cookies

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"
)

// WriteTempJar writes jar text to a private temporary file and returns its
// path with a cleanup func that removes it. Empty text yields an empty path
// and a no-op cleanup.
func WriteTempJar(text string) (string, func(), error) {
	if strings.TrimSpace(text) == "" {
		return "", func() {}, nil
	}
	file, err := os.CreateTemp("", "captionjob-cookies-*.txt")
	if err != nil {
		return "", func() {}, fmt.Errorf("create cookie jar: %w", err)
	}
	path := file.Name()
	cleanup := func() { _ = os.Remove(path) }

	if err := file.Chmod(0o600); err != nil {
		file.Close()
		cleanup()
		return "", func() {}, fmt.Errorf("chmod cookie jar: %w", err)
	}
	if _, err := file.WriteString(text); err != nil {
		file.Close()
		cleanup()
		return "", func() {}, fmt.Errorf("write cookie jar: %w", err)
	}
	if err := file.Close(); err != nil {
		cleanup()
		return "", func() {}, fmt.Errorf("close cookie jar: %w", err)
	}
	return path, cleanup, nil
}

// ReadJar loads and parses a jar file written by WriteTempJar.
func ReadJar(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cookie jar: %w", err)
	}
	return Parse(string(data)), nil
}

// HeaderFor builds a Cookie header value from the entries that apply to
// target. Expired entries are skipped; expiry 0 marks a session cookie.
func HeaderFor(entries []Entry, target *url.URL, now time.Time) string {
	if target == nil {
		return ""
	}
	host := strings.ToLower(target.Hostname())
	path := target.EscapedPath()
	if path == "" {
		path = "/"
	}

	var pairs []string
	for _, e := range entries {
		if e.Expires > 0 && e.Expires < now.Unix() {
			continue
		}
		if e.Secure && target.Scheme != "https" {
			continue
		}
		if !domainMatches(host, e) {
			continue
		}
		if !pathMatches(path, e.Path) {
			continue
		}
		pairs = append(pairs, e.Name+"="+e.Value)
	}
	return strings.Join(pairs, "; ")
}

// pathMatches applies the RFC 6265 path-match rule: /api matches /api and
// /api/x but not /apix.
func pathMatches(requestPath, cookiePath string) bool {
	if cookiePath == "" || requestPath == cookiePath {
		return true
	}
	if !strings.HasPrefix(requestPath, cookiePath) {
		return false
	}
	return strings.HasSuffix(cookiePath, "/") || requestPath[len(cookiePath)] == '/'
}

func domainMatches(host string, e Entry) bool {
	domain := strings.ToLower(strings.TrimPrefix(e.Domain, "."))
	if host == domain {
		return true
	}
	if !e.IncludeSubdomains && !strings.HasPrefix(e.Domain, ".") {
		return false
	}
	return strings.HasSuffix(host, "."+domain)
}
