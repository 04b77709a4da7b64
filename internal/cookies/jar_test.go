package cookies_test

import (
	"net/url"
	"os"
	"testing"
	"time"

	"captionjob/internal/cookies"
)

func TestWriteTempJarRoundTripAndCleanup(t *testing.T) {
	text := cookies.Normalize("SAPISID=abc")
	path, cleanup, err := cookies.WriteTempJar(text)
	if err != nil {
		t.Fatalf("WriteTempJar failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat jar: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("expected 0600 permissions, got %o", perm)
	}
	entries, err := cookies.ReadJar(path)
	if err != nil {
		t.Fatalf("ReadJar failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "SAPISID" {
		t.Fatalf("unexpected entries: %+v", entries)
	}

	cleanup()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected jar removed, stat err=%v", err)
	}
}

func TestWriteTempJarEmpty(t *testing.T) {
	path, cleanup, err := cookies.WriteTempJar("  ")
	if err != nil {
		t.Fatalf("WriteTempJar failed: %v", err)
	}
	defer cleanup()
	if path != "" {
		t.Fatalf("expected no path for empty jar, got %q", path)
	}
}

func TestHeaderForMatchesDomainPathAndExpiry(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	entries := cookies.Parse(
		".youtube.com\tTRUE\t/\tTRUE\t0\tSID\ta\n" +
			"www.youtube.com\tFALSE\t/api\tFALSE\t0\tAPI\tb\n" +
			".youtube.com\tTRUE\t/\tFALSE\t1\tOLD\tc\n" +
			".google.com\tTRUE\t/\tFALSE\t0\tNID\td\n",
	)

	target, _ := url.Parse("https://www.youtube.com/api/timedtext?v=1")
	if got := cookies.HeaderFor(entries, target, now); got != "SID=a; API=b" {
		t.Fatalf("unexpected header: %q", got)
	}

	sibling, _ := url.Parse("https://www.youtube.com/apiv2/list")
	if got := cookies.HeaderFor(entries, sibling, now); got != "SID=a" {
		t.Fatalf("path /api must not match /apiv2, got %q", got)
	}

	insecure, _ := url.Parse("http://m.youtube.com/watch")
	if got := cookies.HeaderFor(entries, insecure, now); got != "" {
		t.Fatalf("expected secure cookies withheld over http, got %q", got)
	}
}

func TestHeaderForPathMatching(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	tests := []struct {
		cookiePath string
		target     string
		want       bool
	}{
		{"/api", "https://www.youtube.com/api", true},
		{"/api", "https://www.youtube.com/api/timedtext", true},
		{"/api", "https://www.youtube.com/apix", false},
		{"/api/", "https://www.youtube.com/api/timedtext", true},
		{"/api/", "https://www.youtube.com/api", false},
		{"/", "https://www.youtube.com/watch", true},
		{"/", "https://www.youtube.com", true},
	}
	for _, tc := range tests {
		entries := []cookies.Entry{{Domain: "www.youtube.com", Path: tc.cookiePath, Name: "K", Value: "v"}}
		target, err := url.Parse(tc.target)
		if err != nil {
			t.Fatalf("parse %q: %v", tc.target, err)
		}
		got := cookies.HeaderFor(entries, target, now) == "K=v"
		if got != tc.want {
			t.Fatalf("path %q vs %s: matched=%v, want %v", tc.cookiePath, tc.target, got, tc.want)
		}
	}
}
