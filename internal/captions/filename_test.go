package captions_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"captionjob/internal/captions"
)

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"My Video: Part 1/2", "My Video Part 1 2"},
		{`a\b*c?d"e<f>g|h`, "a b c d e f g h"},
		{"  spaced\t\ttitle  ", "spaced title"},
		{"", "video"},
		{"???", "video"},
		{"한글 제목", "한글 제목"},
	}
	for _, tc := range tests {
		if got := captions.SanitizeFileName(tc.in); got != tc.want {
			t.Fatalf("SanitizeFileName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSanitizeFileNameNormalizesAndTruncates(t *testing.T) {
	decomposed := "\u1100\u1161" // 가 as conjoining jamo
	if got := captions.SanitizeFileName(decomposed); got != "가" {
		t.Fatalf("expected NFC composition, got %q", got)
	}

	long := strings.Repeat("가", 149) + " " + strings.Repeat("나", 10)
	got := captions.SanitizeFileName(long)
	if n := utf8.RuneCountInString(got); n != 149 {
		t.Fatalf("expected trailing space trimmed after truncation to 149 runes, got %d", n)
	}
}

func TestFileName(t *testing.T) {
	if got := captions.FileName(""); got != "video.txt" {
		t.Fatalf("FileName = %q", got)
	}
	if got := captions.FileName("Intro"); got != "Intro.txt" {
		t.Fatalf("FileName = %q", got)
	}
}
