package captions

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// DefaultLanguages is the preferred caption language order.
var DefaultLanguages = []string{"ko", "ko-KR", "ko_KR", "en"}

// Format is one downloadable rendition of a caption track.
type Format struct {
	Ext  string `json:"ext"`
	URL  string `json:"url"`
	Name string `json:"name,omitempty"`
}

// LanguageTracks holds the renditions available for one language code.
type LanguageTracks struct {
	Language string
	Formats  []Format
}

// TrackList is a language-keyed track listing that keeps the order in which
// the extraction tool reported languages, so "any available track" is
// deterministic.
type TrackList []LanguageTracks

// UnmarshalJSON decodes a {"lang": [formats...]} object preserving key order.
func (l *TrackList) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*l = nil
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("track list: expected object, got %v", tok)
	}
	var out TrackList
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("track list: unexpected key %v", keyTok)
		}
		var formats []Format
		if err := dec.Decode(&formats); err != nil {
			return fmt.Errorf("track list %s: %w", key, err)
		}
		out = append(out, LanguageTracks{Language: key, Formats: formats})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*l = out
	return nil
}

// MarshalJSON encodes the list back into an ordered JSON object.
func (l TrackList) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, tracks := range l {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(tracks.Language)
		if err != nil {
			return nil, err
		}
		formats, err := json.Marshal(tracks.Formats)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(formats)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// vtt returns the first WebVTT rendition with a URL.
func (t LanguageTracks) vtt() (Format, bool) {
	for _, f := range t.Formats {
		if strings.EqualFold(f.Ext, "vtt") && f.URL != "" {
			return f, true
		}
	}
	return Format{}, false
}

// Selection is the chosen track and where it came from.
type Selection struct {
	Language  string
	Format    Format
	Automatic bool
}

// SelectTrack picks a WebVTT track. Human tracks always win over
// auto-generated ones; within each list the preferred languages are tried in
// order before falling back to the first language that has a WebVTT rendition.
func SelectTrack(human, automatic TrackList, languages []string) (Selection, bool) {
	if len(languages) == 0 {
		languages = DefaultLanguages
	}
	for _, candidate := range []struct {
		list TrackList
		auto bool
	}{{human, false}, {automatic, true}} {
		if sel, ok := pick(candidate.list, languages); ok {
			sel.Automatic = candidate.auto
			return sel, true
		}
	}
	return Selection{}, false
}

func pick(list TrackList, languages []string) (Selection, bool) {
	for _, lang := range languages {
		for _, tracks := range list {
			if tracks.Language != lang {
				continue
			}
			if f, ok := tracks.vtt(); ok {
				return Selection{Language: lang, Format: f}, true
			}
		}
	}
	for _, tracks := range list {
		if f, ok := tracks.vtt(); ok {
			return Selection{Language: tracks.Language, Format: f}, true
		}
	}
	return Selection{}, false
}
