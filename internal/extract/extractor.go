package extract

import (
	"context"
	"log/slog"
	"strings"

	"captionjob/internal/captions"
	"captionjob/internal/logging"
)

// Request carries per-URL fetch inputs shared by all URLs of a job.
type Request struct {
	// CookieJar is the path of a Netscape cookie file, empty for none.
	CookieJar string
	Headers   map[string]string
	// Adaptive enables adaptive-stream formats on the metadata probe.
	Adaptive bool
}

// VideoInfo is the subset of metadata the extractor needs.
type VideoInfo struct {
	Title             string             `json:"title"`
	Subtitles         captions.TrackList `json:"subtitles"`
	AutomaticCaptions captions.TrackList `json:"automatic_captions"`
}

// Source produces video metadata and downloads caption tracks.
type Source interface {
	Probe(ctx context.Context, url string, req Request) (*VideoInfo, error)
	Download(ctx context.Context, trackURL string, req Request) (string, error)
}

// Transcript is the result for one URL. HasCaptions is false when the video
// offers no usable track or the track cleans to nothing.
type Transcript struct {
	Title       string
	Text        string
	HasCaptions bool
	Language    string
	Automatic   bool
}

// Extractor picks, downloads, and cleans caption tracks.
type Extractor struct {
	source    Source
	languages []string
	logger    *slog.Logger
}

// NewExtractor returns an Extractor over source. An empty language list uses
// captions.DefaultLanguages.
func NewExtractor(source Source, languages []string, logger *slog.Logger) *Extractor {
	if len(languages) == 0 {
		languages = captions.DefaultLanguages
	}
	return &Extractor{
		source:    source,
		languages: append([]string(nil), languages...),
		logger:    logging.NewComponentLogger(logger, "extract"),
	}
}

// Extract returns the transcript for url. The first attempt runs with
// adaptive formats disabled; a FailureFormatUnavailable result triggers
// exactly one more attempt with them enabled.
func (e *Extractor) Extract(ctx context.Context, url string, req Request) (Transcript, error) {
	req.Adaptive = false
	transcript, err := e.attempt(ctx, url, req)
	if err == nil || KindOf(err) != FailureFormatUnavailable {
		return transcript, err
	}
	e.logger.Info("formats unavailable, retrying with adaptive formats",
		logging.String(logging.FieldURL, url), logging.Error(err))
	req.Adaptive = true
	return e.attempt(ctx, url, req)
}

func (e *Extractor) attempt(ctx context.Context, url string, req Request) (Transcript, error) {
	info, err := e.source.Probe(ctx, url, req)
	if err != nil {
		return Transcript{}, err
	}
	out := Transcript{Title: strings.TrimSpace(info.Title)}

	sel, ok := captions.SelectTrack(info.Subtitles, info.AutomaticCaptions, e.languages)
	if !ok {
		return out, nil
	}
	raw, err := e.source.Download(ctx, sel.Format.URL, req)
	if err != nil {
		return out, err
	}
	out.Text = captions.Clean(raw)
	out.HasCaptions = out.Text != ""
	out.Language = sel.Language
	out.Automatic = sel.Automatic
	return out, nil
}
