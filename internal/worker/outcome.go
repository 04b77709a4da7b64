package worker

import (
	"captionjob/internal/captions"
	"captionjob/internal/extract"
	"captionjob/internal/jobs"
)

// Placeholders reported when a URL yields nothing usable. UnknownTitle marks a
// failed extraction; UntitledTitle stands in for a video that has no title.
const (
	UnknownTitle     = "(unknown)"
	UntitledTitle    = "video"
	NoCaptionsNotice = "no captions"
)

// Outcome is the extraction result for one URL, either a transcript or the
// error that prevented one.
type Outcome struct {
	URL        string
	Transcript extract.Transcript
	Err        error
}

// Result converts the outcome into the record posted to the coordinator.
func (o Outcome) Result() jobs.Result {
	if o.Err != nil {
		warning := o.Err.Error()
		return jobs.Result{
			URL:      o.URL,
			Title:    UnknownTitle,
			Filename: captions.FileName(""),
			Warning:  &warning,
		}
	}
	title := o.Transcript.Title
	if title == "" {
		title = UntitledTitle
	}
	result := jobs.Result{
		URL:      o.URL,
		Title:    title,
		Filename: captions.FileName(o.Transcript.Title),
	}
	if o.Transcript.HasCaptions {
		text := o.Transcript.Text
		result.Text = &text
	} else {
		warning := NoCaptionsNotice
		result.Warning = &warning
	}
	return result
}

// Results maps outcomes to results, preserving order.
func Results(outcomes []Outcome) []jobs.Result {
	out := make([]jobs.Result, 0, len(outcomes))
	for _, o := range outcomes {
		out = append(out, o.Result())
	}
	return out
}
