// Package extract fetches and cleans the caption track for one video URL.
//
// A Source reports video metadata with its caption track listings and
// downloads a chosen track; YtDlp implements it with the yt-dlp binary for
// metadata and plain HTTP for the track. Extractor applies the track
// preference, cleans the result, and owns the single retry: when the first
// attempt (adaptive formats disabled) fails with FailureFormatUnavailable,
// the attempt is repeated once with adaptive formats enabled.
package extract
