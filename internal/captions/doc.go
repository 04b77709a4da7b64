// Package captions turns downloaded WebVTT caption tracks into plain text.
//
// Clean strips timecodes, header metadata, and inline markup, then collapses
// the rolling duplicates that auto-generated captions produce. SelectTrack
// picks the track to download from the human and auto-generated track lists
// reported by the extraction tool, and SanitizeFileName derives the output
// file name from a video title.
package captions
