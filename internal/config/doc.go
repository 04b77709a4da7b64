// Package config loads, normalizes, and validates captionjob configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads an optional .env file, and honours
// environment fallbacks such as CAPTION_JOB_TOKEN, GITHUB_TOKEN and
// YOUTUBE_COOKIE_TEXT. The Config type centralizes every knob the coordinator
// daemon, the CLI, and the extraction worker need.
//
// A Config is produced once by Load and passed around read-only afterwards;
// accessor helpers return copies or derived values rather than exposing
// mutable state.
package config
