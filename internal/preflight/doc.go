// Package preflight provides readiness checks for the filesystem paths,
// external services, and binaries captionjob depends on.
//
// The coordinator checks (data directory, job store, dispatch API) back the
// CLI "doctor" command. The worker checks (yt-dlp) run after a job is
// fetched so a missing binary is reported as a failed job instead of one
// "(unknown)" result per URL.
package preflight
