// Command captionjob is the operator CLI for caption jobs.
//
// It submits and inspects jobs through a running coordinator's HTTP API,
// runs the coordinator in the foreground (serve), runs a dispatched job as
// the worker (worker run), and exposes the cookie and caption helpers used
// by both sides for local troubleshooting.
package main
