// Package daemon runs the long-lived coordinator process.
//
// It wires configuration, the job store, the dispatcher, and the coordinator
// service behind an HTTP API, and holds a flock-based lock so only one
// instance serves a data directory. Request handling stays thin: handlers
// decode, call the coordinator, and map classified errors to status codes.
package daemon
