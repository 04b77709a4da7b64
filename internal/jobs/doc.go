// Package jobs defines the caption job record, its state machine, and the
// stores that persist it.
//
// A Job is created queued, moves to running when the worker fetches it, and
// ends completed or failed. The coordinator is the only writer; stores are
// passive and replace whole records atomically. Three backends are provided:
// one JSON file per job (the default), SQLite via modernc.org/sqlite, and
// Redis via go-redis. Open selects one from configuration.
package jobs
