// Package coordinator owns the caption job state machine.
//
// Service accepts job requests from callers, persists them through a
// jobs.Store, and triggers one external worker run per job through a
// dispatch.Dispatcher. The worker then calls FetchForWork to receive the URLs
// and cookie jar (moving the job to running) and Complete to report results
// (moving it to completed or failed and discarding the cookie jar). Callers
// observe progress with Poll.
//
// Worker-facing operations require the shared job token; a wrong or missing
// token is rejected before the job is looked up.
package coordinator
