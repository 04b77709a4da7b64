// Package worker runs one dispatched caption job: it fetches the job from
// the coordinator, extracts every URL in order, and posts the results back.
//
// Per-URL failures never abort the batch; they are folded into Outcomes and
// reported as results carrying a warning. Only failures that leave nothing
// to report per URL (bad settings, an unwritable cookie jar) post a failed
// job.
package worker
