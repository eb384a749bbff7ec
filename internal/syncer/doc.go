// Package syncer contains the incremental sync pipeline: one task per
// matched dataset, dispatched onto a bounded worker pool.
//
// Each task consults the shared watermark store, downloads and
// normalizes the dataset when stale, and records the new watermark.
// Task failures are values carried in the Result, never control flow
// across the pool: one dataset failing cannot cancel or block its
// siblings, and the orchestrator always waits for every task.
package syncer
