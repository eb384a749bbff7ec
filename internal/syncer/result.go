package syncer

import (
	"time"

	"harvest/internal/services/catalog"
)

// Outcome classifies how a dataset sync task concluded.
type Outcome string

const (
	// OutcomeDownloaded means the dataset was fetched, normalized, and
	// written, and its watermark was recorded.
	OutcomeDownloaded Outcome = "downloaded"

	// OutcomeSkipped means the stored watermark was current; no network
	// call was made.
	OutcomeSkipped Outcome = "skipped"

	// OutcomePlanned means a dry run determined the dataset would be
	// downloaded.
	OutcomePlanned Outcome = "planned"

	// OutcomeFailed means the task hit an error; Err carries the cause.
	OutcomeFailed Outcome = "failed"
)

// Result is the per-dataset outcome of a sync task.
type Result struct {
	Dataset  catalog.Dataset
	Outcome  Outcome
	Path     string
	Rows     int
	Duration time.Duration
	Err      error
}

// Summary aggregates one sync run.
type Summary struct {
	RunID      string
	Theme      string
	DryRun     bool
	StartedAt  time.Time
	FinishedAt time.Time
	Results    []Result
}

// Count returns how many results concluded with the given outcome.
func (s *Summary) Count(outcome Outcome) int {
	n := 0
	for _, r := range s.Results {
		if r.Outcome == outcome {
			n++
		}
	}
	return n
}

// Failed reports whether any task concluded with OutcomeFailed.
func (s *Summary) Failed() bool {
	return s.Count(OutcomeFailed) > 0
}

// Duration returns the wall-clock time of the run.
func (s *Summary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}
