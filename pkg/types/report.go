// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// SkippedSource records a source that failed during fetch and was
// excluded from the run without aborting it.
// Per prd001-fetch R4.
type SkippedSource struct {
	// Name is the configured source name.
	Name string `json:"name" yaml:"name"`

	// Reason is the error classification (e.g. "source-unavailable").
	Reason string `json:"reason" yaml:"reason"`

	// Detail is the underlying error text.
	Detail string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// RunReport is the structured per-run summary: what was fetched, what
// the filter decided and why, and what got published. Written alongside
// the curated set and printed at the end of a run.
// Per prd005-cli R3.
type RunReport struct {
	// RunID identifies the run.
	RunID string `json:"run_id" yaml:"run_id"`

	// StartedAt and FinishedAt bound the run's wall-clock time.
	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`

	// Fetched counts artifacts staged this run (new downloads plus
	// already-staged files that were reused).
	Fetched int `json:"fetched" yaml:"fetched"`

	// SkippedSources lists sources excluded from the run.
	SkippedSources []SkippedSource `json:"skipped_sources,omitempty" yaml:"skipped_sources,omitempty"`

	// Accepted counts curated records produced by the filter.
	Accepted int `json:"accepted" yaml:"accepted"`

	// Rejected counts rejections by reason.
	Rejected map[RejectReason]int `json:"rejected,omitempty" yaml:"rejected,omitempty"`

	// FilterFailures counts artifacts the filter could not evaluate
	// (unreadable blobs, history faults). Failures are not rejections.
	FilterFailures int `json:"filter_failures,omitempty" yaml:"filter_failures,omitempty"`

	// PublishedVersion is the registry version confirmed by the publish
	// stage; empty for dry runs and failed publishes.
	PublishedVersion string `json:"published_version,omitempty" yaml:"published_version,omitempty"`

	// DryRun reports whether the publish stage was skipped on purpose.
	DryRun bool `json:"dry_run,omitempty" yaml:"dry_run,omitempty"`

	// Cancelled reports whether the run stopped early on a cancellation
	// signal. A cancelled run's counts cover finished work only.
	Cancelled bool `json:"cancelled,omitempty" yaml:"cancelled,omitempty"`
}

// TotalRejected sums the per-reason rejection counts.
func (r RunReport) TotalRejected() int {
	total := 0
	for _, n := range r.Rejected {
		total += n
	}
	return total
}
