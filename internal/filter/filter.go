// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package filter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/pdiddy/corpus-engine/internal/fetch"
	"github.com/pdiddy/corpus-engine/pkg/types"
)

// Result summarizes a filter run: every decision, the curated records,
// and the counts the run report prints.
type Result struct {
	// Decisions holds one entry per staged artifact, ordered by
	// artifact ID. Rejections are never dropped.
	Decisions []types.FilterDecision

	// Records holds the accepted artifacts, ordered by content hash so
	// repeated runs over the same input produce identical output.
	Records []types.CuratedRecord

	Accepted int
	Rejected map[types.RejectReason]int

	// Failed counts artifacts that could not be evaluated (unreadable
	// staged blob, history faults). Failures are not decisions.
	Failed int
}

// Total returns the number of artifacts processed.
func (r Result) Total() int { return len(r.Decisions) + r.Failed }

// TotalRejected sums the per-reason rejection counts.
func (r Result) TotalRejected() int {
	n := 0
	for _, c := range r.Rejected {
		n += c
	}
	return n
}

// HasFailures reports whether any artifact could not be evaluated.
func (r Result) HasFailures() bool { return r.Failed > 0 }

const defaultWorkers = 4

// FilterAll evaluates every staged artifact concurrently, bounded by
// cfg.ConcurrencyLimit (default 4). Evaluation faults are reported and
// counted without stopping the run. Cancellation stops new work and
// returns the context error with partial results.
func FilterAll(ctx context.Context, cfg types.FilterConfig, history HashIndex, stage *fetch.Stage, w io.Writer) (Result, error) {
	artifacts, err := stage.List()
	if err != nil {
		return Result{}, fmt.Errorf("listing staged artifacts: %w", err)
	}
	if len(artifacts) == 0 {
		return Result{}, fmt.Errorf("no staged artifacts in %s", stage.Dir())
	}

	engine := NewEngine(cfg, history)

	limit := cfg.ConcurrencyLimit
	if limit <= 0 {
		limit = defaultWorkers
	}

	type outcome struct {
		ref      string
		decision types.FilterDecision
		record   *types.CuratedRecord
		err      error
	}

	ch := make(chan outcome, len(artifacts))
	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup

	for _, a := range artifacts {
		wg.Add(1)
		go func(a types.CandidateArtifact) {
			defer wg.Done()
			ref := a.Source + "/" + a.ID
			if err := ctx.Err(); err != nil {
				ch <- outcome{ref: ref, err: err}
				return
			}
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				ch <- outcome{ref: ref, err: ctx.Err()}
				return
			}
			defer func() { <-sem }()

			raw, err := stage.ReadBlob(a)
			if err != nil {
				ch <- outcome{ref: ref, err: fmt.Errorf("reading staged blob: %w", err)}
				return
			}
			decision, record, err := engine.Evaluate(ctx, a, raw)
			ch <- outcome{ref: ref, decision: decision, record: record, err: err}
		}(a)
	}

	go func() {
		wg.Wait()
		close(ch)
	}()

	result := Result{Rejected: make(map[types.RejectReason]int)}
	var cancelled error
	for out := range ch {
		if out.err != nil {
			if errors.Is(out.err, context.Canceled) || errors.Is(out.err, context.DeadlineExceeded) {
				cancelled = out.err
				continue
			}
			fmt.Fprintf(w, "failed: %s (%v)\n", out.ref, out.err)
			result.Failed++
			continue
		}
		result.Decisions = append(result.Decisions, out.decision)
		if out.decision.Accepted {
			result.Records = append(result.Records, *out.record)
			result.Accepted++
		} else {
			result.Rejected[out.decision.Reason]++
		}
	}

	sort.Slice(result.Decisions, func(i, j int) bool {
		return result.Decisions[i].ArtifactID < result.Decisions[j].ArtifactID
	})
	sort.Slice(result.Records, func(i, j int) bool {
		return result.Records[i].ContentHash < result.Records[j].ContentHash
	})

	if cancelled != nil {
		return result, cancelled
	}

	fmt.Fprintf(w, "\nFilter summary: %d accepted, %d rejected, %d failed (of %d staged)\n",
		result.Accepted, result.TotalRejected(), result.Failed, len(artifacts))
	return result, nil
}
