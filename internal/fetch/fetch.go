// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fetch downloads raw source artifacts from configured upstream
// sources into the local staging area.
// Implements: prd001-fetch (R1-R6);
//
//	docs/ARCHITECTURE § Source Fetcher.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/pdiddy/corpus-engine/pkg/types"
)

// ErrAllSourcesFailed reports that every configured source failed; the run
// cannot continue.
var ErrAllSourcesFailed = errors.New("all sources failed")

// SourceError marks a source that could not be fetched. The run skips the
// source and continues with the rest.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s unavailable: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// SourceResult holds the staging outcome for a single source.
type SourceResult struct {
	// Artifacts lists every artifact available after the fetch, newly
	// downloaded or reused from a previous run.
	Artifacts []types.CandidateArtifact

	// Downloaded and Reused split Artifacts by whether the staged copy
	// already existed.
	Downloaded int
	Reused     int

	// Failed counts artifacts that could not be retrieved. Individual
	// failures do not fail the source.
	Failed int
}

// Source lists and stages the artifacts of one configured upstream.
// Implementations cover the closed set of source kinds: index, archive, dir.
type Source interface {
	Name() string

	// Fetch stages every artifact of the source into stage, printing
	// progress to w. On error the returned result holds whatever was
	// staged before the failure.
	Fetch(ctx context.Context, stage *Stage, w io.Writer) (SourceResult, error)
}

// New builds a Source from its descriptor. Unknown kinds and missing
// locations are configuration errors.
func New(client *http.Client, sc types.SourceConfig, cfg types.FetchConfig) (Source, error) {
	if sc.Name == "" {
		return nil, fmt.Errorf("source with empty name")
	}
	switch sc.Kind {
	case types.SourceIndex:
		if sc.URL == "" {
			return nil, fmt.Errorf("source %s: kind index requires url", sc.Name)
		}
		return &IndexSource{client: client, cfg: sc, http: cfg.HTTPConfig, delay: cfg.DownloadDelay}, nil
	case types.SourceArchive:
		if sc.URL == "" {
			return nil, fmt.Errorf("source %s: kind archive requires url", sc.Name)
		}
		return &ArchiveSource{client: client, cfg: sc, http: cfg.HTTPConfig}, nil
	case types.SourceDir:
		if sc.Path == "" {
			return nil, fmt.Errorf("source %s: kind dir requires path", sc.Name)
		}
		return &DirSource{cfg: sc}, nil
	default:
		return nil, fmt.Errorf("source %s: unknown kind %q", sc.Name, sc.Kind)
	}
}

// Result summarizes a whole fetch run across sources.
type Result struct {
	// Artifacts lists every staged artifact, ordered by source then ID.
	Artifacts []types.CandidateArtifact

	// Downloaded, Reused and Failed aggregate the per-source counts.
	Downloaded int
	Reused     int
	Failed     int

	// Skipped lists sources that were excluded after failing.
	Skipped []types.SkippedSource
}

// Total returns the number of artifacts available to the filter stage.
func (r Result) Total() int { return len(r.Artifacts) }

// HasSkipped reports whether any source was excluded.
func (r Result) HasSkipped() bool { return len(r.Skipped) > 0 }

const defaultConcurrency = 4

// FetchAll stages every configured source concurrently, bounded by
// cfg.ConcurrencyLimit (default min(4, number of sources)). A failing
// source is reported, recorded as skipped, and the run continues; when
// every source fails FetchAll returns ErrAllSourcesFailed. Cancellation
// stops new work and returns the context error with partial results.
func FetchAll(ctx context.Context, client *http.Client, cfg types.FetchConfig, stage *Stage, w io.Writer) (Result, error) {
	if len(cfg.Sources) == 0 {
		return Result{}, fmt.Errorf("no sources configured")
	}

	sources := make([]Source, 0, len(cfg.Sources))
	for _, sc := range cfg.Sources {
		src, err := New(client, sc, cfg)
		if err != nil {
			return Result{}, fmt.Errorf("invalid source configuration: %w", err)
		}
		sources = append(sources, src)
	}

	limit := cfg.ConcurrencyLimit
	if limit <= 0 {
		limit = defaultConcurrency
	}
	if limit > len(sources) {
		limit = len(sources)
	}

	type outcome struct {
		name   string
		result SourceResult
		err    error
	}

	ch := make(chan outcome, len(sources))
	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup

	for _, src := range sources {
		wg.Add(1)
		go func(src Source) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				ch <- outcome{name: src.Name(), err: ctx.Err()}
				return
			}
			defer func() { <-sem }()

			fmt.Fprintf(w, "fetching source %s\n", src.Name())
			res, err := src.Fetch(ctx, stage, w)
			ch <- outcome{name: src.Name(), result: res, err: err}
		}(src)
	}

	go func() {
		wg.Wait()
		close(ch)
	}()

	var result Result
	var cancelled error
	succeeded := 0
	for out := range ch {
		result.Artifacts = append(result.Artifacts, out.result.Artifacts...)
		result.Downloaded += out.result.Downloaded
		result.Reused += out.result.Reused
		result.Failed += out.result.Failed

		if out.err != nil {
			if errors.Is(out.err, context.Canceled) || errors.Is(out.err, context.DeadlineExceeded) {
				cancelled = out.err
				continue
			}
			srcErr := &SourceError{Source: out.name, Err: out.err}
			fmt.Fprintf(w, "warning: %v\n", srcErr)
			result.Skipped = append(result.Skipped, types.SkippedSource{
				Name:   out.name,
				Reason: "source-unavailable",
				Detail: out.err.Error(),
			})
			continue
		}
		succeeded++
	}

	sort.Slice(result.Artifacts, func(i, j int) bool {
		a, b := result.Artifacts[i], result.Artifacts[j]
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		return a.ID < b.ID
	})
	sort.Slice(result.Skipped, func(i, j int) bool {
		return result.Skipped[i].Name < result.Skipped[j].Name
	})

	if cancelled != nil {
		return result, cancelled
	}
	if succeeded == 0 {
		return result, fmt.Errorf("%w: %d source(s) skipped", ErrAllSourcesFailed, len(result.Skipped))
	}

	fmt.Fprintf(w, "\nFetch summary: %d downloaded, %d reused, %d failed, %d source(s) skipped (total staged: %d)\n",
		result.Downloaded, result.Reused, result.Failed, len(result.Skipped), result.Total())
	return result, nil
}

// sleepCtx waits for d or until ctx is cancelled, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
