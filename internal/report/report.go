// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report renders and persists the per-run summary.
// Implements: prd005-cli (R3);
//
//	docs/ARCHITECTURE § Run Report.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/corpus-engine/pkg/types"
)

const reportFile = "report.yaml"

// Render prints the human-readable run summary.
func Render(w io.Writer, r types.RunReport) {
	elapsed := r.FinishedAt.Sub(r.StartedAt).Round(10 * time.Millisecond)
	fmt.Fprintf(w, "Run %s (%s)\n", r.RunID, elapsed)
	if r.Cancelled {
		fmt.Fprintf(w, "  CANCELLED (counts cover finished work only)\n")
	}

	fmt.Fprintf(w, "  %-24s %d\n", "fetched", r.Fetched)
	for _, s := range r.SkippedSources {
		fmt.Fprintf(w, "  %-24s %s (%s)\n", "skipped source", s.Name, s.Reason)
	}

	fmt.Fprintf(w, "  %-24s %d\n", "accepted", r.Accepted)
	fmt.Fprintf(w, "  %-24s %d\n", "rejected", r.TotalRejected())
	for _, reason := range types.RejectReasons() {
		if n := r.Rejected[reason]; n > 0 {
			fmt.Fprintf(w, "    %-22s %d\n", reason, n)
		}
	}
	if r.FilterFailures > 0 {
		fmt.Fprintf(w, "  %-24s %d\n", "filter failures", r.FilterFailures)
	}

	switch {
	case r.DryRun:
		fmt.Fprintf(w, "  %-24s skipped (dry run)\n", "published")
	case r.PublishedVersion != "":
		fmt.Fprintf(w, "  %-24s %s\n", "published", r.PublishedVersion)
	default:
		fmt.Fprintf(w, "  %-24s none\n", "published")
	}
}

// Write persists the report as YAML under dir.
func Write(dir string, r types.RunReport) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	path := filepath.Join(dir, reportFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}

// Load reads a previously written report back from dir.
func Load(dir string) (types.RunReport, error) {
	data, err := os.ReadFile(filepath.Join(dir, reportFile))
	if err != nil {
		return types.RunReport{}, fmt.Errorf("reading report: %w", err)
	}
	var r types.RunReport
	if err := yaml.Unmarshal(data, &r); err != nil {
		return types.RunReport{}, fmt.Errorf("parsing report: %w", err)
	}
	return r, nil
}
