// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package publish builds the release manifest and drives the registry
// upload: two-phase promotion when the registry supports it, upload plus
// hash verification when it does not.
// Implements: prd003-publish (R1-R5);
//
//	docs/ARCHITECTURE § Publisher.
package publish

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/corpus-engine/internal/registry"
	"github.com/pdiddy/corpus-engine/pkg/types"
)

// Registry is the subset of the registry client the publisher drives.
// Narrowed for tests.
type Registry interface {
	EnsureDataset(ctx context.Context, name string, private bool) error
	UploadRecords(ctx context.Context, dataset, runID string, records []types.CuratedRecord) error
	UploadManifest(ctx context.Context, dataset, runID string, m types.PublishManifest) error
	Promote(ctx context.Context, dataset, runID string) (string, error)
	StagedRecords(ctx context.Context, dataset, runID string) ([]types.CuratedRecord, error)
	Finalize(ctx context.Context, dataset, runID string) (string, error)
}

// HistoryRecorder records confirmed manifests for cross-run deduplication.
type HistoryRecorder interface {
	RecordManifest(ctx context.Context, m types.PublishManifest) error
}

// Options carries the run-scoped publish parameters.
type Options struct {
	// RunID identifies the run; generated when empty.
	RunID string

	// ToolVersion is stamped into the manifest.
	ToolVersion string

	// DryRun builds the manifest and skips every registry call.
	DryRun bool
}

// BuildManifest assembles the PublishManifest for a curated record set.
// Entries are sorted by content hash; a duplicate hash in the input
// violates the no-duplicate invariant and is a hard error.
func BuildManifest(runID, dataset, toolVersion string, createdAt time.Time, records []types.CuratedRecord) (types.PublishManifest, error) {
	m := types.PublishManifest{
		RunID:          runID,
		Dataset:        dataset,
		CreatedAt:      createdAt,
		ToolVersion:    toolVersion,
		TotalRecords:   len(records),
		LanguageCounts: make(map[types.Language]int),
	}

	seen := make(map[string]string, len(records))
	for _, rec := range records {
		if rec.ContentHash == "" {
			return types.PublishManifest{}, fmt.Errorf("record %s/%s has no content hash", rec.RepoName, rec.FilePath)
		}
		if prior, ok := seen[rec.ContentHash]; ok {
			return types.PublishManifest{}, fmt.Errorf("duplicate content hash %s (%s and %s)", rec.ContentHash, prior, rec.FilePath)
		}
		seen[rec.ContentHash] = rec.FilePath

		m.LanguageCounts[rec.Language]++
		m.Records = append(m.Records, types.ManifestEntry{
			ContentHash: rec.ContentHash,
			Language:    rec.Language,
			RepoName:    rec.RepoName,
			FilePath:    rec.FilePath,
			SizeBytes:   rec.SizeBytes,
			NumTokens:   rec.NumTokens,
		})
	}

	sort.Slice(m.Records, func(i, j int) bool {
		return m.Records[i].ContentHash < m.Records[j].ContentHash
	})
	return m, nil
}

// Publish uploads the curated records as a new dataset version. The
// upload is atomic from the reader's perspective: records and manifest
// land in a staging revision, then a promote (or verified finalize)
// makes them visible. The confirmed manifest is recorded in the history
// index. Dry runs build the manifest and stop.
func Publish(ctx context.Context, reg Registry, hist HistoryRecorder, cfg types.RegistryConfig, opts Options, records []types.CuratedRecord, w io.Writer) (types.PublishManifest, error) {
	if len(records) == 0 {
		return types.PublishManifest{}, fmt.Errorf("no curated records to publish")
	}

	runID := opts.RunID
	if runID == "" {
		runID = uuid.New().String()
	}

	manifest, err := BuildManifest(runID, cfg.Dataset, opts.ToolVersion, time.Now().UTC(), records)
	if err != nil {
		return types.PublishManifest{}, fmt.Errorf("building manifest: %w", err)
	}

	if opts.DryRun {
		fmt.Fprintf(w, "dry-run: manifest for %d record(s) built, skipping upload\n", manifest.TotalRecords)
		return manifest, nil
	}

	fmt.Fprintf(w, "publishing %d record(s) to %s as run %s\n", manifest.TotalRecords, cfg.Dataset, runID)

	if err := reg.EnsureDataset(ctx, cfg.Dataset, cfg.Private); err != nil {
		return manifest, err
	}
	if err := reg.UploadRecords(ctx, cfg.Dataset, runID, records); err != nil {
		return manifest, err
	}
	if err := reg.UploadManifest(ctx, cfg.Dataset, runID, manifest); err != nil {
		return manifest, err
	}

	version, err := commit(ctx, reg, cfg, runID, manifest, w)
	if err != nil {
		return manifest, err
	}
	manifest.Version = version
	fmt.Fprintf(w, "published version %s\n", version)

	if hist != nil {
		if err := hist.RecordManifest(ctx, manifest); err != nil {
			fmt.Fprintf(w, "warning: publish confirmed but history not updated: %v\n", err)
		}
	}
	return manifest, nil
}

// commit makes the staged revision reader-visible: promote when the
// registry supports it, otherwise verify every staged record hash and
// finalize.
func commit(ctx context.Context, reg Registry, cfg types.RegistryConfig, runID string, manifest types.PublishManifest, w io.Writer) (string, error) {
	if !cfg.VerifyFallback {
		version, err := reg.Promote(ctx, cfg.Dataset, runID)
		if err == nil {
			return version, nil
		}
		if !errors.Is(err, registry.ErrPromoteUnsupported) {
			return "", err
		}
		fmt.Fprintf(w, "registry lacks promote support, verifying staged records instead\n")
	}

	if err := verifyStaged(ctx, reg, cfg.Dataset, runID, manifest); err != nil {
		return "", err
	}
	fmt.Fprintf(w, "verified %d staged record(s)\n", manifest.TotalRecords)
	return reg.Finalize(ctx, cfg.Dataset, runID)
}

// verifyStaged downloads the staged records and checks them against the
// manifest: same count, every manifest hash present, every content
// matching its declared hash.
func verifyStaged(ctx context.Context, reg Registry, dataset, runID string, manifest types.PublishManifest) error {
	staged, err := reg.StagedRecords(ctx, dataset, runID)
	if err != nil {
		return err
	}
	if len(staged) != manifest.TotalRecords {
		return fmt.Errorf("staged revision holds %d record(s), manifest lists %d", len(staged), manifest.TotalRecords)
	}

	want := make(map[string]bool, len(manifest.Records))
	for _, entry := range manifest.Records {
		want[entry.ContentHash] = true
	}
	for _, rec := range staged {
		sum := sha256.Sum256([]byte(rec.Content))
		if got := hex.EncodeToString(sum[:]); got != rec.ContentHash {
			return fmt.Errorf("staged record %s corrupted: content hashes to %s", rec.ContentHash, got)
		}
		if !want[rec.ContentHash] {
			return fmt.Errorf("staged record %s not listed in manifest", rec.ContentHash)
		}
	}
	return nil
}
