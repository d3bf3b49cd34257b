// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package history

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/corpus-engine/pkg/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history", "corpus.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func makeManifest(version, runID string, hashes ...string) types.PublishManifest {
	m := types.PublishManifest{
		RunID:        runID,
		Dataset:      "mainframe-corpus",
		Version:      version,
		CreatedAt:    time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC),
		ToolVersion:  "1.2.0",
		TotalRecords: len(hashes),
	}
	for i, h := range hashes {
		m.Records = append(m.Records, types.ManifestEntry{
			ContentHash: h,
			Language:    types.LangCOBOL,
			RepoName:    "acme/payroll",
			FilePath:    fmt.Sprintf("src/prog%d.cbl", i),
			SizeBytes:   int64(100 + i),
			NumTokens:   40 + i,
		})
	}
	return m
}

func TestOpenCreatesDatabase(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "history.db")

	store, err := Open(path)
	require.NoError(t, err)
	defer store.Close()

	_, statErr := os.Stat(path)
	assert.NoError(t, statErr)

	n, err := store.HashCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestRecordManifestAndHasHash(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	m := makeManifest("v1", "run-1", "aaa", "bbb")
	require.NoError(t, store.RecordManifest(ctx, m))

	for _, h := range []string{"aaa", "bbb"} {
		ok, err := store.HasHash(ctx, h)
		require.NoError(t, err)
		assert.True(t, ok, "hash %s not recorded", h)
	}

	ok, err := store.HasHash(ctx, "ccc")
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := store.HashCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRecordManifestRequiresVersion(t *testing.T) {
	store := openTestStore(t)

	m := makeManifest("", "run-1", "aaa")
	require.Error(t, store.RecordManifest(context.Background(), m))
}

func TestRecordManifestIsIdempotent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	m := makeManifest("v1", "run-1", "aaa")
	require.NoError(t, store.RecordManifest(ctx, m))
	require.NoError(t, store.RecordManifest(ctx, m))

	infos, err := store.ListManifests(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "v1", infos[0].Version)

	n, err := store.HashCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRepublishedHashKeepsFirstManifest(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.RecordManifest(ctx, makeManifest("v1", "run-1", "aaa")))
	require.NoError(t, store.RecordManifest(ctx, makeManifest("v2", "run-2", "aaa", "bbb")))

	n, err := store.HashCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestListManifestsNewestFirst(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	old := makeManifest("v1", "run-1", "aaa")
	old.CreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := makeManifest("v2", "run-2", "bbb")
	recent.CreatedAt = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.RecordManifest(ctx, old))
	require.NoError(t, store.RecordManifest(ctx, recent))

	infos, err := store.ListManifests(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "v2", infos[0].Version)
	assert.Equal(t, "v1", infos[1].Version)
	assert.Equal(t, recent.CreatedAt, infos[0].CreatedAt)
	assert.Equal(t, 1, infos[0].TotalRecords)
}

func TestReplaceRebuildsHistory(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.RecordManifest(ctx, makeManifest("v1", "run-1", "aaa")))
	require.NoError(t, store.RecordManifest(ctx, makeManifest("v2", "run-2", "bbb")))

	require.NoError(t, store.Replace(ctx, []types.PublishManifest{
		makeManifest("v3", "run-3", "ccc", "ddd"),
	}))

	infos, err := store.ListManifests(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "v3", infos[0].Version)

	ok, err := store.HasHash(ctx, "aaa")
	require.NoError(t, err)
	assert.False(t, ok, "replaced hash still present")

	ok, err = store.HasHash(ctx, "ccc")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.RecordManifest(ctx, makeManifest("v1", "run-1", "aaa")))
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	ok, err := reopened.HasHash(ctx, "aaa")
	require.NoError(t, err)
	assert.True(t, ok)
}
