package fetch

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/pdiddy/corpus-engine/pkg/types"
)

func newDirTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir for %s: %v", rel, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("writing %s: %v", rel, err)
		}
	}
	return root
}

func TestDirSourceFetch(t *testing.T) {
	root := newDirTree(t, map[string]string{
		"cobol/PAYROLL.CBL": "IDENTIFICATION DIVISION.",
		"jcl/NIGHTLY.JCL":   "//NIGHTLY JOB\n",
	})
	src := &DirSource{cfg: types.SourceConfig{
		Name:     "mirror",
		Kind:     types.SourceDir,
		Path:     root,
		Repo:     "acme/mirror",
		Licenses: []string{"Apache-2.0"},
	}}
	stage := NewStage(t.TempDir())

	res, err := src.Fetch(context.Background(), stage, io.Discard)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if res.Downloaded != 2 || res.Failed != 0 {
		t.Fatalf("counts = %d downloaded, %d failed, want 2/0", res.Downloaded, res.Failed)
	}

	for _, a := range res.Artifacts {
		if a.RepoName != "acme/mirror" {
			t.Errorf("repo not applied: %+v", a)
		}
		if filepath.IsAbs(a.Path) {
			t.Errorf("artifact path not relative: %q", a.Path)
		}
		blob, err := stage.ReadBlob(a)
		if err != nil {
			t.Fatalf("ReadBlob(%s): %v", a.ID, err)
		}
		if len(blob) == 0 {
			t.Errorf("empty blob staged for %s", a.ID)
		}
	}
}

func TestDirSourceReusesStagedFiles(t *testing.T) {
	root := newDirTree(t, map[string]string{"a.cbl": "one"})
	src := &DirSource{cfg: types.SourceConfig{Name: "mirror", Kind: types.SourceDir, Path: root}}
	stage := NewStage(t.TempDir())

	if _, err := src.Fetch(context.Background(), stage, io.Discard); err != nil {
		t.Fatalf("first Fetch: %v", err)
	}
	res, err := src.Fetch(context.Background(), stage, io.Discard)
	if err != nil {
		t.Fatalf("second Fetch: %v", err)
	}
	if res.Downloaded != 0 || res.Reused != 1 {
		t.Errorf("second fetch counts = %d/%d, want 0 downloaded, 1 reused", res.Downloaded, res.Reused)
	}
}

func TestDirSourceMissingRoot(t *testing.T) {
	src := &DirSource{cfg: types.SourceConfig{
		Name: "mirror",
		Kind: types.SourceDir,
		Path: filepath.Join(t.TempDir(), "does-not-exist"),
	}}
	stage := NewStage(t.TempDir())

	_, err := src.Fetch(context.Background(), stage, io.Discard)
	if err == nil {
		t.Fatal("Fetch succeeded against a missing directory")
	}
}

func TestDirSourceCancellation(t *testing.T) {
	root := newDirTree(t, map[string]string{"a.cbl": "one", "b.cbl": "two"})
	src := &DirSource{cfg: types.SourceConfig{Name: "mirror", Kind: types.SourceDir, Path: root}}
	stage := NewStage(t.TempDir())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := src.Fetch(ctx, stage, io.Discard)
	if err != context.Canceled {
		t.Fatalf("Fetch error = %v, want context.Canceled", err)
	}
}
