// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/corpus-engine/pkg/types"
)

const (
	rawDir      = "raw"
	metadataDir = "metadata"
)

// Stage is the on-disk staging area between the fetch and filter stages.
// Layout: <base>/raw/<source>/<id> holds the blob bytes and
// <base>/metadata/<source>/<id>.yaml holds the CandidateArtifact sidecar.
// Safe for concurrent use by source goroutines: sources never share an
// artifact ID, and writes go through temp file + rename.
type Stage struct {
	base string
}

// NewStage returns a Stage rooted at dir.
func NewStage(dir string) *Stage {
	return &Stage{base: dir}
}

// Dir returns the staging root.
func (s *Stage) Dir() string { return s.base }

func (s *Stage) rawPath(source, id string) string {
	return filepath.Join(s.base, rawDir, source, id)
}

func (s *Stage) metaPath(source, id string) string {
	return filepath.Join(s.base, metadataDir, source, id+".yaml")
}

// Reuse returns the already-staged artifact matching a, if one exists.
// When the sidecar is missing or unreadable the artifact is rebuilt from
// a plus the staged file's size.
func (s *Stage) Reuse(a types.CandidateArtifact) (types.CandidateArtifact, bool) {
	rawPath := s.rawPath(a.Source, a.ID)
	info, err := os.Stat(rawPath)
	if err != nil {
		return types.CandidateArtifact{}, false
	}

	if existing, err := s.ReadMetadata(a.Source, a.ID); err == nil {
		return existing, true
	}
	a.StagedPath = rawPath
	a.Size = info.Size()
	return a, true
}

// Store stages the blob bytes for a and writes its metadata sidecar. The
// blob lands via a temporary file renamed into place, so a staged file is
// always complete. Store fills StagedPath, Size, and RetrievedAt.
func (s *Stage) Store(a types.CandidateArtifact, r io.Reader) (types.CandidateArtifact, error) {
	destPath := s.rawPath(a.Source, a.ID)
	for _, dir := range []string{
		filepath.Dir(destPath),
		filepath.Dir(s.metaPath(a.Source, a.ID)),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return a, fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".fetch-*.tmp")
	if err != nil {
		return a, fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	size, copyErr := io.Copy(tmpFile, r)
	closeErr := tmpFile.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return a, fmt.Errorf("writing blob: %w", copyErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return a, fmt.Errorf("closing temp file: %w", closeErr)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return a, fmt.Errorf("renaming temp file: %w", err)
	}

	a.StagedPath = destPath
	a.Size = size
	a.RetrievedAt = time.Now().UTC()

	if err := s.WriteMetadata(a); err != nil {
		return a, err
	}
	return a, nil
}

// WriteMetadata writes the artifact sidecar YAML.
func (s *Stage) WriteMetadata(a types.CandidateArtifact) error {
	data, err := yaml.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}
	return os.WriteFile(s.metaPath(a.Source, a.ID), data, 0o644)
}

// ReadMetadata loads one artifact sidecar.
func (s *Stage) ReadMetadata(source, id string) (types.CandidateArtifact, error) {
	data, err := os.ReadFile(s.metaPath(source, id))
	if err != nil {
		return types.CandidateArtifact{}, err
	}
	var a types.CandidateArtifact
	if err := yaml.Unmarshal(data, &a); err != nil {
		return types.CandidateArtifact{}, fmt.Errorf("parsing metadata %s/%s: %w", source, id, err)
	}
	return a, nil
}

// ReadBlob returns the staged bytes of an artifact.
func (s *Stage) ReadBlob(a types.CandidateArtifact) ([]byte, error) {
	path := a.StagedPath
	if path == "" {
		path = s.rawPath(a.Source, a.ID)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading staged blob %s/%s: %w", a.Source, a.ID, err)
	}
	return data, nil
}

// List loads every staged artifact's sidecar, ordered by source then ID.
// Sources with no artifacts and a missing staging area both yield an empty
// list.
func (s *Stage) List() ([]types.CandidateArtifact, error) {
	root := filepath.Join(s.base, metadataDir)
	sourceDirs, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading staging metadata %s: %w", root, err)
	}

	var artifacts []types.CandidateArtifact
	for _, sd := range sourceDirs {
		if !sd.IsDir() {
			continue
		}
		entries, err := os.ReadDir(filepath.Join(root, sd.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading staging metadata for %s: %w", sd.Name(), err)
		}
		for _, entry := range entries {
			name := entry.Name()
			if entry.IsDir() || !strings.HasSuffix(name, ".yaml") {
				continue
			}
			a, err := s.ReadMetadata(sd.Name(), strings.TrimSuffix(name, ".yaml"))
			if err != nil {
				return nil, err
			}
			artifacts = append(artifacts, a)
		}
	}

	sort.Slice(artifacts, func(i, j int) bool {
		if artifacts[i].Source != artifacts[j].Source {
			return artifacts[i].Source < artifacts[j].Source
		}
		return artifacts[i].ID < artifacts[j].ID
	})
	return artifacts, nil
}

// slugify flattens a source-relative path into a filesystem-safe artifact
// ID. Path separators become "__"; bytes outside [A-Za-z0-9._-] become "-";
// leading dots are stripped so an ID never escapes its staging directory.
func slugify(p string) string {
	var b strings.Builder
	for _, r := range p {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '_', r == '-':
			b.WriteRune(r)
		case r == '/' || r == '\\':
			b.WriteString("__")
		default:
			b.WriteRune('-')
		}
	}
	id := strings.TrimLeft(b.String(), ".")
	if strings.Trim(id, "-_.") == "" {
		return "blob"
	}
	return id
}
