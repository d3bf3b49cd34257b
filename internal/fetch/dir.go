// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pdiddy/corpus-engine/pkg/types"
)

// DirSource stages every regular file under a local directory tree, for
// pre-staged mirrors and tests. Metadata is declared at the source level.
type DirSource struct {
	cfg types.SourceConfig
}

func (s *DirSource) Name() string { return s.cfg.Name }

// Fetch walks the tree and stages each file. Unreadable files are reported
// and skipped.
func (s *DirSource) Fetch(ctx context.Context, stage *Stage, w io.Writer) (SourceResult, error) {
	root := s.cfg.Path
	if _, err := os.Stat(root); err != nil {
		return SourceResult{}, fmt.Errorf("source directory: %w", err)
	}

	var result SourceResult
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		a := s.artifact(filepath.ToSlash(rel), path)

		if existing, ok := stage.Reuse(a); ok {
			result.Artifacts = append(result.Artifacts, existing)
			result.Reused++
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			fmt.Fprintf(w, "failed: %s/%s (%v)\n", s.cfg.Name, a.ID, err)
			result.Failed++
			return nil
		}
		staged, storeErr := stage.Store(a, f)
		f.Close()
		if storeErr != nil {
			fmt.Fprintf(w, "failed: %s/%s (%v)\n", s.cfg.Name, a.ID, storeErr)
			result.Failed++
			return nil
		}
		result.Artifacts = append(result.Artifacts, staged)
		result.Downloaded++
		return nil
	})
	return result, err
}

func (s *DirSource) artifact(rel, abs string) types.CandidateArtifact {
	return types.CandidateArtifact{
		ID:       slugify(rel),
		Source:   s.cfg.Name,
		Origin:   "file://" + abs,
		HostURL:  s.cfg.HostURL,
		RepoName: s.cfg.Repo,
		Path:     rel,
		Encoding: s.cfg.Encoding,
		Licenses: s.cfg.Licenses,
		Language: s.cfg.Language,
		Branch:   s.cfg.Branch,
	}
}
