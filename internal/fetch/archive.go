// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/pdiddy/corpus-engine/internal/httputil"
	"github.com/pdiddy/corpus-engine/pkg/types"
)

// ArchiveSource stages every regular-file member of an HTTP repository
// snapshot, tar.gz or zip. License, language, and provenance are declared
// at the source level since snapshot members carry no per-file metadata.
type ArchiveSource struct {
	client *http.Client
	cfg    types.SourceConfig
	http   types.HTTPConfig
}

func (s *ArchiveSource) Name() string { return s.cfg.Name }

// Fetch downloads the snapshot to a temporary file, detects its format by
// magic bytes, and stages each member.
func (s *ArchiveSource) Fetch(ctx context.Context, stage *Stage, w io.Writer) (SourceResult, error) {
	tmpPath, err := s.downloadArchive(ctx)
	if err != nil {
		return SourceResult{}, err
	}
	defer os.Remove(tmpPath)

	format, err := sniffArchive(tmpPath)
	if err != nil {
		return SourceResult{}, err
	}

	var result SourceResult
	switch format {
	case "zip":
		err = s.extractZip(ctx, tmpPath, stage, w, &result)
	case "tar.gz":
		err = s.extractTarGz(ctx, tmpPath, stage, w, &result)
	}
	return result, err
}

// downloadArchive retrieves the snapshot into a temporary file and returns
// its path. The caller removes it.
func (s *ArchiveSource) downloadArchive(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.URL, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", s.http.UserAgent)
	if s.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.Token)
	}

	resp, err := httputil.DoWithRetry(ctx, s.client, req, 0)
	if err != nil {
		return "", fmt.Errorf("downloading archive: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d from %s", resp.StatusCode, s.cfg.URL)
	}

	tmpFile, err := os.CreateTemp("", "corpus-archive-*")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	_, copyErr := io.Copy(tmpFile, resp.Body)
	closeErr := tmpFile.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("writing archive: %w", copyErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("closing temp file: %w", closeErr)
	}
	return tmpPath, nil
}

// sniffArchive identifies the snapshot format from its magic bytes.
func sniffArchive(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening archive: %w", err)
	}
	defer f.Close()

	magic := make([]byte, 4)
	if _, err := io.ReadFull(f, magic); err != nil {
		return "", fmt.Errorf("reading archive header: %w", err)
	}
	switch {
	case magic[0] == 'P' && magic[1] == 'K' && magic[2] == 0x03 && magic[3] == 0x04:
		return "zip", nil
	case magic[0] == 0x1f && magic[1] == 0x8b:
		return "tar.gz", nil
	default:
		return "", fmt.Errorf("unrecognized archive format (expected tar.gz or zip)")
	}
}

func (s *ArchiveSource) extractZip(ctx context.Context, path string, stage *Stage, w io.Writer, result *SourceResult) error {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("opening zip: %w", err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		if f.FileInfo().IsDir() || !f.Mode().IsRegular() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			fmt.Fprintf(w, "failed: %s/%s (%v)\n", s.cfg.Name, f.Name, err)
			result.Failed++
			continue
		}
		s.stageMember(stage, w, result, f.Name, rc)
		rc.Close()
	}
	return nil
}

func (s *ArchiveSource) extractTarGz(ctx context.Context, path string, stage *Stage, w io.Writer, result *SourceResult) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("opening gzip stream: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading tar stream: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		s.stageMember(stage, w, result, hdr.Name, tr)
	}
}

// stageMember stages one archive member, reusing an existing staged copy
// when present.
func (s *ArchiveSource) stageMember(stage *Stage, w io.Writer, result *SourceResult, memberPath string, r io.Reader) {
	a := s.artifact(memberPath)

	if existing, ok := stage.Reuse(a); ok {
		result.Artifacts = append(result.Artifacts, existing)
		result.Reused++
		return
	}

	staged, err := stage.Store(a, r)
	if err != nil {
		fmt.Fprintf(w, "failed: %s/%s (%v)\n", s.cfg.Name, a.ID, err)
		result.Failed++
		return
	}
	result.Artifacts = append(result.Artifacts, staged)
	result.Downloaded++
}

func (s *ArchiveSource) artifact(memberPath string) types.CandidateArtifact {
	memberPath = strings.TrimPrefix(memberPath, "./")
	return types.CandidateArtifact{
		ID:       slugify(memberPath),
		Source:   s.cfg.Name,
		Origin:   s.cfg.URL + "!" + memberPath,
		HostURL:  s.cfg.HostURL,
		RepoName: s.cfg.Repo,
		Path:     memberPath,
		Encoding: s.cfg.Encoding,
		Licenses: s.cfg.Licenses,
		Language: s.cfg.Language,
		Branch:   s.cfg.Branch,
	}
}
