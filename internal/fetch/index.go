// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pdiddy/corpus-engine/internal/httputil"
	"github.com/pdiddy/corpus-engine/pkg/types"
)

// IndexSource stages artifacts listed by an HTTP JSON blob index: one
// document enumerating blobs, each downloaded individually. The blob rows
// carry the upstream corpus metadata (declared encoding, licenses,
// provenance), so the index document doubles as the artifact metadata feed.
type IndexSource struct {
	client *http.Client
	cfg    types.SourceConfig
	http   types.HTTPConfig
	delay  time.Duration
}

// indexDocument is the JSON shape of a blob index.
type indexDocument struct {
	Blobs []indexBlob `json:"blobs"`
}

// indexBlob is one row of a blob index. Field names follow the upstream
// corpus row schema.
type indexBlob struct {
	BlobID           string   `json:"blob_id"`
	Path             string   `json:"path"`
	URL              string   `json:"url,omitempty"`
	Gzip             bool     `json:"gzip,omitempty"`
	SrcEncoding      string   `json:"src_encoding,omitempty"`
	DetectedLicenses []string `json:"detected_licenses,omitempty"`
	Language         string   `json:"language,omitempty"`
	RepoName         string   `json:"repo_name,omitempty"`
	RevisionID       string   `json:"revision_id,omitempty"`
	CommitterDate    string   `json:"committer_date,omitempty"`
	BranchName       string   `json:"branch_name,omitempty"`
}

func (s *IndexSource) Name() string { return s.cfg.Name }

// Fetch downloads the index document, then stages each listed blob.
// Already-staged blobs are reused without re-downloading; individual blob
// failures are reported and skipped.
func (s *IndexSource) Fetch(ctx context.Context, stage *Stage, w io.Writer) (SourceResult, error) {
	base, err := url.Parse(s.cfg.URL)
	if err != nil {
		return SourceResult{}, fmt.Errorf("parsing index url: %w", err)
	}

	doc, err := s.loadIndex(ctx)
	if err != nil {
		return SourceResult{}, err
	}

	var result SourceResult
	for _, blob := range doc.Blobs {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		blobURL, err := resolveBlobURL(base, blob)
		if err != nil {
			fmt.Fprintf(w, "failed: %s/%s (%v)\n", s.cfg.Name, blob.Path, err)
			result.Failed++
			continue
		}
		a := s.artifact(blob, blobURL)

		if existing, ok := stage.Reuse(a); ok {
			result.Artifacts = append(result.Artifacts, existing)
			result.Reused++
			continue
		}

		if result.Downloaded > 0 {
			if err := sleepCtx(ctx, s.delay); err != nil {
				return result, err
			}
		}

		staged, err := s.download(ctx, stage, a, blob, blobURL)
		if err != nil {
			fmt.Fprintf(w, "failed: %s/%s (%v)\n", s.cfg.Name, a.ID, err)
			result.Failed++
			continue
		}
		result.Artifacts = append(result.Artifacts, staged)
		result.Downloaded++
	}
	return result, nil
}

// loadIndex retrieves and parses the index document.
func (s *IndexSource) loadIndex(ctx context.Context) (indexDocument, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.URL, nil)
	if err != nil {
		return indexDocument{}, fmt.Errorf("creating index request: %w", err)
	}
	req.Header.Set("User-Agent", s.http.UserAgent)
	req.Header.Set("Accept", "application/json")
	if s.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.Token)
	}

	resp, err := httputil.DoWithRetry(ctx, s.client, req, 0)
	if err != nil {
		return indexDocument{}, fmt.Errorf("fetching index: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return indexDocument{}, fmt.Errorf("index returned HTTP %d", resp.StatusCode)
	}

	var doc indexDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return indexDocument{}, fmt.Errorf("parsing index: %w", err)
	}
	return doc, nil
}

// resolveBlobURL resolves the blob's download URL against the index URL.
// Blobs without a url field default to content/<blob_id>.
func resolveBlobURL(base *url.URL, blob indexBlob) (string, error) {
	raw := blob.URL
	if raw == "" {
		if blob.BlobID == "" {
			return "", fmt.Errorf("blob has neither url nor blob_id")
		}
		raw = "content/" + blob.BlobID
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parsing blob url: %w", err)
	}
	return base.ResolveReference(ref).String(), nil
}

// artifact builds the CandidateArtifact for a blob row, applying source
// defaults for fields the row leaves empty.
func (s *IndexSource) artifact(blob indexBlob, blobURL string) types.CandidateArtifact {
	id := blob.BlobID
	if id == "" {
		id = blob.Path
	}

	encoding := blob.SrcEncoding
	if encoding == "" {
		encoding = s.cfg.Encoding
	}
	licenses := blob.DetectedLicenses
	if len(licenses) == 0 {
		licenses = s.cfg.Licenses
	}
	lang := types.Language(blob.Language)
	if lang == "" {
		lang = s.cfg.Language
	}
	branch := blob.BranchName
	if branch == "" {
		branch = s.cfg.Branch
	}

	return types.CandidateArtifact{
		ID:         slugify(id),
		Source:     s.cfg.Name,
		Origin:     blobURL,
		HostURL:    s.cfg.HostURL,
		RepoName:   blob.RepoName,
		Path:       blob.Path,
		Encoding:   encoding,
		Licenses:   licenses,
		Language:   lang,
		RevisionID: blob.RevisionID,
		CommitDate: blob.CommitterDate,
		Branch:     branch,
	}
}

// download retrieves one blob and stages it, transparently decompressing
// gzip-compressed blobs.
func (s *IndexSource) download(ctx context.Context, stage *Stage, a types.CandidateArtifact, blob indexBlob, blobURL string) (types.CandidateArtifact, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, blobURL, nil)
	if err != nil {
		return a, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", s.http.UserAgent)
	if s.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.Token)
	}

	resp, err := httputil.DoWithRetry(ctx, s.client, req, 0)
	if err != nil {
		return a, fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return a, fmt.Errorf("HTTP %d from %s", resp.StatusCode, blobURL)
	}

	var body io.Reader = resp.Body
	if blob.Gzip {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return a, fmt.Errorf("opening gzip blob: %w", err)
		}
		defer gz.Close()
		body = gz
	}

	return stage.Store(a, body)
}
