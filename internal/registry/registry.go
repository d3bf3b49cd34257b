// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package registry talks to the dataset registry's HTTP API: dataset
// creation, staged uploads, two-phase promotion, and published-manifest
// listing.
// Implements: prd003-publish (R2, R3);
//
//	docs/ARCHITECTURE § Dataset Registry.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/pdiddy/corpus-engine/internal/httputil"
	"github.com/pdiddy/corpus-engine/pkg/types"
)

// ErrAuth marks authentication failures: missing token or HTTP 401/403.
// Fatal, never retried.
var ErrAuth = errors.New("registry authentication failed")

// ErrPromoteUnsupported reports that the registry does not implement the
// two-phase promote operation; the publisher falls back to upload-then-
// verify.
var ErrPromoteUnsupported = errors.New("registry does not support promote")

// Client is the dataset registry HTTP client. All calls send the bearer
// token and retry transient failures up to the configured budget.
type Client struct {
	base       *url.URL
	http       *http.Client
	token      string
	userAgent  string
	maxRetries int
}

// NewClient validates the registry configuration and builds a Client.
// A missing token is an authentication error, surfaced before any
// network call.
func NewClient(cfg types.RegistryConfig, client *http.Client) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("registry base_url not configured")
	}
	if cfg.Dataset == "" {
		return nil, fmt.Errorf("registry dataset not configured")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing registry base_url: %w", err)
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("registry token not configured: %w", ErrAuth)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{
		base:       base,
		http:       client,
		token:      cfg.Token,
		userAgent:  cfg.UserAgent,
		maxRetries: cfg.MaxRetries,
	}, nil
}

// EnsureDataset creates the dataset if it does not exist. An existing
// dataset is not an error.
func (c *Client) EnsureDataset(ctx context.Context, name string, private bool) error {
	body := map[string]any{"name": name, "private": private}
	resp, err := c.do(ctx, http.MethodPost, []string{"datasets"}, body)
	if err != nil {
		return fmt.Errorf("creating dataset: %w", err)
	}
	defer drain(resp)

	if resp.StatusCode == http.StatusConflict {
		return nil
	}
	return c.checkStatus(resp, "creating dataset")
}

// UploadRecords uploads the curated records to the run's staging
// revision as a JSONL payload. Staged uploads are invisible to dataset
// readers until promoted or finalized.
func (c *Client) UploadRecords(ctx context.Context, dataset, runID string, records []types.CuratedRecord) error {
	var payload bytes.Buffer
	enc := json.NewEncoder(&payload)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("encoding records: %w", err)
		}
	}

	resp, err := c.doRaw(ctx, http.MethodPut, []string{"datasets", dataset, "staging", runID, "records"}, payload.Bytes(), "application/x-ndjson")
	if err != nil {
		return fmt.Errorf("uploading records: %w", err)
	}
	defer drain(resp)
	return c.checkStatus(resp, "uploading records")
}

// UploadManifest uploads the manifest to the run's staging revision.
func (c *Client) UploadManifest(ctx context.Context, dataset, runID string, m types.PublishManifest) error {
	resp, err := c.do(ctx, http.MethodPut, []string{"datasets", dataset, "staging", runID, "manifest"}, m)
	if err != nil {
		return fmt.Errorf("uploading manifest: %w", err)
	}
	defer drain(resp)
	return c.checkStatus(resp, "uploading manifest")
}

// Promote atomically publishes the staged revision and returns the new
// version. Registries without promote support answer 501, reported as
// ErrPromoteUnsupported.
func (c *Client) Promote(ctx context.Context, dataset, runID string) (string, error) {
	resp, err := c.do(ctx, http.MethodPost, []string{"datasets", dataset, "staging", runID, "promote"}, nil)
	if err != nil {
		return "", fmt.Errorf("promoting staged revision: %w", err)
	}
	defer drain(resp)

	if resp.StatusCode == http.StatusNotImplemented {
		return "", ErrPromoteUnsupported
	}
	if err := c.checkStatus(resp, "promoting staged revision"); err != nil {
		return "", err
	}
	version, err := parseVersion(resp.Body)
	if err != nil {
		return "", err
	}
	slog.Info("Promoted staged revision", "dataset", dataset, "run_id", runID, "version", version)
	return version, nil
}

// StagedRecords downloads the staged records back for verification.
func (c *Client) StagedRecords(ctx context.Context, dataset, runID string) ([]types.CuratedRecord, error) {
	resp, err := c.do(ctx, http.MethodGet, []string{"datasets", dataset, "staging", runID, "records"}, nil)
	if err != nil {
		return nil, fmt.Errorf("downloading staged records: %w", err)
	}
	defer drain(resp)
	if err := c.checkStatus(resp, "downloading staged records"); err != nil {
		return nil, err
	}

	var records []types.CuratedRecord
	dec := json.NewDecoder(resp.Body)
	for dec.More() {
		var rec types.CuratedRecord
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("parsing staged records: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// Finalize publishes a verified staged revision and returns the new
// version. Used by the verify fallback instead of Promote.
func (c *Client) Finalize(ctx context.Context, dataset, runID string) (string, error) {
	resp, err := c.do(ctx, http.MethodPost, []string{"datasets", dataset, "staging", runID, "finalize"}, nil)
	if err != nil {
		return "", fmt.Errorf("finalizing staged revision: %w", err)
	}
	defer drain(resp)
	if err := c.checkStatus(resp, "finalizing staged revision"); err != nil {
		return "", err
	}
	version, err := parseVersion(resp.Body)
	if err != nil {
		return "", err
	}
	slog.Info("Finalized staged revision", "dataset", dataset, "run_id", runID, "version", version)
	return version, nil
}

// Manifests lists the dataset's published manifests, for history sync.
func (c *Client) Manifests(ctx context.Context, dataset string) ([]types.PublishManifest, error) {
	resp, err := c.do(ctx, http.MethodGet, []string{"datasets", dataset, "manifests"}, nil)
	if err != nil {
		return nil, fmt.Errorf("listing manifests: %w", err)
	}
	defer drain(resp)
	if err := c.checkStatus(resp, "listing manifests"); err != nil {
		return nil, err
	}

	var manifests []types.PublishManifest
	if err := json.NewDecoder(resp.Body).Decode(&manifests); err != nil {
		return nil, fmt.Errorf("parsing manifests: %w", err)
	}
	return manifests, nil
}

// do sends a JSON request to the API path built from segments.
func (c *Client) do(ctx context.Context, method string, segments []string, body any) (*http.Response, error) {
	var payload []byte
	contentType := ""
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		contentType = "application/json"
	}
	return c.doRaw(ctx, method, segments, payload, contentType)
}

func (c *Client) doRaw(ctx context.Context, method string, segments []string, payload []byte, contentType string) (*http.Response, error) {
	u := c.base.JoinPath(segments...)
	slog.Debug("Registry request", "method", method, "path", u.Path)

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return httputil.DoWithRetry(ctx, c.http, req, c.maxRetries)
}

// checkStatus classifies a non-success response. 401 and 403 are
// authentication failures; anything else 4xx/5xx carries the response
// body for context.
func (c *Client) checkStatus(resp *http.Response, op string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%s: HTTP %d: %w", op, resp.StatusCode, ErrAuth)
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	msg := strings.TrimSpace(string(snippet))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return fmt.Errorf("%s: HTTP %d: %s", op, resp.StatusCode, msg)
}

func parseVersion(r io.Reader) (string, error) {
	var out struct {
		Version string `json:"version"`
	}
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return "", fmt.Errorf("parsing registry response: %w", err)
	}
	if out.Version == "" {
		return "", fmt.Errorf("registry response carries no version")
	}
	return out.Version, nil
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
}
