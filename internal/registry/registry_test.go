// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/corpus-engine/internal/httputil"
	"github.com/pdiddy/corpus-engine/pkg/types"
)

func init() {
	httputil.RetryBaseDelay = 1 * time.Millisecond
}

func testRegistryConfig(ts *httptest.Server) types.RegistryConfig {
	return types.RegistryConfig{
		HTTPConfig: types.HTTPConfig{UserAgent: "corpus-engine/test"},
		BaseURL:    ts.URL + "/api/v1",
		Dataset:    "mainframe-corpus",
		Token:      "test-token",
		MaxRetries: 2,
	}
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	client, err := NewClient(testRegistryConfig(ts), ts.Client())
	require.NoError(t, err)
	return client, ts
}

func TestNewClientValidation(t *testing.T) {
	base := types.RegistryConfig{BaseURL: "http://registry", Dataset: "d", Token: "t"}

	noURL := base
	noURL.BaseURL = ""
	_, err := NewClient(noURL, nil)
	require.Error(t, err)

	noDataset := base
	noDataset.Dataset = ""
	_, err = NewClient(noDataset, nil)
	require.Error(t, err)

	noToken := base
	noToken.Token = ""
	_, err = NewClient(noToken, nil)
	require.ErrorIs(t, err, ErrAuth)
}

func TestEnsureDataset(t *testing.T) {
	var gotAuth, gotName string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/datasets", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		gotAuth = r.Header.Get("Authorization")

		var body struct {
			Name    string `json:"name"`
			Private bool   `json:"private"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotName = body.Name
		w.WriteHeader(http.StatusCreated)
	}))

	require.NoError(t, client.EnsureDataset(context.Background(), "mainframe-corpus", true))
	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.Equal(t, "mainframe-corpus", gotName)
}

func TestEnsureDatasetExisting(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	require.NoError(t, client.EnsureDataset(context.Background(), "mainframe-corpus", false))
}

func TestUploadRecordsAndPromote(t *testing.T) {
	records := []types.CuratedRecord{
		{ContentHash: "aaa", Language: types.LangCOBOL, Content: "IDENTIFICATION DIVISION.\n"},
		{ContentHash: "bbb", Language: types.LangJCL, Content: "//JOB\n"},
	}

	var uploaded []byte
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/datasets/mainframe-corpus/staging/run-1/records", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "application/x-ndjson", r.Header.Get("Content-Type"))
		uploaded, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/api/v1/datasets/mainframe-corpus/staging/run-1/promote", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		fmt.Fprint(w, `{"version": "v7"}`)
	})

	client, _ := newTestClient(t, mux)
	ctx := context.Background()

	require.NoError(t, client.UploadRecords(ctx, "mainframe-corpus", "run-1", records))
	lines := strings.Split(strings.TrimSpace(string(uploaded)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"content_hash":"aaa"`)

	version, err := client.Promote(ctx, "mainframe-corpus", "run-1")
	require.NoError(t, err)
	assert.Equal(t, "v7", version)
}

func TestUploadManifest(t *testing.T) {
	var got types.PublishManifest
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/datasets/mainframe-corpus/staging/run-1/manifest", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	})

	client, _ := newTestClient(t, mux)
	m := types.PublishManifest{RunID: "run-1", Dataset: "mainframe-corpus", TotalRecords: 2}
	require.NoError(t, client.UploadManifest(context.Background(), "mainframe-corpus", "run-1", m))
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, 2, got.TotalRecords)
}

func TestPromoteUnsupported(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotImplemented)
	}))

	_, err := client.Promote(context.Background(), "mainframe-corpus", "run-1")
	require.ErrorIs(t, err, ErrPromoteUnsupported)
}

func TestAuthFailureNotRetried(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))

	err := client.EnsureDataset(context.Background(), "mainframe-corpus", false)
	require.ErrorIs(t, err, ErrAuth)
	assert.Equal(t, int32(1), calls.Load(), "authentication failures must not be retried")
}

func TestTransientFailureRetried(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))

	require.NoError(t, client.EnsureDataset(context.Background(), "mainframe-corpus", false))
	assert.Equal(t, int32(2), calls.Load())
}

func TestStagedRecords(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		fmt.Fprintln(w, `{"content":"A","content_hash":"aaa"}`)
		fmt.Fprintln(w, `{"content":"B","content_hash":"bbb"}`)
	}))

	records, err := client.StagedRecords(context.Background(), "mainframe-corpus", "run-1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "aaa", records[0].ContentHash)
	assert.Equal(t, "B", records[1].Content)
}

func TestFinalize(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/finalize"), "path = %s", r.URL.Path)
		fmt.Fprint(w, `{"version": "v8"}`)
	}))

	version, err := client.Finalize(context.Background(), "mainframe-corpus", "run-1")
	require.NoError(t, err)
	assert.Equal(t, "v8", version)
}

func TestFinalizeWithoutVersion(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	}))

	_, err := client.Finalize(context.Background(), "mainframe-corpus", "run-1")
	require.Error(t, err)
}

func TestManifests(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/datasets/mainframe-corpus/manifests", r.URL.Path)
		fmt.Fprint(w, `[{"run_id":"run-1","version":"v1","total_records":3}]`)
	}))

	manifests, err := client.Manifests(context.Background(), "mainframe-corpus")
	require.NoError(t, err)
	require.Len(t, manifests, 1)
	assert.Equal(t, "v1", manifests[0].Version)
	assert.Equal(t, 3, manifests[0].TotalRecords)
}

func TestErrorCarriesResponseBody(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "dataset quota exceeded", http.StatusUnprocessableEntity)
	}))

	err := client.EnsureDataset(context.Background(), "mainframe-corpus", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dataset quota exceeded")
}
