// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// LicenseType classifies an artifact's licensing situation.
// Per prd002-filter R4.
type LicenseType string

const (
	LicensePermissive LicenseType = "permissive"
	LicenseNone       LicenseType = "no_license"
)

// CuratedRecord is an accepted artifact enriched with the metadata the
// dataset payload carries. Records serialize one-per-line into the JSONL
// corpus file. The content hash is the record's durable identity and the
// key used for cross-run deduplication.
// Per prd002-filter R5, prd003-publish R1.
type CuratedRecord struct {
	// Content is the file content, normalized to UTF-8.
	Content string `json:"content" yaml:"content"`

	// RepoName is the repository the file came from.
	RepoName string `json:"repo_name" yaml:"repo_name"`

	// FilePath is the path within the repository.
	FilePath string `json:"file_path" yaml:"file_path"`

	// Language is the detected language tag.
	Language Language `json:"language" yaml:"language"`

	// Extension is the lowercased file extension without the dot.
	Extension string `json:"extension" yaml:"extension"`

	// LicenseType is "permissive" or "no_license".
	LicenseType LicenseType `json:"license_type" yaml:"license_type"`

	// Licenses lists the declared license identifiers.
	Licenses []string `json:"licenses" yaml:"licenses"`

	// HostURL is the hosting site the content originates from.
	HostURL string `json:"host_url" yaml:"host_url"`

	// Source is the configured source name that supplied the file.
	Source string `json:"source" yaml:"source"`

	// NumTokens is an approximate token count of the content.
	NumTokens int `json:"num_tokens" yaml:"num_tokens"`

	// NumLines is the content's line count.
	NumLines int `json:"num_lines" yaml:"num_lines"`

	// SizeBytes is the UTF-8 content size in bytes.
	SizeBytes int64 `json:"size_bytes" yaml:"size_bytes"`

	// ContentHash is the lowercase hex SHA-256 of the UTF-8 content.
	ContentHash string `json:"content_hash" yaml:"content_hash"`

	// RevisionID, CommitDate and Branch carry source control provenance
	// when the source provides it; empty otherwise.
	RevisionID string `json:"revision_id" yaml:"revision_id"`
	CommitDate string `json:"commit_date" yaml:"commit_date"`
	Branch     string `json:"branch" yaml:"branch"`
}

// ManifestEntry is the per-record row of a PublishManifest. It carries
// identity and attribution but not the content itself.
type ManifestEntry struct {
	ContentHash string   `json:"content_hash" yaml:"content_hash"`
	Language    Language `json:"language" yaml:"language"`
	RepoName    string   `json:"repo_name" yaml:"repo_name"`
	FilePath    string   `json:"file_path" yaml:"file_path"`
	SizeBytes   int64    `json:"size_bytes" yaml:"size_bytes"`
	NumTokens   int      `json:"num_tokens" yaml:"num_tokens"`
}

// PublishManifest is the versioned unit of release: every curated record
// of one run plus run-level metadata. Entries are sorted by content hash
// so repeated runs over the same input produce byte-identical manifests.
// Immutable after upload confirmation.
// Per prd003-publish R2.
type PublishManifest struct {
	// RunID identifies the pipeline run that produced the manifest.
	RunID string `json:"run_id" yaml:"run_id"`

	// Dataset is the registry dataset identifier the manifest targets.
	Dataset string `json:"dataset" yaml:"dataset"`

	// Version is the registry-assigned version, set once the upload is
	// confirmed. Empty for unpublished manifests.
	Version string `json:"version,omitempty" yaml:"version,omitempty"`

	// CreatedAt is the manifest build time.
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`

	// ToolVersion records the corpus-engine build that produced the run.
	ToolVersion string `json:"tool_version" yaml:"tool_version"`

	// TotalRecords is len(Records).
	TotalRecords int `json:"total_records" yaml:"total_records"`

	// LanguageCounts breaks TotalRecords down by language tag.
	LanguageCounts map[Language]int `json:"language_counts" yaml:"language_counts"`

	// Records lists every published record, sorted by ContentHash.
	Records []ManifestEntry `json:"records" yaml:"records"`
}
