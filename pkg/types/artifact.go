// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the corpus-engine pipeline.
package types

import "time"

// Language identifies the mainframe language family of an artifact.
// Per prd002-filter R1.2.
type Language string

const (
	LangCOBOL   Language = "COBOL"
	LangJCL     Language = "JCL"
	LangHLASM   Language = "HLASM"
	LangREXX    Language = "REXX"
	LangRPGLE   Language = "RPGLE"
	LangPLI     Language = "PL/I"
	LangBMS     Language = "BMS"
	LangUnknown Language = "UNKNOWN"
)

// Languages lists every recognized language tag, in report order.
func Languages() []Language {
	return []Language{LangCOBOL, LangJCL, LangHLASM, LangREXX, LangRPGLE, LangPLI, LangBMS}
}

// CandidateArtifact describes one raw file retrieved into the staging area.
// Created by the fetch stage; never mutated afterwards. The filter stage
// reads it together with the staged content.
// Per prd001-fetch R3.1, R3.2.
type CandidateArtifact struct {
	// ID is a slug derived from the artifact's path, unique within a source.
	ID string `json:"id" yaml:"id"`

	// Source is the configured source name the artifact came from.
	Source string `json:"source" yaml:"source"`

	// Origin is the URI the artifact was retrieved from.
	Origin string `json:"origin" yaml:"origin"`

	// HostURL is the hosting site the content originates from
	// (e.g. "https://github.com").
	HostURL string `json:"host_url" yaml:"host_url"`

	// RepoName is the repository the file belongs to (e.g. "acme/payroll").
	RepoName string `json:"repo_name" yaml:"repo_name"`

	// Path is the file path within the repository or origin.
	Path string `json:"path" yaml:"path"`

	// StagedPath is the local filesystem path of the staged content.
	StagedPath string `json:"staged_path" yaml:"staged_path"`

	// Size is the staged content size in bytes.
	Size int64 `json:"size" yaml:"size"`

	// Encoding is the declared source encoding (e.g. "UTF-8", "IBM037").
	// Empty means UTF-8.
	Encoding string `json:"encoding,omitempty" yaml:"encoding,omitempty"`

	// Licenses lists the declared license identifiers, if known.
	Licenses []string `json:"licenses,omitempty" yaml:"licenses,omitempty"`

	// Language is the language tag declared by the source, when it carries
	// one. The filter stage detects it otherwise.
	Language Language `json:"language,omitempty" yaml:"language,omitempty"`

	// RevisionID is the source revision (commit) the file was taken from.
	RevisionID string `json:"revision_id,omitempty" yaml:"revision_id,omitempty"`

	// CommitDate is the committer date of that revision, RFC 3339.
	CommitDate string `json:"commit_date,omitempty" yaml:"commit_date,omitempty"`

	// Branch is the branch the revision was found on.
	Branch string `json:"branch,omitempty" yaml:"branch,omitempty"`

	// RetrievedAt is the time the artifact was staged.
	RetrievedAt time.Time `json:"retrieved_at" yaml:"retrieved_at"`
}

// RejectReason explains why the filter rejected an artifact.
// Per prd002-filter R2.
type RejectReason string

const (
	ReasonDuplicate       RejectReason = "duplicate"
	ReasonLicense         RejectReason = "license-incompatible"
	ReasonTooSmall        RejectReason = "too-small"
	ReasonTooLarge        RejectReason = "too-large"
	ReasonTooFewLines     RejectReason = "too-few-lines"
	ReasonTooManyLines    RejectReason = "too-many-lines"
	ReasonTooManyTokens   RejectReason = "too-many-tokens"
	ReasonInvalidEncoding RejectReason = "invalid-encoding"
	ReasonUnknownLanguage RejectReason = "unknown-language"
)

// RejectReasons lists every reason in the order reports print them.
func RejectReasons() []RejectReason {
	return []RejectReason{
		ReasonUnknownLanguage, ReasonTooSmall, ReasonTooLarge,
		ReasonTooFewLines, ReasonTooManyLines, ReasonTooManyTokens,
		ReasonInvalidEncoding, ReasonLicense, ReasonDuplicate,
	}
}

// FilterDecision is the outcome of evaluating one CandidateArtifact.
// Exactly one decision is produced per artifact; rejections carry the
// first rule that failed. Immutable once recorded.
type FilterDecision struct {
	// ArtifactID identifies the artifact, as "source/id".
	ArtifactID string `json:"artifact_id" yaml:"artifact_id"`

	// Path is the artifact's repository path, kept for readable reports.
	Path string `json:"path" yaml:"path"`

	// Accepted reports whether the artifact became a curated record.
	Accepted bool `json:"accepted" yaml:"accepted"`

	// Reason is set when Accepted is false.
	Reason RejectReason `json:"reason,omitempty" yaml:"reason,omitempty"`

	// Detail optionally elaborates on the reason (e.g. the conflicting
	// hash for duplicates). Never required for correctness.
	Detail string `json:"detail,omitempty" yaml:"detail,omitempty"`
}
