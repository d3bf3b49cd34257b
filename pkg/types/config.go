package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "corpus-engine/0.1"). Per prd001-fetch R6.2.
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// SourceKind identifies how a source lists and serves its artifacts.
// Per prd001-fetch R2.1.
type SourceKind string

const (
	SourceIndex   SourceKind = "index"
	SourceArchive SourceKind = "archive"
	SourceDir     SourceKind = "dir"
)

// SourceConfig describes one configured upstream source.
// Per prd001-fetch R2.2-R2.5.
type SourceConfig struct {
	// Name uniquely identifies the source; used in staging paths and reports.
	Name string `json:"name" yaml:"name" mapstructure:"name"`

	// Kind selects the source protocol: index, archive, or dir.
	Kind SourceKind `json:"kind" yaml:"kind" mapstructure:"kind"`

	// URL locates index and archive sources.
	URL string `json:"url,omitempty" yaml:"url,omitempty" mapstructure:"url"`

	// Path locates dir sources.
	Path string `json:"path,omitempty" yaml:"path,omitempty" mapstructure:"path"`

	// Repo is the repository name recorded on artifacts
	// (e.g. "acme/payroll"). Index sources usually carry it per blob.
	Repo string `json:"repo,omitempty" yaml:"repo,omitempty" mapstructure:"repo"`

	// Language is the declared language for the source's artifacts, if any.
	// Artifacts without a declared language are detected by the filter.
	Language Language `json:"language,omitempty" yaml:"language,omitempty" mapstructure:"language"`

	// Licenses is the declared license list applied to artifacts that carry
	// no per-artifact license metadata.
	Licenses []string `json:"licenses,omitempty" yaml:"licenses,omitempty" mapstructure:"licenses"`

	// Encoding is the declared text encoding for the source's artifacts
	// (e.g. "IBM037"); artifacts may override it per blob. Defaults to UTF-8.
	Encoding string `json:"encoding,omitempty" yaml:"encoding,omitempty" mapstructure:"encoding"`

	// HostURL is the public URL recorded on artifacts for attribution.
	HostURL string `json:"host_url,omitempty" yaml:"host_url,omitempty" mapstructure:"host_url"`

	// Branch is the repository branch recorded on artifacts.
	Branch string `json:"branch,omitempty" yaml:"branch,omitempty" mapstructure:"branch"`

	// CredentialRef names the secrets-directory file holding the bearer
	// token for sources that require authenticated downloads.
	CredentialRef string `json:"credential_ref,omitempty" yaml:"credential_ref,omitempty" mapstructure:"credential_ref"`

	// Token is the resolved credential. Loaded from the secrets directory,
	// never from the config file, never logged.
	Token string `json:"-" yaml:"-" mapstructure:"-"`
}

// FetchConfig holds settings for the fetch stage.
// Per prd001-fetch R5.1-R5.3, R6.1-R6.2.
type FetchConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// StagingDir is the base directory for staged artifacts (contains raw/, metadata/).
	StagingDir string `json:"staging_dir" yaml:"staging_dir" mapstructure:"staging_dir"`

	// DownloadDelay is the delay between consecutive downloads within a source (default 1s).
	DownloadDelay time.Duration `json:"download_delay" yaml:"download_delay" mapstructure:"download_delay"`

	// ConcurrencyLimit caps concurrent source fetches (default min(4, number of sources)).
	ConcurrencyLimit int `json:"concurrency_limit" yaml:"concurrency_limit" mapstructure:"concurrency_limit"`

	// Sources lists the upstream sources to fetch.
	Sources []SourceConfig `json:"sources" yaml:"sources" mapstructure:"sources"`
}

// FilterConfig holds settings for the filter stage.
// Per prd002-filter R2.1-R2.7, R5.1.
type FilterConfig struct {
	// StagingDir is the base directory for staged artifacts.
	StagingDir string `json:"staging_dir" yaml:"staging_dir" mapstructure:"staging_dir"`

	// CuratedDir is the output directory for curated records and decisions.
	CuratedDir string `json:"curated_dir" yaml:"curated_dir" mapstructure:"curated_dir"`

	// MinSizeBytes and MaxSizeBytes bound the raw artifact size, inclusive.
	MinSizeBytes int64 `json:"min_size_bytes" yaml:"min_size_bytes" mapstructure:"min_size_bytes"`
	MaxSizeBytes int64 `json:"max_size_bytes" yaml:"max_size_bytes" mapstructure:"max_size_bytes"`

	// MinLines and MaxLines bound the decoded line count, inclusive
	// (defaults 10 and 10000).
	MinLines int `json:"min_lines" yaml:"min_lines" mapstructure:"min_lines"`
	MaxLines int `json:"max_lines" yaml:"max_lines" mapstructure:"max_lines"`

	// MaxTokens caps the approximate token count (default 128000).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`

	// Languages is the enabled language subset; empty enables all known languages.
	Languages []Language `json:"languages,omitempty" yaml:"languages,omitempty" mapstructure:"languages"`

	// LicenseAllowlist extends the built-in permissive license set.
	LicenseAllowlist []string `json:"license_allowlist,omitempty" yaml:"license_allowlist,omitempty" mapstructure:"license_allowlist"`

	// AllowUnlicensed admits artifacts with no detectable license (default false).
	AllowUnlicensed bool `json:"allow_unlicensed" yaml:"allow_unlicensed" mapstructure:"allow_unlicensed"`

	// ConcurrencyLimit caps parallel filter workers (default 4).
	ConcurrencyLimit int `json:"concurrency_limit" yaml:"concurrency_limit" mapstructure:"concurrency_limit"`

	// HistoryPath is the SQLite publish-history index consulted for
	// cross-run deduplication; empty disables the historical check.
	HistoryPath string `json:"history_path,omitempty" yaml:"history_path,omitempty" mapstructure:"history_path"`
}

// RegistryConfig holds settings for the dataset registry client.
// Per prd003-publish R2.1-R2.6.
type RegistryConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// BaseURL is the registry API root (e.g. "https://registry.example.com/api/v1").
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// Dataset is the target dataset name.
	Dataset string `json:"dataset" yaml:"dataset" mapstructure:"dataset"`

	// Private marks the dataset private when the client creates it.
	Private bool `json:"private" yaml:"private" mapstructure:"private"`

	// Token authenticates registry calls. Loaded from the environment or
	// the secrets directory, never from the config file, never logged.
	Token string `json:"-" yaml:"-" mapstructure:"-"`

	// MaxRetries is the retry budget for transient registry errors (default 5).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`

	// VerifyFallback uploads records and verifies their hashes instead of
	// using the two-phase staging commit, for registries without promote
	// support.
	VerifyFallback bool `json:"verify_fallback" yaml:"verify_fallback" mapstructure:"verify_fallback"`
}

// PublishConfig holds settings for the publish stage.
// Per prd003-publish R1.1-R1.4.
type PublishConfig struct {
	// CuratedDir is the directory holding curated records to publish.
	CuratedDir string `json:"curated_dir" yaml:"curated_dir" mapstructure:"curated_dir"`

	// HistoryPath is the SQLite publish-history index updated after a
	// confirmed publish.
	HistoryPath string `json:"history_path,omitempty" yaml:"history_path,omitempty" mapstructure:"history_path"`

	// DryRun builds the manifest and report but skips the upload.
	DryRun bool `json:"dry_run" yaml:"dry_run" mapstructure:"dry_run"`
}

// PipelineConfig groups all stage configurations for the pipeline.
type PipelineConfig struct {
	Fetch    FetchConfig    `json:"fetch" yaml:"fetch" mapstructure:"fetch"`
	Filter   FilterConfig   `json:"filter" yaml:"filter" mapstructure:"filter"`
	Registry RegistryConfig `json:"registry" yaml:"registry" mapstructure:"registry"`
	Publish  PublishConfig  `json:"publish" yaml:"publish" mapstructure:"publish"`
}
