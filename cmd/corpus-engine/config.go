package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/viper"

	"github.com/pdiddy/corpus-engine/internal/history"
	"github.com/pdiddy/corpus-engine/internal/secrets"
	"github.com/pdiddy/corpus-engine/pkg/types"
)

const (
	defaultStagingDir  = "data/staging"
	defaultCuratedDir  = "data/curated"
	defaultHistoryPath = "data/history/corpus-engine.db"
)

// setConfigDefaults seeds every config key that has a sensible default.
// The line and token bounds come from the corpus the pipeline was tuned
// against; size bounds default to disabled.
func setConfigDefaults() {
	viper.SetDefault("fetch.staging_dir", defaultStagingDir)
	viper.SetDefault("fetch.timeout", "60s")
	viper.SetDefault("fetch.user_agent", "corpus-engine/"+version)
	viper.SetDefault("fetch.download_delay", "1s")

	viper.SetDefault("filter.staging_dir", defaultStagingDir)
	viper.SetDefault("filter.curated_dir", defaultCuratedDir)
	viper.SetDefault("filter.min_lines", 10)
	viper.SetDefault("filter.max_lines", 10000)
	viper.SetDefault("filter.max_tokens", 128000)
	viper.SetDefault("filter.history_path", defaultHistoryPath)

	viper.SetDefault("registry.timeout", "60s")
	viper.SetDefault("registry.user_agent", "corpus-engine/"+version)
	viper.SetDefault("registry.max_retries", 5)

	viper.SetDefault("publish.curated_dir", defaultCuratedDir)
	viper.SetDefault("publish.history_path", defaultHistoryPath)
}

// pipelineConfig loads and validates the full pipeline configuration from
// viper (config file, environment, defaults). The registry token is never
// read here; publish resolves it from the environment or the secrets
// directory.
func pipelineConfig() (types.PipelineConfig, error) {
	setConfigDefaults()

	var cfg types.PipelineConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return types.PipelineConfig{}, fmt.Errorf("parsing configuration: %w", err)
	}
	if err := validateConfig(cfg); err != nil {
		return types.PipelineConfig{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func validateConfig(cfg types.PipelineConfig) error {
	if cfg.Fetch.StagingDir == "" {
		return fmt.Errorf("fetch.staging_dir must be set")
	}

	seen := make(map[string]bool, len(cfg.Fetch.Sources))
	for _, sc := range cfg.Fetch.Sources {
		if sc.Name != "" && seen[sc.Name] {
			return fmt.Errorf("duplicate source name %q", sc.Name)
		}
		seen[sc.Name] = true
	}

	f := cfg.Filter
	if f.MinSizeBytes < 0 || f.MaxSizeBytes < 0 || f.MinLines < 0 || f.MaxLines < 0 || f.MaxTokens < 0 {
		return fmt.Errorf("filter bounds must not be negative")
	}
	if f.MinSizeBytes > 0 && f.MaxSizeBytes > 0 && f.MinSizeBytes > f.MaxSizeBytes {
		return fmt.Errorf("filter.min_size_bytes %d exceeds filter.max_size_bytes %d", f.MinSizeBytes, f.MaxSizeBytes)
	}
	if f.MinLines > 0 && f.MaxLines > 0 && f.MinLines > f.MaxLines {
		return fmt.Errorf("filter.min_lines %d exceeds filter.max_lines %d", f.MinLines, f.MaxLines)
	}

	if cfg.Registry.MaxRetries < 0 {
		return fmt.Errorf("registry.max_retries must not be negative")
	}
	return nil
}

func httpClient(cfg types.HTTPConfig) *http.Client {
	return &http.Client{Timeout: cfg.Timeout}
}

// resolveSourceCredentials fills each source's bearer token from the
// secrets file its credential_ref names. A reference to a missing secret
// is a configuration error.
func resolveSourceCredentials(dir string, cfg *types.FetchConfig) error {
	var loaded map[string]string
	for i := range cfg.Sources {
		ref := cfg.Sources[i].CredentialRef
		if ref == "" {
			continue
		}
		if loaded == nil {
			var err error
			loaded, err = secrets.Load(dir)
			if err != nil {
				return err
			}
		}
		token, ok := loaded[ref]
		if !ok {
			return fmt.Errorf("invalid configuration: source %q references credential %q not found in %s",
				cfg.Sources[i].Name, ref, dir)
		}
		cfg.Sources[i].Token = token
	}
	return nil
}

// openHistory opens the publish-history index at path. An empty path
// disables history and returns a nil store; callers must not wrap a nil
// store in an interface value.
func openHistory(path string) (*history.Store, error) {
	if path == "" {
		return nil, nil
	}
	return history.Open(path)
}

// historyPath picks the history location for commands that operate on the
// index itself. Publish and filter normally share one index, so the
// publish path wins when both are set.
func historyPath(cfg types.PipelineConfig) string {
	if cfg.Publish.HistoryPath != "" {
		return cfg.Publish.HistoryPath
	}
	return cfg.Filter.HistoryPath
}

func secretsDir() string {
	v, _ := rootCmd.PersistentFlags().GetString("secrets-dir")
	if v == "" {
		return ".secrets"
	}
	return v
}
