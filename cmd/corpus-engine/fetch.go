package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/corpus-engine/internal/fetch"
	"github.com/pdiddy/corpus-engine/pkg/types"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download source artifacts into the staging area",
	Long: `Fetch downloads raw source artifacts from every configured source into
the local staging area. Already-staged artifacts are reused, a failing
source is skipped with a warning, and the command fails only when every
source fails.`,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().String("staging-dir", "", "override the staging directory")
	fetchCmd.Flags().Duration("timeout", 0, "HTTP request timeout (default 60s)")
	fetchCmd.Flags().Duration("delay", 0, "delay between consecutive downloads within a source (default 1s)")
	fetchCmd.Flags().Int("concurrency", 0, "maximum concurrent source fetches")

	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, err := pipelineConfig()
	if err != nil {
		return err
	}
	applyFetchFlags(cmd, &cfg.Fetch)
	if err := resolveSourceCredentials(secretsDir(), &cfg.Fetch); err != nil {
		return err
	}

	stage := fetch.NewStage(cfg.Fetch.StagingDir)
	_, err = fetch.FetchAll(context.Background(), httpClient(cfg.Fetch.HTTPConfig), cfg.Fetch, stage, os.Stdout)
	return err
}

func applyFetchFlags(cmd *cobra.Command, cfg *types.FetchConfig) {
	if v, _ := cmd.Flags().GetString("staging-dir"); v != "" {
		cfg.StagingDir = v
	}
	if v, _ := cmd.Flags().GetDuration("timeout"); v != 0 {
		cfg.Timeout = v
	}
	if v, _ := cmd.Flags().GetDuration("delay"); v != 0 {
		cfg.DownloadDelay = v
	}
	if v, _ := cmd.Flags().GetInt("concurrency"); v != 0 {
		cfg.ConcurrencyLimit = v
	}
}
