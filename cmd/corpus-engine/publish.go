package main

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/corpus-engine/internal/filter"
	"github.com/pdiddy/corpus-engine/internal/publish"
	"github.com/pdiddy/corpus-engine/internal/registry"
	"github.com/pdiddy/corpus-engine/internal/secrets"
	"github.com/pdiddy/corpus-engine/pkg/types"
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish the curated set to the dataset registry",
	Long: `Publish builds a manifest from the curated records, uploads the
records and the manifest to a staging revision of the dataset, and
promotes the revision to a new version. With --dry-run the manifest is
built and printed but nothing leaves the machine.

The registry token comes from the CORPUS_ENGINE_REGISTRY_TOKEN
environment variable or the registry-token file in the secrets
directory. It is never read from the config file.`,
	RunE: runPublish,
}

func init() {
	publishCmd.Flags().String("curated-dir", "", "override the curated set directory")
	publishCmd.Flags().String("run-id", "", "staging revision identifier (default: generated UUID)")
	publishCmd.Flags().String("dataset", "", "override the target dataset")
	publishCmd.Flags().Bool("dry-run", false, "build the manifest but skip the registry upload")

	rootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, args []string) error {
	cfg, err := pipelineConfig()
	if err != nil {
		return err
	}
	if v, _ := cmd.Flags().GetString("curated-dir"); v != "" {
		cfg.Publish.CuratedDir = v
	}
	if v, _ := cmd.Flags().GetString("dataset"); v != "" {
		cfg.Registry.Dataset = v
	}
	if cmd.Flags().Changed("dry-run") {
		v, _ := cmd.Flags().GetBool("dry-run")
		cfg.Publish.DryRun = v
	}

	records, err := filter.LoadRecords(cfg.Publish.CuratedDir)
	if err != nil {
		return err
	}

	var recorder publish.HistoryRecorder
	if !cfg.Publish.DryRun {
		store, err := openHistory(cfg.Publish.HistoryPath)
		if err != nil {
			return err
		}
		if store != nil {
			defer store.Close()
			recorder = store
		}
	}

	runID, _ := cmd.Flags().GetString("run-id")
	opts := publish.Options{
		RunID:       runID,
		ToolVersion: version,
		DryRun:      cfg.Publish.DryRun,
	}
	_, err = publishRecords(context.Background(), cfg, opts, records, recorder)
	return err
}

// publishRecords builds the registry client and runs the publish stage.
// Dry runs never build the client, so they need no token and touch no
// network. Errors are classified here: authentication failures and other
// publish failures map to distinct exit codes.
func publishRecords(ctx context.Context, cfg types.PipelineConfig, opts publish.Options, records []types.CuratedRecord, recorder publish.HistoryRecorder) (types.PublishManifest, error) {
	var reg publish.Registry
	if !opts.DryRun {
		token, err := secrets.RegistryToken(secretsDir())
		if err != nil {
			return types.PublishManifest{}, err
		}
		cfg.Registry.Token = token

		client, err := registry.NewClient(cfg.Registry, httpClient(cfg.Registry.HTTPConfig))
		if err != nil {
			return types.PublishManifest{}, err
		}
		reg = client
	}

	manifest, err := publish.Publish(ctx, reg, recorder, cfg.Registry, opts, records, os.Stdout)
	switch {
	case err == nil:
		return manifest, nil
	case errors.Is(err, registry.ErrAuth):
		return manifest, exitWith(exitAuth, err)
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		return manifest, err
	default:
		return manifest, exitWith(exitPublishFailed, err)
	}
}
