package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/corpus-engine/internal/fetch"
	"github.com/pdiddy/corpus-engine/internal/filter"
	"github.com/pdiddy/corpus-engine/internal/printer"
	"github.com/pdiddy/corpus-engine/pkg/types"
)

var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Filter staged artifacts into the curated set",
	Long: `Filter evaluates every staged artifact against the quality rules
(language, size, encoding, line and token bounds, license, duplicate
content) and writes the curated records plus one decision per artifact
to the curated directory. Rejected artifacts are recorded, never
silently dropped.`,
	RunE: runFilter,
}

func init() {
	filterCmd.Flags().String("staging-dir", "", "override the staging directory")
	filterCmd.Flags().String("curated-dir", "", "override the curated output directory")
	filterCmd.Flags().String("history-path", "", "override the publish-history index path")

	rootCmd.AddCommand(filterCmd)
}

func runFilter(cmd *cobra.Command, args []string) error {
	cfg, err := pipelineConfig()
	if err != nil {
		return err
	}
	applyFilterFlags(cmd, &cfg.Filter)

	store, err := openHistory(cfg.Filter.HistoryPath)
	if err != nil {
		return err
	}
	var index filter.HashIndex
	if store != nil {
		defer store.Close()
		index = store
	}

	stage := fetch.NewStage(cfg.Filter.StagingDir)
	result, err := filter.FilterAll(context.Background(), cfg.Filter, index, stage, os.Stdout)
	if err != nil {
		return err
	}

	if err := filter.WriteOutputs(cfg.Filter.CuratedDir, result); err != nil {
		return err
	}
	if result.Accepted == 0 {
		return exitWith(exitAllRejected, fmt.Errorf("no artifacts accepted (%d rejected, %d failed)",
			result.TotalRejected(), result.Failed))
	}
	printer.Success("curated set written to %s", cfg.Filter.CuratedDir)
	return nil
}

func applyFilterFlags(cmd *cobra.Command, cfg *types.FilterConfig) {
	if v, _ := cmd.Flags().GetString("staging-dir"); v != "" {
		cfg.StagingDir = v
	}
	if v, _ := cmd.Flags().GetString("curated-dir"); v != "" {
		cfg.CuratedDir = v
	}
	if v, _ := cmd.Flags().GetString("history-path"); v != "" {
		cfg.HistoryPath = v
	}
}
