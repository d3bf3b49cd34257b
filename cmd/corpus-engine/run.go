// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/pdiddy/corpus-engine/internal/fetch"
	"github.com/pdiddy/corpus-engine/internal/filter"
	"github.com/pdiddy/corpus-engine/internal/history"
	"github.com/pdiddy/corpus-engine/internal/printer"
	"github.com/pdiddy/corpus-engine/internal/publish"
	"github.com/pdiddy/corpus-engine/internal/report"
	"github.com/pdiddy/corpus-engine/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: fetch, filter, publish",
	Long: `Run executes the three pipeline stages in sequence and writes a run
report next to the curated set. SIGINT and SIGTERM cancel the run
cooperatively: in-flight work finishes, no new work starts, and the
report covers what completed.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().Bool("dry-run", false, "build the manifest but skip the registry upload")
	runCmd.Flags().String("run-id", "", "run identifier (default: generated UUID)")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := pipelineConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("dry-run") {
		v, _ := cmd.Flags().GetBool("dry-run")
		cfg.Publish.DryRun = v
	}
	runID, _ := cmd.Flags().GetString("run-id")
	if runID == "" {
		runID = uuid.New().String()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(os.Stderr, "\nReceived %v, finishing in-flight work\n", sig)
		cancel()
	}()

	rep := types.RunReport{
		RunID:     runID,
		StartedAt: time.Now().UTC(),
	}
	runErr := executeRun(ctx, cfg, &rep)
	rep.FinishedAt = time.Now().UTC()
	if ctx.Err() != nil {
		rep.Cancelled = true
	}

	fmt.Fprintln(os.Stdout)
	report.Render(os.Stdout, rep)
	if err := report.Write(cfg.Filter.CuratedDir, rep); err != nil {
		printer.Warning("could not write run report: %v", err)
	}
	return runErr
}

// executeRun drives the three stages in order, filling rep as each one
// finishes so a failed or cancelled run still reports completed work.
func executeRun(ctx context.Context, cfg types.PipelineConfig, rep *types.RunReport) error {
	if err := resolveSourceCredentials(secretsDir(), &cfg.Fetch); err != nil {
		return err
	}

	printer.Step("Fetching %d source(s)", len(cfg.Fetch.Sources))
	stage := fetch.NewStage(cfg.Fetch.StagingDir)
	fres, err := fetch.FetchAll(ctx, httpClient(cfg.Fetch.HTTPConfig), cfg.Fetch, stage, os.Stdout)
	if err != nil {
		return err
	}
	rep.Fetched = fres.Total()
	rep.SkippedSources = fres.Skipped

	// Filter and publish share one history index: the filter reads
	// published hashes from it, a confirmed publish appends to it.
	var index filter.HashIndex
	var recorder publish.HistoryRecorder
	if path := historyPath(cfg); path != "" {
		store, err := history.Open(path)
		if err != nil {
			return err
		}
		defer store.Close()
		index = store
		recorder = store
	}

	printer.Step("Filtering %d staged artifact(s)", fres.Total())
	res, err := filter.FilterAll(ctx, cfg.Filter, index, stage, os.Stdout)
	if err != nil {
		return err
	}
	rep.Accepted = res.Accepted
	rep.Rejected = res.Rejected
	rep.FilterFailures = res.Failed
	if err := filter.WriteOutputs(cfg.Filter.CuratedDir, res); err != nil {
		return err
	}
	if res.Accepted == 0 {
		return exitWith(exitAllRejected, fmt.Errorf("no artifacts accepted (%d rejected, %d failed)",
			res.TotalRejected(), res.Failed))
	}

	rep.DryRun = cfg.Publish.DryRun
	printer.Step("Publishing %d curated record(s)", res.Accepted)
	opts := publish.Options{
		RunID:       rep.RunID,
		ToolVersion: version,
		DryRun:      cfg.Publish.DryRun,
	}
	manifest, err := publishRecords(ctx, cfg, opts, res.Records, recorder)
	if err != nil {
		return err
	}
	rep.PublishedVersion = manifest.Version
	return nil
}
