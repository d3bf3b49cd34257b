package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/corpus-engine/internal/history"
	"github.com/pdiddy/corpus-engine/internal/printer"
	"github.com/pdiddy/corpus-engine/internal/registry"
	"github.com/pdiddy/corpus-engine/internal/secrets"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect or rebuild the local publish-history index",
	Long: `History manages the local SQLite index of published manifests and
content hashes that the filter consults for cross-run deduplication.
Use inspect to view it and sync to rebuild it from the registry.`,
}

var historyInspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show recorded manifest versions and hash counts",
	RunE:  runHistoryInspect,
}

var historySyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Rebuild the index from the registry's published manifests",
	Long: `Sync replaces the local index contents with the manifests the registry
reports for the configured dataset. Use it to recover the index on a
fresh machine or after local corruption.`,
	RunE: runHistorySync,
}

func init() {
	historyInspectCmd.Flags().Bool("json", false, "output as JSON")

	historyCmd.AddCommand(historyInspectCmd)
	historyCmd.AddCommand(historySyncCmd)

	rootCmd.AddCommand(historyCmd)
}

func runHistoryInspect(cmd *cobra.Command, args []string) error {
	cfg, err := pipelineConfig()
	if err != nil {
		return err
	}
	path := historyPath(cfg)
	if path == "" {
		return fmt.Errorf("no history path configured")
	}

	store, err := history.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	manifests, err := store.ListManifests(ctx)
	if err != nil {
		return err
	}
	hashes, err := store.HashCount(ctx)
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Manifests       []history.ManifestInfo `json:"manifests"`
			PublishedHashes int                    `json:"published_hashes"`
		}{manifests, hashes})
	}

	if len(manifests) == 0 {
		fmt.Println("No published manifests recorded.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-12s  %-20s  %-8s  %s\n", "Version", "Created", "Records", "Run")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 84))
	for _, m := range manifests {
		fmt.Fprintf(os.Stdout, "%-12s  %-20s  %-8d  %s\n",
			m.Version, m.CreatedAt.Format("2006-01-02 15:04:05"), m.TotalRecords, m.RunID)
	}
	fmt.Fprintf(os.Stdout, "\n%d manifest(s), %d published hash(es)\n", len(manifests), hashes)
	return nil
}

func runHistorySync(cmd *cobra.Command, args []string) error {
	cfg, err := pipelineConfig()
	if err != nil {
		return err
	}
	path := historyPath(cfg)
	if path == "" {
		return fmt.Errorf("no history path configured")
	}

	token, err := secrets.RegistryToken(secretsDir())
	if err != nil {
		return err
	}
	cfg.Registry.Token = token

	client, err := registry.NewClient(cfg.Registry, httpClient(cfg.Registry.HTTPConfig))
	if err != nil {
		return err
	}

	ctx := context.Background()
	manifests, err := client.Manifests(ctx, cfg.Registry.Dataset)
	if err != nil {
		return err
	}

	store, err := history.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Replace(ctx, manifests); err != nil {
		return err
	}
	hashes, err := store.HashCount(ctx)
	if err != nil {
		return err
	}
	printer.Success("history rebuilt: %d manifest(s), %d published hash(es)", len(manifests), hashes)
	return nil
}
