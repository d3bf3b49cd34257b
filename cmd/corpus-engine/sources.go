package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/corpus-engine/internal/fetch"
	"github.com/pdiddy/corpus-engine/internal/printer"
	"github.com/pdiddy/corpus-engine/internal/secrets"
	"github.com/pdiddy/corpus-engine/pkg/types"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List and validate configured sources",
	Long: `Sources shows the upstream sources the fetch stage will visit and
checks their descriptors without downloading anything.`,
}

var sourcesListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the configured sources",
	RunE:  runSourcesList,
}

var sourcesValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check every source descriptor without fetching",
	RunE:  runSourcesValidate,
}

func init() {
	sourcesCmd.AddCommand(sourcesListCmd)
	sourcesCmd.AddCommand(sourcesValidateCmd)

	rootCmd.AddCommand(sourcesCmd)
}

func runSourcesList(cmd *cobra.Command, args []string) error {
	cfg, err := pipelineConfig()
	if err != nil {
		return err
	}
	if len(cfg.Fetch.Sources) == 0 {
		fmt.Println("No sources configured.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-20s  %-8s  %-40s  %-8s  %s\n",
		"Name", "Kind", "Location", "Language", "Licenses")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 96))

	for _, sc := range cfg.Fetch.Sources {
		location := sc.URL
		if sc.Kind == types.SourceDir {
			location = sc.Path
		}
		if len(location) > 40 {
			location = location[:37] + "..."
		}
		lang := string(sc.Language)
		if lang == "" {
			lang = "-"
		}
		licenses := strings.Join(sc.Licenses, ",")
		if licenses == "" {
			licenses = "-"
		}
		fmt.Fprintf(os.Stdout, "%-20s  %-8s  %-40s  %-8s  %s\n",
			sc.Name, sc.Kind, location, lang, licenses)
	}

	fmt.Fprintf(os.Stdout, "\n%d source(s)\n", len(cfg.Fetch.Sources))
	return nil
}

func runSourcesValidate(cmd *cobra.Command, args []string) error {
	cfg, err := pipelineConfig()
	if err != nil {
		return err
	}
	if len(cfg.Fetch.Sources) == 0 {
		return fmt.Errorf("no sources configured")
	}

	creds, err := secrets.Load(secretsDir())
	if err != nil {
		return err
	}

	client := httpClient(cfg.Fetch.HTTPConfig)
	invalid := 0
	for _, sc := range cfg.Fetch.Sources {
		name := sc.Name
		if name == "" {
			name = "(unnamed)"
		}
		if _, err := fetch.New(client, sc, cfg.Fetch); err != nil {
			printer.Warning("%s: %v", name, err)
			invalid++
			continue
		}
		if ref := sc.CredentialRef; ref != "" {
			if _, ok := creds[ref]; !ok {
				printer.Warning("%s: credential %q not found in %s", name, ref, secretsDir())
				invalid++
				continue
			}
		}
		printer.Success("%s", name)
	}

	if invalid > 0 {
		return fmt.Errorf("%d of %d source descriptor(s) invalid", invalid, len(cfg.Fetch.Sources))
	}
	return nil
}
