package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/oplego/lexharvest/internal/model"
	"github.com/oplego/lexharvest/internal/pipeline"
	"github.com/oplego/lexharvest/internal/worker"
)

var (
	importAll         bool
	importConcurrency int
	importIDsFile     string
	jsonOutput        bool
)

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import [jurisdiction]",
	Short: "Import the priority acts of a jurisdiction",
	Long: `Import fetches every act on a jurisdiction's priority list that is not
stored yet, translates it to Romanian, classifies it and saves it.
Acts already in the store are skipped, so the command can be re-run.

With --all, every jurisdiction is imported concurrently. Each jurisdiction
keeps its own rate limit toward its portal.

Example:
  lexharvest import EU
  lexharvest import --all --concurrency 3`,
	Args: func(cmd *cobra.Command, args []string) error {
		if importAll {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(1)(cmd, args)
	},
	RunE: runImport,
}

// importActCmd represents the import-act command
var importActCmd = &cobra.Command{
	Use:   "import-act <jurisdiction> [source-id...]",
	Short: "Import or refresh specific acts",
	Long: `Import-act runs the full pipeline for the given source identifiers and
upserts the result, whether or not the act is already stored.

Example:
  lexharvest import-act EU 32019L1152
  lexharvest import-act RO --file ids.txt`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImportAct,
}

func init() {
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(importActCmd)

	importCmd.Flags().BoolVar(&importAll, "all", false, "import every jurisdiction")
	importCmd.Flags().IntVar(&importConcurrency, "concurrency", len(model.AllJurisdictions()), "jurisdictions imported at once with --all")
	importCmd.Flags().BoolVar(&jsonOutput, "json", false, "print run results as JSON on stdout")

	importActCmd.Flags().StringVar(&importIDsFile, "file", "", "read source ids from a file (one per line)")
	importActCmd.Flags().BoolVar(&jsonOutput, "json", false, "print run results as JSON on stdout")
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	jurisdictions := model.AllJurisdictions()
	if !importAll {
		j, err := model.ParseJurisdiction(args[0])
		if err != nil {
			return err
		}
		jurisdictions = []model.Jurisdiction{j}
	}

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	opts, err := a.pipelineOptions()
	if err != nil {
		return err
	}
	importer := pipeline.NewImporter(opts)

	stderr := cmd.ErrOrStderr()
	printBanner(stderr, "lexharvest Initial Import")
	fmt.Fprintf(stderr, "  Jurisdictions: %v\n", jurisdictions)
	fmt.Fprintf(stderr, "  Store:         %s\n", a.cfg.Store.Driver)
	fmt.Fprintf(stderr, "  Translate:     %v\n", a.cfg.Pipeline.TranslateEnabled)
	fmt.Fprintf(stderr, "  Structure:     %v\n\n", a.cfg.Pipeline.StructureEnabled)

	processor := worker.NewBatchProcessor(importer.RunInitialImport, importConcurrency)
	batch := processor.ProcessJurisdictions(ctx, jurisdictions)

	var results []*model.ImportResult
	var errs []error
	for _, br := range batch {
		if br.Result != nil {
			printResult(stderr, br.Result)
			results = append(results, br.Result)
		}
		if br.Error != nil {
			fmt.Fprintf(stderr, "✗ %s: %v\n", br.Jurisdiction, br.Error)
			errs = append(errs, fmt.Errorf("%s: %w", br.Jurisdiction, br.Error))
		}
	}

	printBanner(stderr, "Import Complete")
	summarize(stderr, results)

	if jsonOutput {
		if err := writeJSON(cmd.OutOrStdout(), results); err != nil {
			return err
		}
	}
	return errors.Join(errs...)
}

func runImportAct(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	j, err := model.ParseJurisdiction(args[0])
	if err != nil {
		return err
	}

	ids := args[1:]
	if importIDsFile != "" {
		fromFile, err := worker.ReadIDsFromFile(importIDsFile)
		if err != nil {
			return err
		}
		ids = append(ids, fromFile...)
	}
	if len(ids) == 0 {
		return fmt.Errorf("no source ids given (pass them as arguments or with --file)")
	}

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	opts, err := a.pipelineOptions()
	if err != nil {
		return err
	}
	importer := pipeline.NewImporter(opts)

	stderr := cmd.ErrOrStderr()
	var results []*model.ImportResult
	failed := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		result, err := importer.ImportSingleAct(ctx, j, id)
		if err != nil {
			return err
		}
		results = append(results, result)
		if len(result.Errors) > 0 {
			failed++
		}
		printResult(stderr, result)
	}

	if jsonOutput {
		if err := writeJSON(cmd.OutOrStdout(), results); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d acts failed", failed, len(ids))
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}
