package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oplego/lexharvest/internal/model"
	"github.com/oplego/lexharvest/internal/pipeline"
)

// updateCmd represents the update command
var updateCmd = &cobra.Command{
	Use:   "update [jurisdiction]",
	Short: "Check processed acts for upstream changes",
	Long: `Update re-fetches every processed act and compares its content hash with
the stored one. Changed acts are re-translated, re-classified and flagged
for human review. Acts whose portal cannot be reached are reported as
warnings and left untouched.

Without an argument every jurisdiction is checked, one after another.

Example:
  lexharvest update
  lexharvest update DE`,
	Args: cobra.MaximumNArgs(1),
	RunE: runUpdate,
}

func init() {
	rootCmd.AddCommand(updateCmd)
	updateCmd.Flags().BoolVar(&jsonOutput, "json", false, "print run results as JSON on stdout")
}

func runUpdate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var only model.Jurisdiction
	if len(args) == 1 {
		j, err := model.ParseJurisdiction(args[0])
		if err != nil {
			return err
		}
		only = j
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
	checker := pipeline.NewUpdateChecker(opts)

	stderr := cmd.ErrOrStderr()
	printBanner(stderr, "lexharvest Update Check")

	var results []*model.ImportResult
	if only != "" {
		result, runErr := checker.CheckJurisdiction(ctx, only)
		if result != nil {
			results = append(results, result)
		}
		err = runErr
	} else {
		results, err = checker.CheckAll(ctx)
	}

	for _, r := range results {
		printResult(stderr, r)
	}
	printBanner(stderr, "Update Check Complete")
	summarize(stderr, results)

	if jsonOutput {
		if jerr := writeJSON(cmd.OutOrStdout(), results); jerr != nil {
			return jerr
		}
	}
	if err != nil {
		return fmt.Errorf("update check: %w", err)
	}
	return nil
}
