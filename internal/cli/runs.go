package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var runsLimit int

// runsCmd represents the runs command
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent import runs",
	Long: `Runs lists the most recent run logs, newest first, with their counts,
status and estimated API cost.

Example:
  lexharvest runs --limit 50
  lexharvest runs --json`,
	Args: cobra.NoArgs,
	RunE: runRuns,
}

func init() {
	rootCmd.AddCommand(runsCmd)

	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "number of runs to show")
	runsCmd.Flags().BoolVar(&jsonOutput, "json", false, "print runs as JSON")
}

func runRuns(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	runs, err := a.store.ListRuns(ctx, runsLimit)
	if err != nil {
		return err
	}

	if jsonOutput {
		return writeJSON(cmd.OutOrStdout(), runs)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tJURISDICTION\tTYPE\tSTATUS\tFOUND\tNEW\tUPDATED\tSKIPPED\tERRORS\tCOST\tRUN ID")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s %s\t%d\t%d\t%d\t%d\t%d\t$%.4f\t%s\n",
			r.StartedAt.Local().Format(time.DateTime), r.Jurisdiction, r.RunType,
			statusMark(r.Status), r.Status,
			r.ActsFound, r.ActsNew, r.ActsUpdated, r.ActsSkipped, len(r.Errors),
			r.EstimatedCostUSD, r.RunID)
	}
	return tw.Flush()
}
