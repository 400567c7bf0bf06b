package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/oplego/lexharvest/internal/adapters"
	"github.com/oplego/lexharvest/internal/model"
)

var (
	searchLimit    int
	searchPriority bool
)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search <jurisdiction> [query]",
	Short: "Search a portal for acts without storing them",
	Long: `Search queries a jurisdiction's portal and lists matching acts. Nothing is
translated or stored. With --priority the curated import list is shown
instead.

Example:
  lexharvest search EU "safety and health at work"
  lexharvest search RO --priority`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().IntVar(&searchLimit, "limit", 20, "maximum number of results")
	searchCmd.Flags().BoolVar(&searchPriority, "priority", false, "list the priority acts instead of searching")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	j, err := model.ParseJurisdiction(args[0])
	if err != nil {
		return err
	}

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	adapter, err := a.adapters.Get(j)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)

	if searchPriority {
		fmt.Fprintln(tw, "SOURCE ID\tSHORT NAME\tTITLE")
		for _, p := range adapter.PriorityActs() {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", p.SourceID, p.ShortName, truncate(p.Title, 80))
		}
		return tw.Flush()
	}

	query := ""
	if len(args) == 2 {
		query = args[1]
	}

	acts, err := adapter.SearchActs(ctx, adapters.SearchParams{Query: query, Limit: searchLimit})
	if err != nil {
		return fmt.Errorf("search %s: %w", j, err)
	}

	fmt.Fprintln(tw, "SOURCE ID\tTITLE\tURL")
	for _, act := range acts {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", act.SourceID, truncate(act.TitleOriginal, 80), act.SourceURL)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "\n✓ %d acts\n", len(acts))
	return nil
}

// truncate shortens s to at most n runes
func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
