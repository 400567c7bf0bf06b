package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/oplego/lexharvest/internal/model"
)

const rule = "═══════════════════════════════════════════════════════════"

func printBanner(w io.Writer, title string) {
	fmt.Fprintf(w, "\n%s\n  %s\n%s\n\n", rule, title, rule)
}

func statusMark(s model.RunStatus) string {
	switch s {
	case model.RunCompleted:
		return "✓"
	case model.RunPartial:
		return "⚠"
	default:
		return "✗"
	}
}

// printResult writes a human summary of one run
func printResult(w io.Writer, r *model.ImportResult) {
	fmt.Fprintf(w, "%s %s %s: %s in %s (run %s)\n",
		statusMark(r.Status), r.Jurisdiction, r.RunType, r.Status,
		r.Duration.Round(time.Millisecond), r.RunID)
	fmt.Fprintf(w, "    found %d, new %d, updated %d, skipped %d, translated %d, structured %d\n",
		r.ActsFound, r.ActsNew, r.ActsUpdated, r.ActsSkipped, r.ActsTranslated, r.ActsStructured)
	if r.TranslationChars > 0 || r.InputTokens > 0 {
		fmt.Fprintf(w, "    usage: %d chars, %d in / %d out tokens, ~$%.4f\n",
			r.TranslationChars, r.InputTokens, r.OutputTokens, r.EstimatedCostUSD)
	}
	for _, e := range r.Errors {
		fmt.Fprintf(w, "    ✗ %s [%s] %s\n", e.SourceID, e.Stage, e.Message)
	}
	for _, warn := range r.Warnings {
		fmt.Fprintf(w, "    ⚠ %s\n", warn)
	}
}

// summarize totals a set of runs for the closing banner
func summarize(w io.Writer, results []*model.ImportResult) {
	var found, created, updated, failed int
	var cost float64
	for _, r := range results {
		found += r.ActsFound
		created += r.ActsNew
		updated += r.ActsUpdated
		failed += len(r.Errors)
		cost += r.EstimatedCostUSD
	}

	fmt.Fprintf(w, "  Runs:      %d\n", len(results))
	fmt.Fprintf(w, "  Found:     %d\n", found)
	fmt.Fprintf(w, "  New:       %d\n", created)
	fmt.Fprintf(w, "  Updated:   %d\n", updated)
	fmt.Fprintf(w, "  Failures:  %d\n", failed)
	fmt.Fprintf(w, "  Est. cost: $%.4f\n\n", cost)
}
