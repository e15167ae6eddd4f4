package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/aristath/carbonscreen/internal/modules/portfolio"
	"github.com/aristath/carbonscreen/internal/modules/scoring"
)

// maxFlagsShown caps the flag list in the console summary
const maxFlagsShown = 5

// PrintSummary writes the human-readable run summary
func PrintSummary(w io.Writer, in Input) error {
	c := in.Summary.Card
	d := in.Summary.Distribution

	var b strings.Builder
	fmt.Fprintf(&b, "\nCarbon Offset Quality Screen (run %s)\n", in.Run.RunID)
	fmt.Fprintf(&b, "Source: %s", in.Run.Source)
	if in.Run.FromCache {
		b.WriteString(" [cache]")
		if in.Run.Stale {
			b.WriteString(" [stale]")
		}
	}
	b.WriteString("\n")
	printer.Fprintf(&b, "Rows: %d parsed, %d dropped, %d filtered, %d scored\n\n",
		in.Run.Parsed, in.Run.Dropped, in.Run.Filtered, in.Run.Scored)

	printer.Fprintf(&b, "  Projects         %d\n", c.TotalProjects)
	fmt.Fprintf(&b, "  Average CQI      %s (median %s, weighted %s)\n",
		scoring.FormatScore(c.AverageCQI), scoring.FormatScore(d.Median), scoring.FormatScore(d.WeightedMean))
	fmt.Fprintf(&b, "  High quality     %.1f%%\n", c.PctHighQuality)
	fmt.Fprintf(&b, "  Flagged          %.1f%%\n", c.PctFlagged)
	printer.Fprintf(&b, "  Issued           %d tCO2e (%.2f Mt)\n", in.Summary.TotalIssued, c.IssuedMt)
	printer.Fprintf(&b, "  Retired          %d tCO2e (%.2f Mt)\n", in.Summary.TotalRetired, c.RetiredMt)
	if c.TopCountry != "" {
		fmt.Fprintf(&b, "  Top country      %s\n", c.TopCountry)
		fmt.Fprintf(&b, "  Top type         %s\n", c.TopType)
	}

	b.WriteString("\nTiers:")
	for _, t := range in.Summary.Tiers {
		fmt.Fprintf(&b, "  %s %d", t.Tier, t.Projects)
	}
	b.WriteString("\n")

	if _, err := io.WriteString(w, b.String()); err != nil {
		return err
	}

	if len(in.Summary.Top) > 0 {
		if err := printRanked(w, fmt.Sprintf("Top %d", len(in.Summary.Top)), in.Summary.Top); err != nil {
			return err
		}
		if err := printRanked(w, fmt.Sprintf("Bottom %d", len(in.Summary.Bottom)), in.Summary.Bottom); err != nil {
			return err
		}
	}

	if len(in.Flags) == 0 {
		_, err := io.WriteString(w, "\nNo red flags raised.\n")
		return err
	}
	if _, err := io.WriteString(w, "\nMost frequent red flags:\n"); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for i, f := range in.Flags {
		if i == maxFlagsShown {
			break
		}
		printer.Fprintf(tw, "  %s\t%s\t%d\t%.1f%%\n", f.Code, f.Severity, f.Projects, f.PctOfPortfolio)
	}
	return tw.Flush()
}

func printRanked(w io.Writer, title string, projects []portfolio.RankedProject) error {
	if _, err := fmt.Fprintf(w, "\n%s by CQI:\n", title); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, p := range projects {
		printer.Fprintf(tw, "  %s\t%s\t%s\t%d\t%s\t%s\n",
			p.ID, p.Type, p.Country, p.Issued, scoring.FormatScore(p.Composite), p.Tier)
	}
	return tw.Flush()
}
