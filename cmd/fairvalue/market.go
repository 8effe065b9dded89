package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/seenimoa/fairvalue/pkg/utils"
)

// --- Quote Command ---

var quoteCmd = &cobra.Command{
	Use:   "quote [ticker]",
	Short: "Show the financial snapshot for a ticker",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		agg, err := newAggregator()
		if err != nil {
			return err
		}
		snap, err := agg.Snapshots().GetSnapshot(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fcfe := utils.NotAvailable
		if snap.HasFCFE() {
			fcfe = utils.FormatCompact(*snap.LeveredFreeCashFlow)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s  %s (%s)\n\n", snap.Ticker, snap.Name, snap.Currency)
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintf(tw, "Revenue\t%s\n", utils.FormatCompact(snap.Revenue))
		fmt.Fprintf(tw, "Market cap\t%s\n", utils.FormatCompact(snap.MarketCap))
		fmt.Fprintf(tw, "Free cash flow\t%s\n", utils.FormatCompact(snap.FreeCashFlow))
		fmt.Fprintf(tw, "Capital expenditure\t%s\n", utils.FormatCompact(snap.CapitalExpenditure))
		fmt.Fprintf(tw, "Levered FCF (FCFE)\t%s\n", fcfe)
		fmt.Fprintf(tw, "Total debt\t%s\n", utils.FormatCompact(snap.TotalDebt))
		fmt.Fprintf(tw, "Cash\t%s\n", utils.FormatCompact(snap.CashAndEquivalents))
		fmt.Fprintf(tw, "Shares outstanding\t%s\n", utils.FormatNumber(snap.SharesOutstanding))
		fmt.Fprintf(tw, "Beta\t%.2f\n", snap.Beta)
		if !snap.FetchedAt.IsZero() {
			fmt.Fprintf(tw, "Fetched\t%s\n", snap.FetchedAt.Local().Format(time.DateTime))
		}
		return tw.Flush()
	},
}
