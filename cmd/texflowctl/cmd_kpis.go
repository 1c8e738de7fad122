package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/artur-silva-empresa/Texdex/internal/domain"
)

func newKPIsCmd(opts *globalOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "kpis <file>",
		Short: "Compute the dashboard figures of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := opts.location()
			if err != nil {
				return err
			}
			now, err := opts.now()
			if err != nil {
				return err
			}
			result, err := readSource(args[0], loc)
			if err != nil {
				return err
			}

			kpis := domain.CalculateKPIs(result.Orders, now)
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(kpis)
			}
			return printKPIs(cmd.OutOrStdout(), kpis)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the figures as JSON")
	return cmd
}

func printKPIs(out io.Writer, kpis domain.DashboardKPIs) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Week:\t%s to %s\n", kpis.WeekStart.Format("2006-01-02"), kpis.WeekEnd.Format("2006-01-02"))
	fmt.Fprintf(w, "Active documents:\t%d\n", kpis.TotalActiveDocs)
	fmt.Fprintf(w, "Late orders:\t%d\n", kpis.TotalLate)
	fmt.Fprintf(w, "In production:\t%d\n", kpis.TotalInProduction)
	fmt.Fprintf(w, "Deliveries this week:\t%d\n", kpis.DeliveriesThisWeek)
	fmt.Fprintf(w, "Fulfilment this week:\t%.1f%%\n", kpis.FulfillmentRateWeek)
	fmt.Fprintf(w, "Billed quantity:\t%.0f\n", kpis.BilledVsOpen.Billed)
	fmt.Fprintf(w, "Open quantity:\t%.0f\n", kpis.BilledVsOpen.Open)
	fmt.Fprintf(w, "Alerts:\t%d\n", kpis.AlertCount)
	return w.Flush()
}
