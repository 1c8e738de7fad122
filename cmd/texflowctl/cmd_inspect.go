package main

import (
	"fmt"
	"io"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/artur-silva-empresa/Texdex/internal/domain"
	"github.com/artur-silva-empresa/Texdex/internal/ingest"
)

var orderStates = []domain.OrderState{
	domain.OrderStateOpen,
	domain.OrderStateInProduction,
	domain.OrderStateLate,
	domain.OrderStateCompleted,
}

var sectorStates = []domain.SectorState{
	domain.SectorStateNotStarted,
	domain.SectorStateInProgress,
	domain.SectorStateCompleted,
}

func newInspectCmd(opts *globalOptions) *cobra.Command {
	var warnings int

	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Show how a file classifies, sector by sector",
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
			return printInspection(cmd.OutOrStdout(), filepath.Base(args[0]), result, now, warnings)
		},
	}

	cmd.Flags().IntVar(&warnings, "warnings", 10, "Number of parse warnings to list")
	return cmd
}

func printInspection(out io.Writer, name string, result *ingest.NormalizeResult, at time.Time, maxWarnings int) error {
	byState := make(map[domain.OrderState]int, len(orderStates))
	bySector := make(map[domain.SectorID]map[domain.SectorState]int, len(domain.Sectors))
	for _, s := range domain.Sectors {
		bySector[s.ID] = map[domain.SectorState]int{}
	}
	for _, o := range result.Orders {
		byState[domain.ClassifyOrder(o, at)]++
		for id, state := range domain.SectorStates(o) {
			bySector[id][state]++
		}
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "File:\t%s\n", name)
	fmt.Fprintf(w, "Evaluated at:\t%s\n", at.Format("2006-01-02 15:04 MST"))
	fmt.Fprintf(w, "Orders:\t%d\n", len(result.Orders))
	fmt.Fprintf(w, "Skipped rows:\t%d\n", result.Skipped)
	fmt.Fprintf(w, "Parse warnings:\t%d\n", len(result.Warnings))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "STATE\tORDERS")
	for _, s := range orderStates {
		fmt.Fprintf(w, "%s\t%d\n", s, byState[s])
	}
	fmt.Fprintln(w)

	fmt.Fprint(w, "SECTOR")
	for _, s := range sectorStates {
		fmt.Fprintf(w, "\t%s", s)
	}
	fmt.Fprintln(w)
	for _, sector := range domain.Sectors {
		fmt.Fprint(w, sector.Name)
		for _, s := range sectorStates {
			fmt.Fprintf(w, "\t%d", bySector[sector.ID][s])
		}
		fmt.Fprintln(w)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if maxWarnings > 0 && len(result.Warnings) > 0 {
		fmt.Fprintln(out)
		for i, warn := range result.Warnings {
			if i == maxWarnings {
				fmt.Fprintf(out, "... %d more\n", len(result.Warnings)-maxWarnings)
				break
			}
			fmt.Fprintln(out, warn.String())
		}
	}
	return nil
}
