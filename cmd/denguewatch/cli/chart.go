package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/denguewatch/denguewatch/internal/chart"
)

func newChartCmd(opts *options) *cobra.Command {
	var (
		mode  string
		month int
		year  int
	)
	cmd := &cobra.Command{
		Use:       "chart line|bar",
		Short:     "Print the cases and deaths series of a chart",
		ValidArgs: []string{string(chart.Line), string(chart.Bar)},
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		Long: `Print the data behind the line or bar chart.

Without --month or --year every record is included. Monthly mode needs both
a month and a year; yearly mode needs a year.

Examples:
  denguewatch chart line
  denguewatch chart bar --mode monthly --month 3 --year 2024
  denguewatch chart line --mode yearly --year 2024`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client()
			if err != nil {
				return err
			}
			s, err := client.Chart(cmd.Context(), args[0], mode, month, year)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts.output, s, func(tw *tabwriter.Writer) {
				fmt.Fprintln(tw, "DATE\tCASES\tDEATHS")
				for i, label := range s.Labels {
					fmt.Fprintf(tw, "%s\t%d\t%d\n", label, s.Cases[i], s.Deaths[i])
				}
			})
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "", "filter mode: monthly or yearly")
	cmd.Flags().IntVar(&month, "month", 0, "month 1-12 (monthly mode)")
	cmd.Flags().IntVar(&year, "year", 0, "year")
	return cmd
}
