package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newStatsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show dashboard totals",
	}

	var snapshot bool
	totals := &cobra.Command{
		Use:   "totals",
		Short: "Grand totals of cases and deaths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client()
			if err != nil {
				return err
			}
			t, err := client.Totals(cmd.Context(), snapshot)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts.output, t, func(tw *tabwriter.Writer) {
				fmt.Fprintln(tw, "RECORDS\tCASES\tDEATHS")
				fmt.Fprintf(tw, "%d\t%d\t%d\n", t.Records, t.Cases, t.Deaths)
			})
		},
	}
	totals.Flags().BoolVar(&snapshot, "snapshot", false, "use the bundled CSV snapshot instead of live records")

	regions := &cobra.Command{
		Use:   "regions",
		Short: "Totals per region, largest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client()
			if err != nil {
				return err
			}
			resp, err := client.Regions(cmd.Context())
			if err != nil {
				return err
			}
			unmatched := make(map[string]bool, len(resp.Unmatched))
			for _, name := range resp.Unmatched {
				unmatched[name] = true
			}
			return render(cmd.OutOrStdout(), opts.output, resp, func(tw *tabwriter.Writer) {
				fmt.Fprintln(tw, "REGION\tCASES\tDEATHS\t")
				for _, rt := range resp.Regions {
					mark := ""
					if unmatched[rt.Region] {
						mark = "not on map"
					}
					fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", rt.Region, rt.Cases, rt.Deaths, mark)
				}
			})
		},
	}

	cmd.AddCommand(totals, regions)
	return cmd
}
