package cli

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newImportCmd(opts *options) *cobra.Command {
	var (
		policy string
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Upload a CSV file of case records",
		Long: `Upload a CSV file with columns location, cases, deaths, date and region.
Legacy headers such as loc and Region are accepted. Use "-" to read stdin.

Rows that cannot become a valid record are skipped and reported. The policy
decides how counts that are not integers are treated:
  strict   reject the row (default)
  lenient  read the count as zero

Examples:
  denguewatch import cases.csv
  denguewatch import cases.csv --policy lenient --dry-run
  cat cases.csv | denguewatch import -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client()
			if err != nil {
				return err
			}

			name := args[0]
			var in io.Reader = cmd.InOrStdin()
			if name != "-" {
				f, err := os.Open(name)
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			} else {
				name = "stdin.csv"
			}

			res, err := client.Import(cmd.Context(), name, in, policy, dryRun)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts.output, res, func(tw *tabwriter.Writer) {
				verb := "Imported"
				if res.DryRun {
					verb = "Would import"
				}
				fmt.Fprintf(tw, "%s %d rows, rejected %d\n", verb, res.Accepted, res.Rejected)
				if len(res.Rejections) > 0 {
					fmt.Fprintln(tw, "\nLINE\tREASON")
					for _, rj := range res.Rejections {
						fmt.Fprintf(tw, "%d\t%s\n", rj.Line, rj.Reason)
					}
				}
			})
		},
	}
	cmd.Flags().StringVar(&policy, "policy", "", "count policy: strict or lenient (server default when empty)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate without writing")
	return cmd
}
