package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/denguewatch/denguewatch/internal/records"
)

func newRecordsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "records",
		Short: "List, add, update and delete case records",
		Long: `Manage dengue case records on the server.

Examples:
  denguewatch records list --search man --page 2
  denguewatch records add --location Cebu --cases 12 --deaths 0 --date 2024-03-01 --region "Central Visayas"
  denguewatch records update ID --location Cebu --cases 14 --deaths 1 --date 2024-03-01 --region "Central Visayas"
  denguewatch records delete ID
  denguewatch records refresh`,
	}
	cmd.AddCommand(newRecordsListCmd(opts))
	cmd.AddCommand(newRecordsAddCmd(opts))
	cmd.AddCommand(newRecordsUpdateCmd(opts))
	cmd.AddCommand(newRecordsDeleteCmd(opts))
	cmd.AddCommand(newRecordsRefreshCmd(opts))
	return cmd
}

func newRecordsListCmd(opts *options) *cobra.Command {
	var (
		search string
		page   int
		size   int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print one page of records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client()
			if err != nil {
				return err
			}
			p, err := client.ListRecords(cmd.Context(), search, page, size)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts.output, p, func(tw *tabwriter.Writer) {
				printRecordTable(tw, p.Items)
				fmt.Fprintf(tw, "\npage %d of %d (%d records)\n", p.Page, p.TotalPages, p.TotalItems)
			})
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "case-insensitive substring of the location")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&size, "size", 0, "records per page (server default when 0)")
	return cmd
}

func printRecordTable(tw *tabwriter.Writer, recs []records.CaseRecord) {
	fmt.Fprintln(tw, "ID\tLOCATION\tCASES\tDEATHS\tDATE\tREGION")
	for _, r := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\n", r.ID, r.Location, r.Cases, r.Deaths, r.Date, r.Region)
	}
}

// bindFields registers the record value flags. Every one is required since
// an update replaces the whole record.
func bindFields(cmd *cobra.Command, f *records.Fields) {
	cmd.Flags().StringVar(&f.Location, "location", "", "location name")
	cmd.Flags().IntVar(&f.Cases, "cases", 0, "number of cases")
	cmd.Flags().IntVar(&f.Deaths, "deaths", 0, "number of deaths")
	cmd.Flags().StringVar(&f.Date, "date", "", "date as YYYY-MM-DD")
	cmd.Flags().StringVar(&f.Region, "region", "", "administrative region")
	for _, name := range []string{"location", "cases", "deaths", "date", "region"} {
		_ = cmd.MarkFlagRequired(name)
	}
}

func newRecordsAddCmd(opts *options) *cobra.Command {
	var f records.Fields
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client()
			if err != nil {
				return err
			}
			rec, err := client.CreateRecord(cmd.Context(), f)
			if err != nil {
				return err
			}
			return printRecord(cmd, opts, "Created", rec)
		},
	}
	bindFields(cmd, &f)
	return cmd
}

func newRecordsUpdateCmd(opts *options) *cobra.Command {
	var f records.Fields
	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Replace the fields of a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client()
			if err != nil {
				return err
			}
			rec, err := client.UpdateRecord(cmd.Context(), args[0], f)
			if err != nil {
				return err
			}
			return printRecord(cmd, opts, "Updated", rec)
		},
	}
	bindFields(cmd, &f)
	return cmd
}

func printRecord(cmd *cobra.Command, opts *options, verb string, rec *records.CaseRecord) error {
	return render(cmd.OutOrStdout(), opts.output, rec, func(tw *tabwriter.Writer) {
		fmt.Fprintf(tw, "%s record %s\n\n", verb, rec.ID)
		printRecordTable(tw, []records.CaseRecord{*rec})
	})
}

func newRecordsDeleteCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client()
			if err != nil {
				return err
			}
			if err := client.DeleteRecord(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Deleted record %s\n", args[0])
			return nil
		},
	}
}

func newRecordsRefreshCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Make the server reload its records from the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client()
			if err != nil {
				return err
			}
			n, err := client.Refresh(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d records loaded\n", n)
			return nil
		},
	}
}
