package cli

import (
	"github.com/spf13/cobra"
)

// options are the persistent flags shared by every command.
type options struct {
	server string
	output string
}

func (o *options) client() (*APIClient, error) {
	server, err := resolveServer(o.server)
	if err != nil {
		return nil, err
	}
	return NewClient(server), nil
}

// NewRootCmd builds the full command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "denguewatch",
		Short: "denguewatch, dengue case records from the command line",
		Long: `denguewatch talks to a denguewatch server to list, edit and import
dengue case records and to read the dashboard totals and charts.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.server, "server", "", "server URL (defaults to $"+serverEnv+", then stored config)")
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", "auto", "output format: auto, table or json")

	root.AddCommand(newRecordsCmd(opts))
	root.AddCommand(newImportCmd(opts))
	root.AddCommand(newStatsCmd(opts))
	root.AddCommand(newChartCmd(opts))
	root.AddCommand(newDoctorCmd(opts))
	root.AddCommand(newConfigCmd())
	root.AddCommand(versionCmd)
	return root
}

// Execute runs the CLI against os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}
