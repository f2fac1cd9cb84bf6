package commands

import (
	"nstools/cmd/nstools/globals"
	"nstools/lib/serviceutil"
	"nstools/lib/status"

	"github.com/spf13/cobra"
)

var (
	statusHome *string
)

func init() {
	statusHome = statusCmd.Flags().String("home", "", "Residents of this region are labelled as such, overrides the config.")

	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status <source> <output>",
	Short: "Appends the status of every nation of a tsv sheet (file or url) with a 'nation' column.",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		value := globals.Get(ctx)

		rows, err := value.Sheets().Rows(ctx, args[0])
		if err != nil {
			serviceutil.Fatal("failed to read source", err)
		}

		home := *statusHome
		if home == "" {
			home = value.HomeRegion
		}
		if home == "" {
			home = "10000 Islands"
		}

		report, err := status.Report(ctx, apiClient(cmd), rows, home)
		if err != nil {
			serviceutil.Fatal("failed to build report", err)
		}

		out := openOutput(args[1])
		err = status.WriteTSV(out, report)
		if err != nil {
			serviceutil.Fatal("failed to write report", err)
		}
		closeOutput(out)
	},
}

