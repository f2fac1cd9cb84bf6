package commands

import (
	"fmt"

	"nstools/lib/nsapi"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(triggerCmd)
}

var triggerCmd = &cobra.Command{
	Use:   "trigger <nation...>",
	Short: "Prints an api link that refreshes a nation's data when opened.",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		for _, nation := range args {
			fmt.Fprintln(cmd.OutOrStdout(), nsapi.TriggerURL(nation))
		}
	},
}
