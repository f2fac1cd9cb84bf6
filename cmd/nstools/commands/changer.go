package commands

import (
	"nstools/cmd/nstools/globals"
	"nstools/lib/serviceutil"
	"nstools/lib/webclient"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(changerCmd)
}

var changerCmd = &cobra.Command{
	Use:   "changer [file]",
	Short: "Changes nation passwords through the site from 'nation,current,new' lines.",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		in := openInput(args)
		changes, err := webclient.ParseChanges(in)
		in.Close()
		if err != nil {
			serviceutil.Fatal("failed to read changes", err)
		}

		client, err := globals.Get(cmd.Context()).Web()
		if err != nil {
			serviceutil.Fatal("failed to create web client", err)
		}
		results, err := client.ChangeAll(cmd.Context(), changes)

		t := newTable()
		t.AppendHeader(table.Row{"Nation", "Result"})
		for _, change := range changes {
			changeErr, ok := results[change.Nation]
			switch {
			case !ok:
				t.AppendRow(table.Row{change.Nation, "skipped"})
			case changeErr != nil:
				t.AppendRow(table.Row{change.Nation, changeErr.Error()})
			default:
				t.AppendRow(table.Row{change.Nation, "changed"})
			}
		}
		t.Render()

		if err != nil {
			serviceutil.Fatal("password changes interrupted", err)
		}
	},
}
