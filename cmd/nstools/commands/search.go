package commands

import (
	"fmt"
	"time"

	"nstools/lib/endorse"
	"nstools/lib/nsapi"
	"nstools/lib/osutil"
	"nstools/lib/search"
	"nstools/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	endingsSince    *int64
	endingsBefore   *int64
	endingsFounders *bool
	collectExclude  *[]string
	collectOutput   *string
	deployedRoster  *string
)

func init() {
	endingsSince = endingsCmd.Flags().Int64("since", 0, "Unix timestamp to search from, a day before --before by default.")
	endingsBefore = endingsCmd.Flags().Int64("before", 0, "Unix timestamp to search until, now by default.")
	endingsFounders = endingsCmd.Flags().Bool("founders", false, "Only list nations that founded a region, read from the regions dump.")
	collectExclude = collectCmd.Flags().StringSlice("exclude", nil, "Regions to leave out.")
	collectOutput = collectCmd.Flags().StringP("output", "o", "", "Output file, stdout by default.")
	deployedRoster = deployedCmd.Flags().String("roster", "", "Roster json mapping each main nation to its puppets, stdin by default.")

	rootCmd.AddCommand(endingsCmd)
	rootCmd.AddCommand(collectCmd)
	rootCmd.AddCommand(deployedCmd)
	rootCmd.AddCommand(dossierCmd)
	rootCmd.AddCommand(useragentCmd)
}

func unixOrZero(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0)
}

var endingsCmd = &cobra.Command{
	Use:   "endings",
	Short: "Lists the nations that ceased to exist recently and their regions.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		endings, err := search.Endings(cmd.Context(), apiClient(cmd), unixOrZero(*endingsSince), unixOrZero(*endingsBefore))
		if err != nil {
			serviceutil.Fatal("failed to get endings", err)
		}
		if *endingsFounders {
			reader := regionsDump(cmd)
			endings, err = search.FounderEndings(endings, reader)
			reader.Close()
			if err != nil {
				serviceutil.Fatal("failed to read regions dump", err)
			}
		}

		t := newTable()
		t.AppendHeader(table.Row{"Nation", "Region"})
		for _, e := range endings {
			t.AppendRow(table.Row{e.Nation, e.Region})
		}
		t.AppendFooter(table.Row{"Endings", len(endings)})
		t.Render()
	},
}

var collectCmd = &cobra.Command{
	Use:   "collect <tag...>",
	Short: "Lists the residents of every region carrying the tags, prefix a tag with - to exclude it.",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		tagged, err := search.TaggedRegions(cmd.Context(), apiClient(cmd), *collectExclude, args...)
		if err != nil {
			serviceutil.Fatal("failed to find regions", err)
		}

		reader := regionsDump(cmd)
		residents, err := search.RegionResidents(reader, tagged)
		reader.Close()
		if err != nil {
			serviceutil.Fatal("failed to read regions dump", err)
		}

		out := openOutput(*collectOutput)
		err = search.WriteAnnouncement(out, residents)
		if err != nil {
			serviceutil.Fatal("failed to write residents", err)
		}
		closeOutput(out)
	},
}

var deployedCmd = &cobra.Command{
	Use:   "deployed <lead...>",
	Short: "Lists the roster members endorsing each lead with any of their nations.",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var input []string
		if *deployedRoster != "" {
			input = []string{*deployedRoster}
		}
		in := openInput(input)
		roster, err := endorse.ParseRoster(in)
		in.Close()
		if err != nil {
			serviceutil.Fatal("failed to read roster", err)
		}

		deployments, err := endorse.Deployments(cmd.Context(), apiClient(cmd), args, roster)
		if err != nil {
			serviceutil.Fatal("failed to check deployments", err)
		}
		for _, d := range deployments {
			fmt.Fprintln(cmd.OutOrStdout(), d.String())
		}
	},
}

var dossierCmd = &cobra.Command{
	Use:   "dossier <nation>",
	Short: "Prompts for the nation's password and prints its dossier.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		password, err := osutil.StdPrompter().Password("Password: ")
		if err != nil {
			serviceutil.Fatal("failed to read password", err)
		}
		nation := apiClient(cmd).PrivateNation(args[0], nsapi.NewPasswordAuth(password))
		dossier, err := nation.Dossier(cmd.Context())
		if err != nil {
			serviceutil.Fatal("failed to get dossier", err)
		}

		t := newTable()
		t.AppendHeader(table.Row{"Kind", "Name"})
		for _, name := range dossier.Nations.Names() {
			t.AppendRow(table.Row{"nation", name})
		}
		for _, name := range dossier.Regions.Names() {
			t.AppendRow(table.Row{"region", name})
		}
		t.Render()
	},
}

var useragentCmd = &cobra.Command{
	Use:   "useragent",
	Short: "Prints the user agent as the api received it.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ua, err := apiClient(cmd).UserAgent(cmd.Context())
		if err != nil {
			serviceutil.Fatal("failed to reach the api", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), ua)
	},
}
