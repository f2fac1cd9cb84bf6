package commands

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"nstools/lib/endorse"
	"nstools/lib/serviceutil"

	"github.com/spf13/cobra"
)

var (
	endorsementsFormat *string
	endorsementsAPI    *bool
	endorsedOutput     *string
	crossFormat        *string
	residentsCount     *int
	residentsFormat    *string
)

func init() {
	endorsementsFormat = endorsementsCmd.Flags().String("format", "links", "Output format, links or plain.")
	endorsementsAPI = endorsementsCmd.Flags().Bool("api", false, "Query every resident through the API instead of reading the nations dump.")
	endorsedOutput = endorsedCmd.Flags().StringP("output", "o", "", "Write the list to this file instead of stdout.")
	crossFormat = crossCmd.Flags().String("format", "links", "Output format, links or plain.")
	residentsCount = residentsCmd.Flags().Int("count", 0, "Only list members holding at most this many endorsements, read from the nations dump.")
	residentsFormat = residentsCmd.Flags().String("format", "plain", "Output format, links or plain.")

	rootCmd.AddCommand(endorsementsCmd)
	rootCmd.AddCommand(endorsedCmd)
	rootCmd.AddCommand(crossCmd)
	rootCmd.AddCommand(residentsCmd)
}

// writeNations writes one nation per line. The plain format writes nothing
// for an empty list, links still writes the header.
func writeNations(w io.Writer, format, header string, nations []string) error {
	var err error
	switch format {
	case "links":
		_, err = io.WriteString(w, endorse.FormatLinks(header, nations))
	case "plain":
		if len(nations) == 0 {
			return nil
		}
		_, err = io.WriteString(w, strings.Join(nations, "\n")+"\n")
	default:
		return fmt.Errorf("format must be links or plain, got %q", format)
	}
	return err
}

func mustWriteNations(w io.Writer, format, header string, nations []string) {
	if err := writeNations(w, format, header, nations); err != nil {
		serviceutil.Fatal("failed to write nations", err)
	}
}

var endorsementsCmd = &cobra.Command{
	Use:   "endorsements <nation>",
	Short: "Lists the WA members of a nation's region that it has not endorsed.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		client := apiClient(cmd)
		nation := args[0]

		var region string
		var nations []string
		var err error
		if *endorsementsAPI {
			region, nations, err = endorse.UnendorsedFromAPI(ctx, client, nation)
		} else {
			region, err = client.Nation(nation).Shard(ctx, "region")
			if err != nil {
				serviceutil.Fatal("failed to get region", err)
			}
			reader := nationsDump(cmd)
			nations, err = endorse.UnendorsedFromDump(reader, nation, region)
			reader.Close()
		}
		if err != nil {
			serviceutil.Fatal("failed to find unendorsed nations", err)
		}

		header := fmt.Sprintf("%d nations in %s not endorsed by %s:", len(nations), region, nation)
		mustWriteNations(cmd.OutOrStdout(), *endorsementsFormat, header, nations)
	},
}

var endorsedCmd = &cobra.Command{
	Use:   "endorsed <nation>",
	Short: "Lists the WA members of a nation's region that do not endorse it.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		region, nations, err := endorse.Nonendorsers(cmd.Context(), apiClient(cmd), args[0])
		if err != nil {
			serviceutil.Fatal("failed to find nonendorsers", err)
		}

		out := openOutput(*endorsedOutput)
		header := fmt.Sprintf("%d nations in %s not endorsing %s:", len(nations), region, args[0])
		mustWriteNations(out, "links", header, nations)
		closeOutput(out)
	},
}

var crossCmd = &cobra.Command{
	Use:   "cross <lead>",
	Short: "For a lead and everyone endorsing it, lists the nations of that group each has not endorsed.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		g, err := endorse.CrossGraph(cmd.Context(), apiClient(cmd), args[0])
		if err != nil {
			serviceutil.Fatal("failed to build endorsement graph", err)
		}
		missing, err := g.MissingCrosses()
		if err != nil {
			serviceutil.Fatal("failed to read endorsement graph", err)
		}

		nations := make([]string, 0, len(missing))
		for nation := range missing {
			nations = append(nations, nation)
		}
		slices.Sort(nations)

		w := cmd.OutOrStdout()
		for _, nation := range nations {
			if len(missing[nation]) == 0 {
				continue
			}
			targets := make([]string, len(missing[nation]))
			for i, target := range missing[nation] {
				targets[i] = g.Spelling(target)
			}
			header := fmt.Sprintf("%s has not endorsed:", g.Spelling(nation))
			mustWriteNations(w, *crossFormat, header, targets)
			fmt.Fprintln(w)
		}
	},
}

var residentsCmd = &cobra.Command{
	Use:   "residents <region>",
	Short: "Lists the WA members of a region.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		region := args[0]

		var nations []string
		if cmd.Flags().Changed("count") {
			reader := nationsDump(cmd)
			var err error
			nations, err = endorse.LowEndorsements(reader, region, *residentsCount)
			reader.Close()
			if err != nil {
				serviceutil.Fatal("failed to read nations dump", err)
			}
		} else {
			members, err := endorse.RegionWAMembers(cmd.Context(), apiClient(cmd), region)
			if err != nil {
				serviceutil.Fatal("failed to get residents", err)
			}
			nations = members.Names()
		}

		mustWriteNations(cmd.OutOrStdout(), *residentsFormat, "", nations)
	},
}

