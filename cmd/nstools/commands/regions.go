package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"nstools/lib/nsapi"
	"nstools/lib/regions"
	"nstools/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	wfeMin    *int
	wfeFuzzy  *float64
	wapopBy   *string
	wapopTop  *int
	rmbOffset *int
	rmbCount  *int
	rmbOutput *string
)

func init() {
	wfeMin = wfeCmd.Flags().Int("min", 0, "Leave out regions with this many residents or fewer.")
	wfeFuzzy = wfeCmd.Flags().Float64("fuzzy", 0, "Also match words at least this similar (0 to 1) to a keyword.")
	wapopBy = wapopCmd.Flags().String("by", "members", "Rank by members or votes.")
	wapopTop = wapopCmd.Flags().Int("top", 20, "Show this many regions, all when 0.")
	rmbOffset = rmbCmd.Flags().Int("offset", 0, "Skip this many of the newest posts.")
	rmbCount = rmbCmd.Flags().Int("count", regions.MessagePageSize, "Number of posts to export.")
	rmbOutput = rmbCmd.Flags().StringP("output", "o", "", "Output file, stdout by default.")

	rootCmd.AddCommand(wfeCmd)
	rootCmd.AddCommand(wapopCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(tagsCmd)
	rootCmd.AddCommand(rmbCmd)
}

var wfeCmd = &cobra.Command{
	Use:   "wfe <keyword...>",
	Short: "Searches the world factbook entries of the regions dump for keywords.",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		reader := regionsDump(cmd)
		matches, err := regions.SearchFactbooks(reader, args, regions.SearchOptions{
			MinNations: *wfeMin,
			Fuzzy:      *wfeFuzzy,
		})
		reader.Close()
		if err != nil {
			serviceutil.Fatal("failed to search factbooks", err)
		}

		t := newTable()
		t.AppendHeader(table.Row{"Region", "Score", "Link"})
		for _, m := range matches {
			t.AppendRow(table.Row{m.Region, fmt.Sprintf("%.2f", m.Score), regions.Link(m.Region)})
		}
		t.AppendFooter(table.Row{"Matches", len(matches), ""})
		t.Render()
	},
}

var wapopCmd = &cobra.Command{
	Use:   "wapop",
	Short: "Ranks regions by WA members or delegate votes.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		var rankings []regions.Ranking
		var err error
		switch *wapopBy {
		case "members":
			members, merr := apiClient(cmd).WA(nsapi.GeneralAssembly).Members(cmd.Context())
			if merr != nil {
				serviceutil.Fatal("failed to get wa members", merr)
			}
			reader := regionsDump(cmd)
			rankings, err = regions.ByWAMembers(reader, members, *wapopTop)
			reader.Close()
		case "votes":
			reader := regionsDump(cmd)
			rankings, err = regions.ByDelegateVotes(reader, *wapopTop)
			reader.Close()
		default:
			serviceutil.Fatal("invalid ranking", fmt.Errorf("--by must be members or votes, got %q", *wapopBy))
		}
		if err != nil {
			serviceutil.Fatal("failed to rank regions", err)
		}

		t := newTable()
		t.AppendHeader(table.Row{"#", "Region", strings.ToUpper((*wapopBy)[:1]) + (*wapopBy)[1:]})
		for i, r := range rankings {
			t.AppendRow(table.Row{i + 1, r.Region, r.Value})
		}
		t.Render()
	},
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Reads nation names from stdin and prints a ContainerRise rule for each.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		scanner := bufio.NewScanner(os.Stdin)
		w := cmd.OutOrStdout()
		for scanner.Scan() {
			nation := strings.TrimSpace(scanner.Text())
			if nation == "" {
				continue
			}
			fmt.Fprintln(w, regions.ContainerRule(nation))
		}
		if err := scanner.Err(); err != nil {
			serviceutil.Fatal("failed to read nations", err)
		}
	},
}

var tagsCmd = &cobra.Command{
	Use:   "tags <tag...>",
	Short: "Lists the regions carrying every tag, tags prefixed with '-' exclude.",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		found, err := regions.TaggedRegions(cmd.Context(), apiClient(cmd), args...)
		if err != nil {
			serviceutil.Fatal("failed to search tags", err)
		}
		for _, region := range found {
			fmt.Fprintln(cmd.OutOrStdout(), region)
		}
	},
}

var rmbCmd = &cobra.Command{
	Use:   "rmb <region>",
	Short: "Exports posts of a regional message board as csv.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		messages, err := regions.Messages(cmd.Context(), apiClient(cmd), args[0], *rmbOffset, *rmbCount)
		if err != nil {
			serviceutil.Fatal("failed to read messages", err)
		}
		out := openOutput(*rmbOutput)
		err = regions.WriteMessages(out, messages, true)
		if err != nil {
			serviceutil.Fatal("failed to write messages", err)
		}
		closeOutput(out)
	},
}

