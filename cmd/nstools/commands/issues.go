package commands

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"

	"nstools/cmd/nstools/globals"
	"nstools/lib/dump"
	"nstools/lib/issues"
	"nstools/lib/notify"
	"nstools/lib/nsapi"
	"nstools/lib/osutil"
	"nstools/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	issuesSource          *string
	issuesForums          *string
	issuesOutput          *string
	issuesReport          *string
	issuesWage            *int
	issuesCurrency        *string
	issuesBanner          *string
	issuesEmail           *bool
	issuesDatesMonth      *string
	issuesAnswerAutologin *string
	issuesAnswerOption    *int
)

func init() {
	issuesSource = issuesCountCmd.PersistentFlags().String("source", "", "File or sheet url listing 'puppet<TAB>master' rows.")
	issuesForums = issuesCountCmd.PersistentFlags().String("forums", "", "File or sheet url listing 'master<TAB>forum username' rows.")
	issuesOutput = issuesCountCmd.PersistentFlags().StringP("output", "o", "", "Write 'master,count' lines here, stdout by default.")
	issuesReport = issuesCountCmd.PersistentFlags().String("report", "", "Directory to write a BBCode payout report to.")
	issuesWage = issuesCountCmd.PersistentFlags().Int("wage", 1, "Payout per issue answered.")
	issuesCurrency = issuesCountCmd.PersistentFlags().String("currency", "", "BBCode shown after every payout amount.")
	issuesBanner = issuesCountCmd.PersistentFlags().String("banner", "", "Image url shown above the report.")
	issuesEmail = issuesCountCmd.PersistentFlags().Bool("email", false, "Mail the report to the configured recipients.")
	issuesDatesMonth = issuesDatesCmd.Flags().String("month", "", "YYYY-MM the report is labelled with, the month of the end date by default.")
	issuesAnswerAutologin = issuesAnswerCmd.Flags().String("autologin", "", "Autologin key of the nation, prompted for when empty.")
	issuesAnswerOption = issuesAnswerCmd.Flags().Int("option", -1, "Answer with this option (counting from 0), a random one when negative.")

	issuesCountCmd.AddCommand(issuesDatesCmd)
	issuesCountCmd.AddCommand(issuesMonthCmd)
	issuesCmd.AddCommand(issuesCountCmd)
	issuesCmd.AddCommand(issuesAnswerCmd)
	rootCmd.AddCommand(issuesCmd)
}

var issuesCmd = &cobra.Command{
	Use:   "issues",
	Short: "Issue counting and answering.",
}

var issuesCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Counts the issues answered by puppets between two archived dumps, per puppetmaster.",
}

var issuesDatesCmd = &cobra.Command{
	Use:   "dates <start> <end>",
	Short: "Counts between the dumps of two YYYY-MM-DD dates.",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		period, err := issues.DatesPeriod(args[0], args[1], *issuesDatesMonth)
		if err != nil {
			serviceutil.Fatal("invalid period", err)
		}
		countIssues(cmd, period)
	},
}

var issuesMonthCmd = &cobra.Command{
	Use:   "month <YYYY-MM>",
	Short: "Counts across a month, from the last day of the previous month to its last day.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		period, err := issues.MonthPeriod(args[0])
		if err != nil {
			serviceutil.Fatal("invalid month", err)
		}
		countIssues(cmd, period)
	},
}

func countIssues(cmd *cobra.Command, period issues.Period) {
	ctx := cmd.Context()
	value := globals.Get(ctx)
	if *issuesSource == "" {
		serviceutil.Fatal("--source is required", nil)
	}

	rows, err := value.Sheets().Rows(ctx, *issuesSource)
	if err != nil {
		serviceutil.Fatal("failed to read puppets", err)
	}
	puppets := issues.PuppetsFromRows(rows)
	slog.InfoContext(ctx, "counting issues",
		"start", period.Start.Format("2006-01-02"),
		"end", period.End.Format("2006-01-02"),
		"puppets", len(puppets.Nations()),
	)

	manager := dumpManager(cmd)
	start, err := manager.Nations(ctx, dump.DumpOptions{Date: period.Start})
	if err != nil {
		serviceutil.Fatal("failed to open start dump", err)
	}
	defer start.Close()
	end, err := manager.Nations(ctx, dump.DumpOptions{Date: period.End})
	if err != nil {
		serviceutil.Fatal("failed to open end dump", err)
	}
	defer end.Close()

	delta, invalid, err := issues.CountChange(start, end, puppets.Nations())
	if err != nil {
		serviceutil.Fatal("failed to count issues", err)
	}
	for _, nation := range invalid {
		fmt.Fprintf(os.Stderr, "%s no longer exists\n", nation)
	}
	counts := issues.Collect(puppets, delta)

	out := openOutput(*issuesOutput)
	err = issues.WriteCounts(out, counts)
	if err != nil {
		serviceutil.Fatal("failed to write counts", err)
	}
	closeOutput(out)

	if *issuesReport == "" && !*issuesEmail {
		return
	}

	opts := issues.ReportOptions{
		Wage:     *issuesWage,
		Currency: *issuesCurrency,
		Banner:   *issuesBanner,
	}
	if *issuesForums != "" {
		rows, err := value.Sheets().Rows(ctx, *issuesForums)
		if err != nil {
			serviceutil.Fatal("failed to read forum names", err)
		}
		opts.ForumNames = issues.ForumNamesFromRows(rows)
	}
	report := issues.Report(period, counts, opts)
	name := issues.ReportPath(period)

	if *issuesReport != "" {
		err = os.MkdirAll(*issuesReport, 0777)
		if err != nil {
			serviceutil.Fatal("failed to create report directory", err)
		}
		path := filepath.Join(*issuesReport, name)
		err = os.WriteFile(path, []byte(report), 0666)
		if err != nil {
			serviceutil.Fatal("failed to write report", err)
		}
		slog.InfoContext(ctx, "wrote report", "path", path)
	}

	if *issuesEmail {
		subject := fmt.Sprintf("Issue payout report %s", period.Month.Format("January 2006"))
		err = notify.NewMailer(value.Smtp).Send(ctx, subject, report, notify.Attachment{
			Name:    name,
			Content: []byte(report),
		})
		if err != nil {
			serviceutil.Fatal("failed to mail report", err)
		}
		slog.InfoContext(ctx, "mailed report", "to", value.Smtp.To)
	}
}

var issuesAnswerCmd = &cobra.Command{
	Use:   "answer <nation>",
	Short: "Answers every open issue of a nation.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		key := *issuesAnswerAutologin
		if key == "" {
			var err error
			key, err = osutil.StdPrompter().Password("Autologin key: ")
			if err != nil {
				serviceutil.Fatal("failed to read autologin key", err)
			}
		}

		choose := issues.RandomOption(rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())))
		if *issuesAnswerOption >= 0 {
			choose = issues.FixedOption(*issuesAnswerOption)
		}

		nation := apiClient(cmd).PrivateNation(args[0], nsapi.NewAutologinAuth(key))
		results, err := issues.AnswerAll(cmd.Context(), nation, choose)

		t := newTable()
		t.AppendHeader(table.Row{"Issue", "Option", "Result"})
		for _, r := range results {
			outcome := r.Desc
			if !r.OK {
				outcome = r.Error
			}
			t.AppendRow(table.Row{r.Issue, r.Option, outcome})
		}
		t.Render()

		if err != nil {
			serviceutil.Fatal("failed to answer issues", err)
		}
	},
}

