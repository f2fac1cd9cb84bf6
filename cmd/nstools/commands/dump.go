package commands

import (
	"fmt"
	"log/slog"
	"time"

	"nstools/cmd/nstools/globals"
	"nstools/lib/dump"
	"nstools/lib/serviceutil"
	"nstools/lib/telemetry"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	dumpDate       *string
	dumpSeason     *int
	dumpFetchForce *bool
	dumpScanFile   *string
)

func init() {
	dumpDate = dumpCmd.PersistentFlags().String("date", "", "YYYY-MM-DD of an archived dump, the current daily dump when empty.")
	dumpSeason = dumpCmd.PersistentFlags().Int("season", 0, "Card list season, required for the cards kind.")
	dumpFetchForce = dumpFetchCmd.Flags().Bool("force", false, "Download even when the stored copy is current.")
	dumpScanFile = dumpScanCmd.Flags().String("file", "", "Scan this path or url instead of the managed dump.")

	dumpCmd.AddCommand(dumpFetchCmd)
	dumpCmd.AddCommand(dumpScanCmd)
	dumpCmd.AddCommand(dumpMarkersCmd)
	rootCmd.AddCommand(dumpCmd)
}

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Manages the daily, archived and card dumps.",
}

// resource resolves the kind argument and the --date and --season flags.
func resource(kind string) dump.Resource {
	if kind == "cards" {
		if *dumpSeason == 0 {
			serviceutil.Fatal("--season is required for card lists", nil)
		}
		return dump.CardList(*dumpSeason)
	}
	if *dumpDate != "" {
		date, err := time.Parse(time.DateOnly, *dumpDate)
		if err != nil {
			serviceutil.Fatal("invalid date", err)
		}
		if kind != dump.KindNations && kind != dump.KindRegions {
			serviceutil.Fatal("unknown dump kind", fmt.Errorf("expected nations, regions or cards, got %q", kind))
		}
		return dump.Archived(date, kind)
	}
	res, err := dump.Daily(kind)
	if err != nil {
		serviceutil.Fatal("unknown dump kind", err)
	}
	return res
}

var dumpFetchCmd = &cobra.Command{
	Use:   "fetch <nations|regions|cards>",
	Short: "Downloads a dump when it is missing or outdated.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		res := resource(args[0])
		manager := dumpManager(cmd)

		var err error
		if *dumpFetchForce {
			_, err = manager.Download(cmd.Context(), res)
		} else {
			err = manager.Update(cmd.Context(), res)
		}
		if err != nil {
			serviceutil.Fatal("failed to fetch dump", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), manager.Path(res))
	},
}

type scanResult struct {
	read    int
	skipped int
}

func scan[T any](reader *dump.Reader[T]) (scanResult, error) {
	defer reader.Close()
	for reader.Next() {
	}
	return scanResult{read: reader.Read(), skipped: reader.Skipped()}, reader.Err()
}

var dumpScanCmd = &cobra.Command{
	Use:   "scan <nations|regions|cards>",
	Short: "Reads every record of a dump, reporting skipped records and memory use.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		telemetry.InstrumentPerfStats(ctx)

		kind := args[0]
		opts := dump.DumpOptions{
			Location: *dumpScanFile,
			OnSkip: func(err *dump.RecordError) {
				slog.WarnContext(ctx, "skipped record", "err", err)
			},
		}
		if *dumpDate != "" {
			date, err := time.Parse(time.DateOnly, *dumpDate)
			if err != nil {
				serviceutil.Fatal("invalid date", err)
			}
			opts.Date = date
		}

		manager := dumpManager(cmd)
		started := time.Now()
		var result scanResult
		switch kind {
		case dump.KindNations:
			reader, err := manager.Nations(ctx, opts)
			if err != nil {
				serviceutil.Fatal("failed to open dump", err)
			}
			result, err = scan(reader)
			if err != nil {
				serviceutil.Fatal("failed to read dump", err)
			}
		case dump.KindRegions:
			reader, err := manager.Regions(ctx, opts)
			if err != nil {
				serviceutil.Fatal("failed to open dump", err)
			}
			result, err = scan(reader)
			if err != nil {
				serviceutil.Fatal("failed to read dump", err)
			}
		case "cards":
			if *dumpSeason == 0 {
				serviceutil.Fatal("--season is required for card lists", nil)
			}
			reader, err := manager.Cards(ctx, *dumpSeason, opts)
			if err != nil {
				serviceutil.Fatal("failed to open dump", err)
			}
			result, err = scan(reader)
			if err != nil {
				serviceutil.Fatal("failed to read dump", err)
			}
		default:
			serviceutil.Fatal("unknown dump kind", fmt.Errorf("expected nations, regions or cards, got %q", kind))
		}

		stats := telemetry.ReadPerfStats(0)
		t := newTable()
		t.AppendRows([]table.Row{
			{"Records", result.read},
			{"Skipped", result.skipped},
			{"Duration", time.Since(started).Round(time.Millisecond)},
			{"Heap in use (MB)", stats.HeapInuse / 1_000_000},
			{"CPU", fmt.Sprintf("%.1f%%", stats.CPUPercent)},
		})
		t.Render()
	},
}

var dumpMarkersCmd = &cobra.Command{
	Use:   "markers",
	Short: "Lists when every managed resource was last retrieved.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		markers, err := globals.Get(cmd.Context()).Markers(cmd.Context())
		if err != nil {
			serviceutil.Fatal("failed to open marker store", err)
		}
		list, err := markers.List(cmd.Context())
		if err != nil {
			serviceutil.Fatal("failed to list markers", err)
		}

		t := newTable()
		t.AppendHeader(table.Row{"Name", "Retrieved", "Size", "Source"})
		for _, m := range list {
			t.AppendRow(table.Row{m.Name, m.RetrievedAt.Format(time.RFC3339), m.Size, m.Source})
		}
		t.Render()
	},
}
