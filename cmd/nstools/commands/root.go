package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"nstools/cmd/nstools/globals"
	"nstools/lib/dump"
	"nstools/lib/nsapi"
	"nstools/lib/restyutil"
	"nstools/lib/serviceutil"
	"nstools/lib/sheet"
	"nstools/lib/telemetry"
	"nstools/lib/webclient"

	"github.com/spf13/cobra"
)

var tel telemetry.Telemetry

var rootCmd = &cobra.Command{
	Use:   "nstools",
	Short: "nstools is a collection of NationStates utilities built on the API and the daily dumps.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		telemetry.InitSlog(*verbose)

		cfg, err := loadConfig(*configPath)
		if err != nil {
			serviceutil.Fatal("failed to load config", err)
		}
		if *userAgent != "" {
			cfg.UserAgent = *userAgent
		}
		if *dumpDir != "" {
			cfg.DumpDir = *dumpDir
		}

		if *verbose {
			err = instrumentResty(".dev/resty")
			if err != nil {
				serviceutil.Fatal("failed to create resty output", err)
			}
		}

		tel, err = telemetry.SetupFromEnv(ctx, "nstools")
		if err != nil {
			serviceutil.Fatal("failed to setup telemetry", err)
		}

		cmd.SetContext(globals.Set(ctx, &globals.Value{
			UserAgent:  cfg.UserAgent,
			DumpDir:    cfg.DumpDir,
			MarkerDB:   cfg.MarkerDB,
			APIBaseURL: cfg.API.BaseURL,
			APITimeout: cfg.API.timeout(),
			Smtp:       cfg.Smtp,
			HomeRegion: cfg.HomeRegion,
		}))
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		err := globals.Get(cmd.Context()).Close()
		if err != nil {
			slog.Warn("failed to close marker store", "err", err)
		}
		err = tel.Shutdown(context.WithoutCancel(cmd.Context()))
		if err != nil {
			slog.Warn("failed to shutdown telemetry", "err", err)
		}
	},
}

var (
	configPath *string
	userAgent  *string
	dumpDir    *string
	verbose    *bool
)

func init() {
	configPath = rootCmd.PersistentFlags().String("config", "nstools.json5", "The config file, a .local variant is merged over it.")
	userAgent = rootCmd.PersistentFlags().String("user-agent", "", "Identifies you to the game's admins, usually your main nation. Overrides the config.")
	dumpDir = rootCmd.PersistentFlags().String("dump-dir", "", "Directory dumps are stored in. Overrides the config.")
	verbose = rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log debug messages and write every http exchange under .dev/resty.")
}

func instrumentResty(dir string) error {
	for name, set := range map[string]func(restyutil.InstrumentOutput){
		"nsapi":     nsapi.SetRestyInstrumentOutput,
		"dump":      dump.SetRestyInstrumentOutput,
		"sheet":     sheet.SetRestyInstrumentOutput,
		"webclient": webclient.SetRestyInstrumentOutput,
	} {
		out, err := restyutil.NewFilesystemOutput(filepath.Join(dir, name))
		if err != nil {
			return err
		}
		set(out)
	}
	return nil
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
