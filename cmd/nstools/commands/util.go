package commands

import (
	"io"
	"os"

	"nstools/cmd/nstools/globals"
	"nstools/lib/dump"
	"nstools/lib/nsapi"
	"nstools/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

func apiClient(cmd *cobra.Command) *nsapi.Client {
	client, err := globals.Get(cmd.Context()).API()
	if err != nil {
		serviceutil.Fatal("failed to create api client", err)
	}
	return client
}

func dumpManager(cmd *cobra.Command) *dump.Manager {
	manager, err := globals.Get(cmd.Context()).Dumps(cmd.Context())
	if err != nil {
		serviceutil.Fatal("failed to create dump manager", err)
	}
	return manager
}

func nationsDump(cmd *cobra.Command) *dump.Reader[nsapi.NationStandard] {
	reader, err := dumpManager(cmd).Nations(cmd.Context(), dump.DumpOptions{})
	if err != nil {
		serviceutil.Fatal("failed to open nations dump", err)
	}
	return reader
}

func regionsDump(cmd *cobra.Command) *dump.Reader[nsapi.RegionStandard] {
	reader, err := dumpManager(cmd).Regions(cmd.Context(), dump.DumpOptions{})
	if err != nil {
		serviceutil.Fatal("failed to open regions dump", err)
	}
	return reader
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

// openOutput creates path, or returns stdout when path is empty or "-".
func openOutput(path string) io.WriteCloser {
	if path == "" || path == "-" {
		return nopCloser{os.Stdout}
	}
	f, err := os.Create(path)
	if err != nil {
		serviceutil.Fatal("failed to create output file", err)
	}
	return f
}

// openInput opens the first argument, or returns stdin without one.
func openInput(args []string) io.ReadCloser {
	if len(args) == 0 || args[0] == "-" {
		return io.NopCloser(os.Stdin)
	}
	f, err := os.Open(args[0])
	if err != nil {
		serviceutil.Fatal("failed to open input file", err)
	}
	return f
}

func closeOutput(out io.Closer) {
	err := out.Close()
	if err != nil {
		serviceutil.Fatal("failed to write output", err)
	}
}
