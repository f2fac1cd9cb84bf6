package status

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"

	"nstools/lib/nsapi"
	"nstools/lib/telemetry"
)

var tracer = telemetry.Tracer("nstools.lib.status")

// Status of a single nation. CTE nations have no region or WA status, Err
// is set when the lookup failed for any other reason.
type Status struct {
	Nation string
	CTE    bool
	Region string
	WA     string
	Err    error
}

func Lookup(ctx context.Context, client *nsapi.Client, nation string) Status {
	name := nsapi.CleanFormat(nation)
	shards, err := client.Nation(nation).Shards(ctx, "region", "wa")
	if errors.Is(err, nsapi.ErrNotFound) {
		return Status{Nation: name, CTE: true}
	}
	if err != nil {
		return Status{Nation: name, Err: err}
	}
	return Status{
		Nation: name,
		Region: shards.Text("region"),
		WA:     shards.Text("wa"),
	}
}

// Label describes how a nation relates to the home region: "CTE",
// "Resident" or "Friend", prefixed with "WA " for members.
func Label(s Status, home string) string {
	switch {
	case s.Err != nil:
		return "Error"
	case s.CTE:
		return "CTE"
	}
	label := "Friend"
	if home != "" && nsapi.CleanFormat(s.Region) == nsapi.CleanFormat(home) {
		label = "Resident"
	}
	if nsapi.IsWAStatus(s.WA) {
		label = "WA " + label
	}
	return label
}

// Columns appended to every row of a report.
var Columns = []string{"link", "cte", "region", "wa", "label"}

func (s Status) columns(home string) []string {
	link := fmt.Sprintf("%s/nation=%s", nsapi.DefaultBaseURL, s.Nation)
	if s.CTE || s.Err != nil {
		return []string{link, strconv.FormatBool(s.CTE), "", "", Label(s, home)}
	}
	return []string{link, "false", s.Region, s.WA, Label(s, home)}
}

// Report looks up the nation of every row of a table, the first row is a
// header with a "nation" column. The status columns are appended to each
// row. Failed lookups are logged and labelled, they do not stop the
// report.
func Report(ctx context.Context, client *nsapi.Client, table [][]string, home string) ([][]string, error) {
	ctx, span := tracer.Start(ctx, "Report")
	defer span.End()

	if len(table) == 0 {
		return nil, fmt.Errorf("the table is empty")
	}
	header := table[0]
	index := slices.Index(header, "nation")
	if index < 0 {
		return nil, fmt.Errorf("the header has no nation column: %v", header)
	}

	out := make([][]string, 0, len(table))
	out = append(out, append(slices.Clone(header), Columns...))
	for _, row := range table[1:] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if index >= len(row) || row[index] == "" {
			out = append(out, slices.Clone(row))
			continue
		}
		status := Lookup(ctx, client, row[index])
		if status.Err != nil {
			slog.WarnContext(ctx, "status lookup failed", "nation", row[index], "err", status.Err)
		}
		out = append(out, append(slices.Clone(row), status.columns(home)...))
	}
	return out, nil
}

// WriteTSV writes rows as tab separated values.
func WriteTSV(w io.Writer, rows [][]string) error {
	out := csv.NewWriter(w)
	out.Comma = '\t'
	err := out.WriteAll(rows)
	if err != nil {
		return err
	}
	return out.Error()
}
