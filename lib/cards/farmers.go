package cards

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"nstools/lib/nsapi"
)

// Farmers returns the residents of region with any card activity, leaving
// out the nations in previous. It makes one request per resident.
func Farmers(ctx context.Context, client *nsapi.Client, region string, previous nsapi.NameSet) ([]string, error) {
	ctx, span := tracer.Start(ctx, "Farmers")
	defer span.End()

	residents, err := client.Region(region).Nations(ctx)
	if err != nil {
		return nil, fmt.Errorf("residents of %s: %w", region, err)
	}

	var out []string
	for _, nation := range residents {
		if previous.Has(nation) {
			continue
		}
		info, err := client.Nation(nation).DeckInfo(ctx)
		if err != nil {
			return nil, fmt.Errorf("deck info of %s: %w", nation, err)
		}
		if info.Active() {
			out = append(out, nation)
		}
	}
	slog.InfoContext(ctx, "collected card farmers", "region", region, "residents", len(residents), "farmers", len(out))
	return out, nil
}

const (
	nationOpen  = "[nation]"
	nationClose = "[/nation]"
)

// ParseFarmers reads a file written by WriteFarmers.
func ParseFarmers(r io.Reader) (nsapi.NameSet, error) {
	out := nsapi.NewNameSet()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.ReplaceAll(scanner.Text(), nationOpen, "")
		for _, nation := range strings.Split(line, nationClose) {
			nation = strings.TrimSpace(nation)
			if nation != "" {
				out.Add(nation)
			}
		}
	}
	return out, scanner.Err()
}

// WriteFarmers writes every nation wrapped in nation tags on a single
// line.
func WriteFarmers(w io.Writer, nations []string) error {
	bw := bufio.NewWriter(w)
	for _, nation := range nations {
		bw.WriteString(nationOpen)
		bw.WriteString(nation)
		bw.WriteString(nationClose)
	}
	bw.WriteString("\n")
	return bw.Flush()
}
