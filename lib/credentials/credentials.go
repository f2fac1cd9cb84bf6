package credentials

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"nstools/lib/nsapi"
	"nstools/lib/telemetry"

	"go.opentelemetry.io/otel/attribute"
)

var tracer = telemetry.Tracer("nstools.lib.credentials")

// Entry is one line of a credentials file. Secret is a password or an
// autologin key depending on how the file is used.
type Entry struct {
	Nation string
	Secret string
}

// Parse reads "nation,secret" lines. Blank lines and lines without a comma
// are ignored, the secret is everything after the first comma.
func Parse(r io.Reader) ([]Entry, error) {
	var out []Entry
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		nation, secret, ok := strings.Cut(line, ",")
		if !ok {
			continue
		}
		nation = strings.TrimSpace(nation)
		if nation == "" || secret == "" {
			continue
		}
		out = append(out, Entry{Nation: nation, Secret: secret})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	return out, nil
}

// Result is the outcome of logging a single nation in. Err is set when the
// login failed, the other fields are then empty.
type Result struct {
	Nation    string
	Autologin string
	Region    string
	WA        bool
	Err       error
}

func (r Result) OK() bool {
	return r.Err == nil
}

// Login authenticates a single nation, retrieving its region and WA status
// along the way.
func Login(ctx context.Context, client *nsapi.Client, entry Entry, plaintext bool) Result {
	auth := nsapi.NewAutologinAuth(entry.Secret)
	if plaintext {
		auth = nsapi.NewPasswordAuth(entry.Secret)
	}
	nation := client.PrivateNation(entry.Nation, auth)

	shards, err := nation.Shards(ctx, "region", "ping", "wa")
	if err != nil {
		return Result{Nation: entry.Nation, Err: err}
	}
	autologin, err := nation.Autologin(ctx)
	if err != nil {
		return Result{Nation: entry.Nation, Err: err}
	}
	return Result{
		Nation:    entry.Nation,
		Autologin: autologin,
		Region:    shards.Text("region"),
		WA:        nsapi.IsWAStatus(shards.Text("wa")),
	}
}

// LoginAll logs every entry in. A failed login is recorded in its result
// and does not stop the others, only a cancelled context does.
func LoginAll(ctx context.Context, client *nsapi.Client, entries []Entry, plaintext bool) ([]Result, error) {
	ctx, span := tracer.Start(ctx, "LoginAll")
	defer span.End()
	span.SetAttributes(attribute.Int("nations", len(entries)))

	out := make([]Result, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		result := Login(ctx, client, entry, plaintext)
		if !result.OK() {
			if errors.Is(result.Err, context.Canceled) {
				return out, result.Err
			}
			slog.WarnContext(ctx, "login failed", "nation", entry.Nation, "err", result.Err)
		}
		out = append(out, result)
	}
	return out, nil
}

// WriteAutologins writes "nation,autologin" lines for every successful
// login.
func WriteAutologins(w io.Writer, results []Result) error {
	bw := bufio.NewWriter(w)
	for _, result := range results {
		if !result.OK() {
			continue
		}
		_, err := fmt.Fprintf(bw, "%s,%s\n", result.Nation, result.Autologin)
		if err != nil {
			return err
		}
	}
	return bw.Flush()
}
