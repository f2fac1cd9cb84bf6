package search

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"nstools/lib/nsapi"
	"nstools/lib/telemetry"

	"go.opentelemetry.io/otel/attribute"
)

var tracer = telemetry.Tracer("nstools.lib.search")

// Ending is a nation that ceased to exist and the region it was in.
type Ending struct {
	Nation string
	Region string
}

// DefaultWindow is how far back Endings looks when no start is given.
const DefaultWindow = 24 * time.Hour

var (
	nationMention = regexp.MustCompile(`@@(.+?)@@`)
	regionMention = regexp.MustCompile(`%%(.+?)%%`)
)

// parseEnding extracts the nation and region named in a cte happening.
func parseEnding(text string) (Ending, bool) {
	nation := nationMention.FindStringSubmatch(text)
	region := regionMention.FindStringSubmatch(text)
	if nation == nil || region == nil {
		return Ending{}, false
	}
	return Ending{Nation: nation[1], Region: region[1]}, true
}

// Endings returns the nations that ceased to exist between since and
// before, newest first. A zero before means now, a zero since means
// DefaultWindow before that.
func Endings(ctx context.Context, client *nsapi.Client, since, before time.Time) ([]Ending, error) {
	ctx, span := tracer.Start(ctx, "Endings")
	defer span.End()

	if before.IsZero() {
		before = time.Now()
	}
	if since.IsZero() {
		since = before.Add(-DefaultWindow)
	}
	span.SetAttributes(attribute.Int64("since", since.Unix()), attribute.Int64("before", before.Unix()))

	happenings, err := client.World().Happenings(ctx, nsapi.HappeningsQuery{
		Filter:     []string{"cte"},
		SinceTime:  since.Unix(),
		BeforeTime: before.Unix(),
	})
	if err != nil {
		return nil, fmt.Errorf("cte happenings: %w", err)
	}

	out := make([]Ending, 0, len(happenings))
	for _, happening := range happenings {
		ending, ok := parseEnding(happening.Text)
		if !ok {
			slog.WarnContext(ctx, "cte happening without nation or region", "id", happening.ID, "text", happening.Text)
			continue
		}
		out = append(out, ending)
	}
	return out, nil
}

// RegionSource is a sequence of region dump records.
type RegionSource interface {
	Next() bool
	Record() nsapi.RegionStandard
	Err() error
}

// FounderEndings keeps the endings of nations that founded a region,
// found by reading a regions dump. Founders are reported in the order
// their regions appear in the dump.
func FounderEndings(endings []Ending, regions RegionSource) ([]Ending, error) {
	byNation := make(map[string]Ending, len(endings))
	for _, ending := range endings {
		byNation[nsapi.CleanFormat(ending.Nation)] = ending
	}

	var out []Ending
	for regions.Next() {
		founder := nsapi.CleanFormat(regions.Record().Founder)
		if founder == "" {
			continue
		}
		if ending, ok := byNation[founder]; ok {
			out = append(out, ending)
		}
	}
	if err := regions.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
