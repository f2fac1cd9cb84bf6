package endorse

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"nstools/lib/nsapi"
	"nstools/lib/telemetry"
)

var tracer = telemetry.Tracer("nstools.lib.endorse")

// NationSource is a sequence of dump records, a *dump.Reader satisfies it.
type NationSource interface {
	Next() bool
	Record() nsapi.NationStandard
	Err() error
}

func sorted(set nsapi.NameSet) []string {
	return set.Names()
}

func sameRegion(a, b string) bool {
	return nsapi.CleanFormat(a) == nsapi.CleanFormat(b)
}

// UnendorsedFromDump returns the WA members of region that endorser has not
// endorsed, read from a nations dump. The endorser itself is left out.
func UnendorsedFromDump(source NationSource, endorser, region string) ([]string, error) {
	out := nsapi.NewNameSet()
	for source.Next() {
		nation := source.Record()
		if !sameRegion(nation.Region, region) || !nation.IsWAMember() {
			continue
		}
		if nsapi.SameNation(nation.Name, endorser) {
			continue
		}
		if nsapi.NewNameSet(nation.Endorsements...).Has(endorser) {
			continue
		}
		out.Add(nation.Name)
	}
	if err := source.Err(); err != nil {
		return nil, err
	}
	return sorted(out), nil
}

// RegionWAMembers returns the WA members residing in region.
func RegionWAMembers(ctx context.Context, client *nsapi.Client, region string) (nsapi.NameSet, error) {
	members, err := client.WA(nsapi.GeneralAssembly).Members(ctx)
	if err != nil {
		return nil, fmt.Errorf("wa members: %w", err)
	}
	residents, err := client.Region(region).Nations(ctx)
	if err != nil {
		return nil, fmt.Errorf("region nations: %w", err)
	}
	return nsapi.NewNameSet(residents...).Intersect(nsapi.NewNameSet(members...)), nil
}

// UnendorsedFromAPI answers the same question as UnendorsedFromDump with
// live data. It makes one request per candidate, so it is only suitable
// for small regions.
func UnendorsedFromAPI(ctx context.Context, client *nsapi.Client, endorser string) (string, []string, error) {
	ctx, span := tracer.Start(ctx, "UnendorsedFromAPI")
	defer span.End()

	info, err := client.Nation(endorser).Shards(ctx, "region", "endorsements")
	if err != nil {
		return "", nil, err
	}
	region := info.Text("region")

	citizens, err := RegionWAMembers(ctx, client, region)
	if err != nil {
		return "", nil, err
	}
	citizens.Remove(endorser)

	out := nsapi.NewNameSet()
	for _, nation := range sorted(citizens) {
		endorsements, err := client.Nation(nation).Endorsements(ctx)
		if err != nil {
			return "", nil, fmt.Errorf("endorsements of %s: %w", nation, err)
		}
		if !nsapi.NewNameSet(endorsements...).Has(endorser) {
			out.Add(nation)
		}
	}
	return region, sorted(out), nil
}

// Nonendorsers returns the WA members of target's region that do not
// endorse target.
func Nonendorsers(ctx context.Context, client *nsapi.Client, target string) (string, []string, error) {
	info, err := client.Nation(target).Shards(ctx, "region", "endorsements")
	if err != nil {
		return "", nil, err
	}
	region := info.Text("region")
	endorsers := nsapi.NewNameSet(nsapi.SplitList(info.Text("endorsements"), ",")...)

	citizens, err := RegionWAMembers(ctx, client, region)
	if err != nil {
		return "", nil, err
	}
	citizens.Remove(target)
	return region, sorted(citizens.Difference(endorsers)), nil
}

// LowEndorsements returns the WA members of region holding at most count
// endorsements, read from a nations dump.
func LowEndorsements(source NationSource, region string, count int) ([]string, error) {
	var out []string
	for source.Next() {
		nation := source.Record()
		if !sameRegion(nation.Region, region) || !nation.IsWAMember() {
			continue
		}
		if len(nation.Endorsements) <= count {
			out = append(out, nation.Name)
		}
	}
	if err := source.Err(); err != nil {
		return nil, err
	}
	slog.Debug("collected low endorsement nations", "region", region, "count", len(out))
	return out, nil
}

// NationLink returns the page of a nation.
func NationLink(nation string) string {
	return fmt.Sprintf("%s/nation=%s", nsapi.DefaultBaseURL, nsapi.CleanFormat(nation))
}

// FormatLinks renders a header followed by a numbered list of nation
// links.
func FormatLinks(header string, nations []string) string {
	var out strings.Builder
	if header != "" {
		out.WriteString(header)
		out.WriteString("\n")
	}
	for i, nation := range nations {
		fmt.Fprintf(&out, "%d. %s\n", i+1, NationLink(nation))
	}
	return out.String()
}
