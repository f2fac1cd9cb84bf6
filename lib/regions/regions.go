package regions

import (
	"cmp"
	"context"
	"fmt"
	"regexp"
	"slices"

	"nstools/lib/nsapi"
	"nstools/lib/telemetry"
	"nstools/lib/textutil"
)

var tracer = telemetry.Tracer("nstools.lib.regions")

// RegionSource is a sequence of dump records, a *dump.Reader satisfies it.
type RegionSource interface {
	Next() bool
	Record() nsapi.RegionStandard
	Err() error
}

func Link(region string) string {
	return fmt.Sprintf("%s/region=%s", nsapi.DefaultBaseURL, nsapi.CleanFormat(region))
}

type SearchOptions struct {
	// MinNations excludes regions with this many residents or fewer.
	MinNations int
	// Fuzzy, when above zero, also matches factbook words whose
	// Jaro-Winkler similarity to a keyword reaches it.
	Fuzzy float64
}

// Match is a region whose factbook matched a search. Score is 1 for exact
// matches.
type Match struct {
	Region string
	Score  float64
}

// SearchFactbooks returns the regions whose factbook contains any of the
// keywords, in dump order.
func SearchFactbooks(source RegionSource, keywords []string, opts SearchOptions) ([]Match, error) {
	var out []Match
	for source.Next() {
		region := source.Record()
		if region.NumNations <= opts.MinNations {
			continue
		}
		if textutil.ContainsAny(region.Factbook, keywords) {
			out = append(out, Match{Region: region.Name, Score: 1})
			continue
		}
		if opts.Fuzzy <= 0 {
			continue
		}
		words := textutil.Words(region.Factbook)
		var best float64
		for _, k := range keywords {
			best = max(best, textutil.Similarity(words, k))
		}
		if best >= opts.Fuzzy {
			out = append(out, Match{Region: region.Name, Score: best})
		}
	}
	return out, source.Err()
}

// Ranking is a region and the value it is ranked by.
type Ranking struct {
	Region string
	Value  int
}

func rank(rankings []Ranking, top int) []Ranking {
	slices.SortStableFunc(rankings, func(a, b Ranking) int {
		return cmp.Compare(b.Value, a.Value)
	})
	if top > 0 && len(rankings) > top {
		rankings = rankings[:top]
	}
	return rankings
}

// ByWAMembers ranks regions by the number of WA members residing in them.
func ByWAMembers(source RegionSource, members []string, top int) ([]Ranking, error) {
	wa := nsapi.NewNameSet(members...)
	var out []Ranking
	for source.Next() {
		region := source.Record()
		count := 0
		for _, nation := range region.Nations {
			if wa.Has(nation) {
				count++
			}
		}
		out = append(out, Ranking{Region: region.Name, Value: count})
	}
	if err := source.Err(); err != nil {
		return nil, err
	}
	return rank(out, top), nil
}

// ByDelegateVotes ranks regions by the votes of their delegate.
func ByDelegateVotes(source RegionSource, top int) ([]Ranking, error) {
	var out []Ranking
	for source.Next() {
		region := source.Record()
		out = append(out, Ranking{Region: region.Name, Value: region.DelegateVotes})
	}
	if err := source.Err(); err != nil {
		return nil, err
	}
	return rank(out, top), nil
}

// TaggedRegions returns the regions carrying all of the tags. Tags
// prefixed with "-" exclude regions instead.
func TaggedRegions(ctx context.Context, client *nsapi.Client, tags ...string) ([]string, error) {
	ctx, span := tracer.Start(ctx, "TaggedRegions")
	defer span.End()

	if len(tags) == 0 {
		return nil, fmt.Errorf("at least one tag is required")
	}
	return client.World().RegionsByTag(ctx, tags...)
}

// ContainerRule returns a ContainerRise rule that opens the pages of a
// nation in a container named after it.
func ContainerRule(nation string) string {
	clean := regexp.QuoteMeta(nsapi.CleanFormat(nation))
	return fmt.Sprintf(`@^.*\.nationstates\.net/(.*/)?nation=%s(/.*)?$ , %s`, clean, nation)
}
