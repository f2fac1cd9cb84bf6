package search

import (
	"context"
	"fmt"
	"io"
	"strings"

	"nstools/lib/nsapi"
)

// TaggedRegions returns the regions matching every tag, a tag prefixed
// with "-" excludes regions carrying it. Regions in exclude are left out.
func TaggedRegions(ctx context.Context, client *nsapi.Client, exclude []string, tags ...string) ([]string, error) {
	regions, err := client.World().RegionsByTag(ctx, tags...)
	if err != nil {
		return nil, fmt.Errorf("regions by tag: %w", err)
	}
	skip := nsapi.NewNameSet(exclude...)
	out := make([]string, 0, len(regions))
	for _, region := range regions {
		if !skip.Has(region) {
			out = append(out, region)
		}
	}
	return out, nil
}

// Residents lists the residents of a set of regions.
type Residents struct {
	Region  string
	Nations []string
}

// RegionResidents reads the residents of the given regions from a regions
// dump, in dump order. Regions missing from the dump are left out.
func RegionResidents(source RegionSource, regions []string) ([]Residents, error) {
	wanted := nsapi.NewNameSet(regions...)
	var out []Residents
	for source.Next() {
		region := source.Record()
		if !wanted.Has(region.Name) {
			continue
		}
		out = append(out, Residents{Region: region.Name, Nations: region.Nations})
	}
	if err := source.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// WriteAnnouncement writes one line per region, the region name followed
// by its residents in nation tags.
func WriteAnnouncement(w io.Writer, residents []Residents) error {
	var out strings.Builder
	for _, r := range residents {
		out.WriteString(r.Region)
		out.WriteString(":")
		for _, nation := range r.Nations {
			out.WriteString("[nation]")
			out.WriteString(nsapi.CleanFormat(nation))
			out.WriteString("[/nation]")
		}
		out.WriteString("\n")
	}
	_, err := io.WriteString(w, out.String())
	return err
}
