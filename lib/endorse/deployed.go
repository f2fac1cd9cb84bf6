package endorse

import (
	"context"
	"fmt"
	"io"
	"strings"

	"nstools/lib/nsapi"

	"github.com/titanous/json5"
)

// Roster maps the main nation of every member to their other nations.
type Roster map[string][]string

// ParseRoster reads a roster as a json object.
func ParseRoster(r io.Reader) (Roster, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var out Roster
	err = json5.Unmarshal(body, &out)
	if err != nil {
		return nil, fmt.Errorf("decode roster: %w", err)
	}
	return out, nil
}

// owners maps every clean nation name of the roster to its member.
func (r Roster) owners() map[string]string {
	out := map[string]string{}
	for main, nations := range r {
		for _, nation := range nations {
			out[nsapi.CleanFormat(nation)] = main
		}
	}
	for main := range r {
		out[nsapi.CleanFormat(main)] = main
	}
	return out
}

// Deployment is the members with a nation endorsing a lead.
type Deployment struct {
	Lead    string
	Members []string
}

func (d Deployment) String() string {
	return fmt.Sprintf("%s (%d): %s", d.Lead, len(d.Members), strings.Join(d.Members, ", "))
}

// Deployments finds, for every lead, the members endorsing it with any of
// their nations. Members are listed once, in endorsement order.
func Deployments(ctx context.Context, client *nsapi.Client, leads []string, roster Roster) ([]Deployment, error) {
	ctx, span := tracer.Start(ctx, "Deployments")
	defer span.End()

	owners := roster.owners()
	out := make([]Deployment, 0, len(leads))
	for _, lead := range leads {
		endorsers, err := client.Nation(lead).Endorsements(ctx)
		if err != nil {
			return nil, fmt.Errorf("endorsements of %s: %w", lead, err)
		}
		var members nsapi.NameList
		for _, endorser := range endorsers {
			if owner, ok := owners[nsapi.CleanFormat(endorser)]; ok {
				members.Add(owner)
			}
		}
		out = append(out, Deployment{Lead: lead, Members: members.Names()})
	}
	return out, nil
}
