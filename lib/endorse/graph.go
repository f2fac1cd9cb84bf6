package endorse

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"nstools/lib/nsapi"

	"github.com/dominikbraun/graph"
)

// Graph is a directed endorsement graph keyed by clean nation names, an
// edge a -> b means a endorses b. The first spelling of every nation is
// kept as a vertex attribute.
type Graph struct {
	g graph.Graph[string, string]
}

func NewGraph() *Graph {
	return &Graph{g: graph.New(graph.StringHash, graph.Directed())}
}

const nameAttribute = "name"

func (g *Graph) AddNation(nation string) error {
	err := g.g.AddVertex(nsapi.CleanFormat(nation), graph.VertexAttribute(nameAttribute, nation))
	if errors.Is(err, graph.ErrVertexAlreadyExists) {
		return nil
	}
	return err
}

// AddEndorsement records that endorser endorses endorsee. Both must have
// been added.
func (g *Graph) AddEndorsement(endorser, endorsee string) error {
	err := g.g.AddEdge(nsapi.CleanFormat(endorser), nsapi.CleanFormat(endorsee))
	if errors.Is(err, graph.ErrEdgeAlreadyExists) {
		return nil
	}
	return err
}

func (g *Graph) Endorses(endorser, endorsee string) bool {
	_, err := g.g.Edge(nsapi.CleanFormat(endorser), nsapi.CleanFormat(endorsee))
	return err == nil
}

// Spelling returns the name a nation was first added under, or its clean
// name when it is not in the graph.
func (g *Graph) Spelling(nation string) string {
	key := nsapi.CleanFormat(nation)
	_, props, err := g.g.VertexWithProperties(key)
	if err != nil {
		return key
	}
	if name := props.Attributes[nameAttribute]; name != "" {
		return name
	}
	return key
}

// Nations returns the clean names of every nation in the graph.
func (g *Graph) Nations() ([]string, error) {
	adjacency, err := g.g.AdjacencyMap()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(adjacency))
	for nation := range adjacency {
		out = append(out, nation)
	}
	slices.Sort(out)
	return out, nil
}

// Endorsees returns who each nation endorses.
func (g *Graph) Endorsees() (map[string][]string, error) {
	adjacency, err := g.g.AdjacencyMap()
	if err != nil {
		return nil, err
	}
	out := make(map[string][]string, len(adjacency))
	for nation, edges := range adjacency {
		endorsees := make([]string, 0, len(edges))
		for target := range edges {
			endorsees = append(endorsees, target)
		}
		slices.Sort(endorsees)
		out[nation] = endorsees
	}
	return out, nil
}

// MissingCrosses returns, for every nation in the graph, the other nations
// it has not endorsed.
func (g *Graph) MissingCrosses() (map[string][]string, error) {
	nations, err := g.Nations()
	if err != nil {
		return nil, err
	}
	adjacency, err := g.g.AdjacencyMap()
	if err != nil {
		return nil, err
	}

	out := make(map[string][]string, len(nations))
	for _, nation := range nations {
		missing := []string{}
		for _, other := range nations {
			if other == nation {
				continue
			}
			if _, ok := adjacency[nation][other]; !ok {
				missing = append(missing, other)
			}
		}
		out[nation] = missing
	}
	return out, nil
}

// CrossGraph builds the endorsement graph of a lead and everyone endorsing
// it. Endorsements from nations outside that group are ignored.
func CrossGraph(ctx context.Context, client *nsapi.Client, lead string) (*Graph, error) {
	ctx, span := tracer.Start(ctx, "CrossGraph")
	defer span.End()

	endorsers, err := client.Nation(lead).Endorsements(ctx)
	if err != nil {
		return nil, fmt.Errorf("endorsements of %s: %w", lead, err)
	}
	group := nsapi.NewNameSet(endorsers...)
	group.Add(lead)

	g := NewGraph()
	for _, nation := range group.Names() {
		err := g.AddNation(nation)
		if err != nil {
			return nil, err
		}
	}
	for _, nation := range sorted(group) {
		var received []string
		if nsapi.SameNation(nation, lead) {
			received = endorsers
		} else {
			received, err = client.Nation(nation).Endorsements(ctx)
			if err != nil {
				return nil, fmt.Errorf("endorsements of %s: %w", nation, err)
			}
		}
		for _, endorser := range received {
			if !group.Has(endorser) {
				continue
			}
			err := g.AddEndorsement(endorser, nation)
			if err != nil {
				return nil, err
			}
		}
	}
	return g, nil
}

// RegionGraph builds the endorsement graph of the WA members of a region
// from a nations dump.
func RegionGraph(source NationSource, region string) (*Graph, error) {
	type entry struct {
		name      string
		endorsers []string
	}
	var members []entry
	for source.Next() {
		nation := source.Record()
		if !sameRegion(nation.Region, region) || !nation.IsWAMember() {
			continue
		}
		members = append(members, entry{name: nation.Name, endorsers: nation.Endorsements})
	}
	if err := source.Err(); err != nil {
		return nil, err
	}

	g := NewGraph()
	group := nsapi.NewNameSet()
	for _, m := range members {
		err := g.AddNation(m.name)
		if err != nil {
			return nil, err
		}
		group.Add(m.name)
	}
	for _, m := range members {
		for _, endorser := range m.endorsers {
			if !group.Has(endorser) {
				continue
			}
			err := g.AddEndorsement(endorser, m.name)
			if err != nil {
				return nil, err
			}
		}
	}
	return g, nil
}
