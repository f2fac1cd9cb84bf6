package cards

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"nstools/lib/nsapi"
	"nstools/lib/telemetry"

	"go.opentelemetry.io/otel/attribute"
)

var tracer = telemetry.Tracer("nstools.lib.cards")

// Rarities in ascending order.
var Rarities = []string{"common", "uncommon", "rare", "ultra-rare", "epic", "legendary"}

// Key identifies a card across seasons.
type Key struct {
	ID     int
	Season int
}

// Link returns the page of the card.
func (k Key) Link() string {
	return fmt.Sprintf("%s/page=deck/card=%d/season=%d", nsapi.DefaultBaseURL, k.ID, k.Season)
}

var cardLinkRegex = regexp.MustCompile(`card=(\d+)/season=(\d+)`)

// ParseCardLink extracts the card from a deck link such as
// "https://www.nationstates.net/page=deck/card=123/season=2".
func ParseCardLink(link string) (Key, error) {
	match := cardLinkRegex.FindStringSubmatch(link)
	if match == nil {
		return Key{}, fmt.Errorf("not a card link: %q", link)
	}
	id, err := strconv.Atoi(match[1])
	if err != nil {
		return Key{}, err
	}
	season, err := strconv.Atoi(match[2])
	if err != nil {
		return Key{}, err
	}
	return Key{ID: id, Season: season}, nil
}

// Holding is a card held by a nation.
type Holding struct {
	Card   Key
	Rarity string
	Nation string
	Copies int
}

// Sort fetches the deck of every nation and groups the cards by rarity,
// then nation, then card. Copies of the same card on a nation are
// counted in a single holding.
func Sort(ctx context.Context, client *nsapi.Client, nations []string) ([]Holding, error) {
	ctx, span := tracer.Start(ctx, "Sort")
	defer span.End()
	span.SetAttributes(attribute.Int("nations", len(nations)))

	var holdings []Holding
	index := map[string]int{}
	for _, nation := range nations {
		deck, err := client.Nation(nation).Deck(ctx)
		if err != nil {
			return nil, fmt.Errorf("deck of %s: %w", nation, err)
		}
		slog.DebugContext(ctx, "fetched deck", "nation", nation, "cards", len(deck))
		for _, card := range deck {
			key := Key{ID: card.ID, Season: card.Season}
			id := fmt.Sprintf("%s/%d/%d", nsapi.CleanFormat(nation), key.ID, key.Season)
			if i, ok := index[id]; ok {
				holdings[i].Copies++
				continue
			}
			index[id] = len(holdings)
			holdings = append(holdings, Holding{
				Card:   key,
				Rarity: strings.ToLower(card.Rarity),
				Nation: nation,
				Copies: 1,
			})
		}
	}

	// stable, so nations and cards keep the order they were fetched in
	slices.SortStableFunc(holdings, func(a, b Holding) int {
		return rarityRank(a.Rarity) - rarityRank(b.Rarity)
	})
	return holdings, nil
}

// unknown rarities sort last
func rarityRank(rarity string) int {
	i := slices.Index(Rarities, rarity)
	if i < 0 {
		return len(Rarities)
	}
	return i
}

// CardSource is a sequence of card dump records, a *dump.Reader satisfies
// it.
type CardSource interface {
	Next() bool
	Record() nsapi.CardStandard
	Err() error
}

// Names resolves the names of the wanted cards from the card dump of a
// season, names found earlier are kept.
func Names(names map[Key]string, source CardSource, season int) error {
	for source.Next() {
		card := source.Record()
		key := Key{ID: card.ID, Season: season}
		if name, ok := names[key]; ok && name == "" {
			names[key] = card.Name
		}
	}
	return source.Err()
}

// WantedNames returns a name table with an empty entry for every card
// held, to be filled by Names.
func WantedNames(holdings []Holding) map[Key]string {
	out := make(map[Key]string, len(holdings))
	for _, h := range holdings {
		out[h.Card] = ""
	}
	return out
}

type CSVOptions struct {
	// Rarities to include, all of them when empty.
	Rarities []string
	// Collect writes one row per holding with a copies column, otherwise
	// every copy gets its own row.
	Collect bool
}

// WriteCSV writes holdings with the columns card, cardName, nation,
// rarity and, when collecting, copies.
func WriteCSV(w io.Writer, holdings []Holding, names map[Key]string, opts CSVOptions) error {
	header := []string{"card", "cardName", "nation", "rarity"}
	if opts.Collect {
		header = append(header, "copies")
	}

	out := csv.NewWriter(w)
	err := out.Write(header)
	if err != nil {
		return err
	}
	for _, h := range holdings {
		if len(opts.Rarities) > 0 && !slices.Contains(opts.Rarities, h.Rarity) {
			continue
		}
		row := []string{h.Card.Link(), names[h.Card], h.Nation, h.Rarity}
		if opts.Collect {
			err = out.Write(append(row, strconv.Itoa(h.Copies)))
			if err != nil {
				return err
			}
			continue
		}
		for range h.Copies {
			err = out.Write(row)
			if err != nil {
				return err
			}
		}
	}
	out.Flush()
	return out.Error()
}

// ParseRarities reads a comma separated rarity list, case insensitive.
func ParseRarities(list string) ([]string, error) {
	var out []string
	for _, rarity := range nsapi.SplitList(strings.ToLower(list), ",") {
		rarity = strings.TrimSpace(rarity)
		if !slices.Contains(Rarities, rarity) {
			return nil, fmt.Errorf("unknown rarity %q, expected one of %s", rarity, strings.Join(Rarities, ", "))
		}
		out = append(out, rarity)
	}
	return out, nil
}
