package cards

import (
	"encoding/json"
	"io"
	"strconv"
	"strings"
)

// RarityCard is an entry of a rarity list, ids and seasons are written as
// strings.
type RarityCard struct {
	CardID string `json:"cardid"`
	Season string `json:"season"`
	Name   string `json:"name"`
}

// FindRarity appends the cards of a rarity found in the card dump of a
// season.
func FindRarity(out []RarityCard, source CardSource, season int, rarity string) ([]RarityCard, error) {
	rarity = strings.ToLower(rarity)
	for source.Next() {
		card := source.Record()
		if strings.ToLower(card.Rarity) != rarity {
			continue
		}
		out = append(out, RarityCard{
			CardID: strconv.Itoa(card.ID),
			Season: strconv.Itoa(season),
			Name:   card.Name,
		})
	}
	return out, source.Err()
}

func WriteRarityList(w io.Writer, cards []RarityCard) error {
	if cards == nil {
		cards = []RarityCard{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(cards)
}

// RarityListName is the default file name of a rarity list.
func RarityListName(rarity string) string {
	return rarity + "Cards.json"
}
