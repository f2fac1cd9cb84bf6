package cards

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"nstools/lib/nsapi"

	"go.opentelemetry.io/otel/attribute"
)

// AuditedTrade is a trade of a listed card with a member on either side.
type AuditedTrade struct {
	Card RarityCard
	Link string
	nsapi.Trade
}

// AuditTrades returns the trades made since the given time of every card
// in the list where the buyer or the seller is a member. Trades are
// grouped by card in list order, newest first within a card.
func AuditTrades(ctx context.Context, client *nsapi.Client, list []RarityCard, members nsapi.NameSet, since time.Time) ([]AuditedTrade, error) {
	ctx, span := tracer.Start(ctx, "AuditTrades")
	defer span.End()
	span.SetAttributes(attribute.Int("cards", len(list)), attribute.Int("members", len(members)))

	var out []AuditedTrade
	for _, card := range list {
		id, err := strconv.Atoi(card.CardID)
		if err != nil {
			return nil, fmt.Errorf("card id %q: %w", card.CardID, err)
		}
		season, err := strconv.Atoi(card.Season)
		if err != nil {
			return nil, fmt.Errorf("season %q of card %d: %w", card.Season, id, err)
		}

		target := client.Card(id, season)
		trades, err := target.Trades(ctx, nsapi.TradesQuery{SinceTime: since.Unix()})
		if err != nil {
			return nil, fmt.Errorf("trades of card %d: %w", id, err)
		}
		for _, trade := range trades {
			if members.Has(trade.Buyer) || members.Has(trade.Seller) {
				out = append(out, AuditedTrade{Card: card, Link: target.Link() + "/trades_history=1", Trade: trade})
			}
		}
	}
	return out, nil
}

// PreviousMonth returns the first instant of the month before now, in UTC.
func PreviousMonth(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month()-1, 1, 0, 0, 0, 0, time.UTC)
}

func WriteTradeAudit(w io.Writer, trades []AuditedTrade) error {
	for _, trade := range trades {
		_, err := fmt.Fprintf(w, "%s (%s): Sold from %s to %s.\n", trade.Card.Name, trade.Link, trade.Seller, trade.Buyer)
		if err != nil {
			return err
		}
	}
	return nil
}

// ParseRarityList reads a list written by WriteRarityList.
func ParseRarityList(r io.Reader) ([]RarityCard, error) {
	var out []RarityCard
	err := json.NewDecoder(r).Decode(&out)
	if err != nil {
		return nil, fmt.Errorf("decode rarity list: %w", err)
	}
	return out, nil
}
