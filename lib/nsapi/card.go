package nsapi

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// Card is the api target for a single trading card.
type Card struct {
	client *Client
	ID     int
	Season int
}

func (c *Client) Card(id, season int) *Card {
	return &Card{client: c, ID: id, Season: season}
}

func (c *Card) request(shard string, params url.Values) Request {
	if params == nil {
		params = url.Values{}
	}
	params.Set("cardid", strconv.Itoa(c.ID))
	params.Set("season", strconv.Itoa(c.Season))
	return Request{
		Shards: []string{"card", shard},
		Params: params,
	}
}

func (c *Card) Info(ctx context.Context) (CardInfo, error) {
	root, err := c.client.Node(ctx, c.request("info", nil))
	if err != nil {
		return CardInfo{}, err
	}
	return ParseCardInfo(root)
}

type TradesQuery struct {
	Limit      int
	SinceTime  int64
	BeforeTime int64
}

// Trades returns the trade history of the card, newest first.
func (c *Card) Trades(ctx context.Context, query TradesQuery) ([]Trade, error) {
	params := url.Values{}
	if query.Limit > 0 {
		params.Set("limit", strconv.Itoa(query.Limit))
	}
	if query.SinceTime > 0 {
		params.Set("sincetime", strconv.FormatInt(query.SinceTime, 10))
	}
	if query.BeforeTime > 0 {
		params.Set("beforetime", strconv.FormatInt(query.BeforeTime, 10))
	}
	root, err := c.client.Node(ctx, c.request("trades", params))
	if err != nil {
		return nil, err
	}
	trades, ok := root.First("TRADES")
	if !ok {
		return nil, fmt.Errorf("trades missing from response")
	}
	return parseAll(trades.All("TRADE"), ParseTrade)
}

// Link returns the web page of the card.
func (c *Card) Link() string {
	return fmt.Sprintf("%s/page=deck/card=%d/season=%d", c.client.baseURL, c.ID, c.Season)
}
