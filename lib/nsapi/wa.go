package nsapi

import (
	"context"
	"net/url"
	"strconv"
)

const (
	GeneralAssembly = 1
	SecurityCouncil = 2
)

// WA is the api target for a World Assembly council.
type WA struct {
	client  *Client
	Council int
}

func (c *Client) WA(council int) *WA {
	return &WA{client: c, Council: council}
}

func (w *WA) Shards(ctx context.Context, shards ...string) (ShardMap, error) {
	return w.client.Shards(ctx, Request{
		Target: url.Values{"wa": {strconv.Itoa(w.Council)}},
		Shards: shards,
	})
}

// Members returns every World Assembly member. Membership is shared by
// both councils.
func (w *WA) Members(ctx context.Context) ([]string, error) {
	shards, err := w.Shards(ctx, "members")
	if err != nil {
		return nil, err
	}
	return SplitList(shards.Text("members"), ","), nil
}
