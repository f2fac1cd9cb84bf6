package nsapi

import (
	"context"
	"net/url"
	"strconv"
	"strings"
)

type World struct {
	client *Client
}

func (c *Client) World() *World {
	return &World{client: c}
}

func (w *World) Shards(ctx context.Context, shards ...string) (ShardMap, error) {
	return w.client.Shards(ctx, Request{Shards: shards})
}

// HappeningsQuery narrows down the happenings shard. Zero values are
// left out of the request.
type HappeningsQuery struct {
	// e.g. "region.the_north_pacific" or "nation.testlandia"
	View string
	// e.g. "law", "move", "endo"
	Filter     []string
	Limit      int
	SinceID    int64
	BeforeID   int64
	SinceTime  int64
	BeforeTime int64
}

func (q HappeningsQuery) params() url.Values {
	out := url.Values{}
	if q.View != "" {
		out.Set("view", q.View)
	}
	if len(q.Filter) > 0 {
		out.Set("filter", strings.Join(q.Filter, " "))
	}
	if q.Limit > 0 {
		out.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.SinceID > 0 {
		out.Set("sinceid", strconv.FormatInt(q.SinceID, 10))
	}
	if q.BeforeID > 0 {
		out.Set("beforeid", strconv.FormatInt(q.BeforeID, 10))
	}
	if q.SinceTime > 0 {
		out.Set("sincetime", strconv.FormatInt(q.SinceTime, 10))
	}
	if q.BeforeTime > 0 {
		out.Set("beforetime", strconv.FormatInt(q.BeforeTime, 10))
	}
	return out
}

// Happenings returns events newest first.
func (w *World) Happenings(ctx context.Context, query HappeningsQuery) ([]Happening, error) {
	shards, err := w.client.Shards(ctx, Request{
		Shards: []string{"happenings"},
		Params: query.params(),
	})
	if err != nil {
		return nil, err
	}
	return parseAll(shards["happenings"].All("EVENT"), ParseHappening)
}

// RegionsByTag returns the regions carrying every given tag. A tag
// prefixed with "-" excludes regions carrying it.
func (w *World) RegionsByTag(ctx context.Context, tags ...string) ([]string, error) {
	shards, err := w.client.Shards(ctx, Request{
		Shards: []string{"regionsbytag"},
		Params: url.Values{"tags": {strings.Join(tags, ",")}},
	})
	if err != nil {
		return nil, err
	}
	return SplitList(shards.Text("regions"), ","), nil
}
