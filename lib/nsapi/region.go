package nsapi

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

type Region struct {
	client *Client
	Name   string
}

func (c *Client) Region(name string) *Region {
	return &Region{client: c, Name: name}
}

func (r *Region) request(shards ...string) Request {
	return Request{
		Target: url.Values{"region": {CleanFormat(r.Name)}},
		Shards: shards,
	}
}

func (r *Region) Shards(ctx context.Context, shards ...string) (ShardMap, error) {
	return r.client.Shards(ctx, r.request(shards...))
}

func (r *Region) Shard(ctx context.Context, shard string) (string, error) {
	shards, err := r.Shards(ctx, shard)
	if err != nil {
		return "", err
	}
	if !shards.Has(shard) {
		return "", fmt.Errorf("shard %q missing from response", shard)
	}
	return shards.Text(shard), nil
}

func (r *Region) Standard(ctx context.Context) (RegionStandard, error) {
	root, err := r.client.Node(ctx, r.request())
	if err != nil {
		return RegionStandard{}, err
	}
	return ParseRegionStandard(root)
}

// Nations returns the residents of the region.
func (r *Region) Nations(ctx context.Context) ([]string, error) {
	text, err := r.Shard(ctx, "nations")
	if err != nil {
		return nil, err
	}
	return SplitList(text, ":"), nil
}

// Messages returns posts of the regional message board. A zero limit
// uses the api default.
func (r *Region) Messages(ctx context.Context, offset, limit int) ([]Message, error) {
	req := r.request("messages")
	req.Params = url.Values{}
	if offset > 0 {
		req.Params.Set("offset", strconv.Itoa(offset))
	}
	if limit > 0 {
		req.Params.Set("limit", strconv.Itoa(limit))
	}
	shards, err := r.client.Shards(ctx, req)
	if err != nil {
		return nil, err
	}
	return parseAll(shards["messages"].All("POST"), ParseMessage)
}
