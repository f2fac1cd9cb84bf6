package nsapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"nstools/lib/restyutil"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	DefaultBaseURL = "https://www.nationstates.net"
	DefaultVersion = 12
	DefaultTimeout = 30 * time.Second

	apiPath = "/cgi-bin/api.cgi"
)

type Options struct {
	// UserAgent identifies the script to the game's admins, usually a
	// nation name or an email address. It is required.
	UserAgent string
	BaseURL   string
	Version   int
	Timeout   time.Duration
}

// Client makes requests against the NationStates API. It does not retry
// and does not pace requests, callers are responsible for the rate limit.
type Client struct {
	http      *resty.Client
	baseURL   string
	userAgent string
	version   int
}

func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.UserAgent) == "" {
		return nil, fmt.Errorf("a user agent is required by the api")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Version == 0 {
		opts.Version = DefaultVersion
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}

	client := resty.New()
	client.SetBaseURL(strings.TrimSuffix(opts.BaseURL, "/"))
	client.SetHeader("User-Agent", opts.UserAgent)
	client.SetTimeout(opts.Timeout)
	restyutil.InstrumentClient(client, tracer, restyInstrumentOutput)

	return &Client{
		http:      client,
		baseURL:   strings.TrimSuffix(opts.BaseURL, "/"),
		userAgent: opts.UserAgent,
		version:   opts.Version,
	}, nil
}

func (c *Client) UserAgentString() string {
	return c.userAgent
}

// Request describes a single api call.
type Request struct {
	// Target is the entity the call is about, e.g. {"nation": "testlandia"}.
	// It is empty for world shards.
	Target url.Values
	Shards []string
	// Params are extra query parameters, such as "c" for private commands
	// or shard options like "limit".
	Params url.Values
	// Auth is optional, when set it is sent and updated from the response.
	Auth *Auth
}

// Query renders the query string of the request. Shards are joined with a
// space, which is encoded as "+".
func (r Request) Query(version int) url.Values {
	q := url.Values{}
	for k, vals := range r.Target {
		q[k] = append([]string(nil), vals...)
	}
	if len(r.Shards) > 0 {
		q.Set("q", strings.Join(r.Shards, " "))
	}
	for k, vals := range r.Params {
		q[k] = append(q[k], vals...)
	}
	if version > 0 {
		q.Set("v", strconv.Itoa(version))
	}
	return q
}

// URL renders the full link of the request, without authentication.
func (c *Client) URL(req Request) string {
	return c.baseURL + apiPath + "?" + req.Query(c.version).Encode()
}

// Raw performs the request and returns the response body.
func (c *Client) Raw(ctx context.Context, req Request) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "client:Raw")
	defer span.End()

	query := req.Query(c.version)
	span.SetAttributes(attribute.String("query", query.Encode()))

	r := c.http.R().
		SetContext(ctx).
		SetQueryParamsFromValues(query)
	req.Auth.apply(r)

	res, err := r.Get(apiPath)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return nil, fmt.Errorf("api request: %w", err)
	}

	req.Auth.update(res.Header())

	err = responseError(res)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return res.Body(), nil
}

// Node performs the request and parses the response into a Node tree.
func (c *Client) Node(ctx context.Context, req Request) (Node, error) {
	body, err := c.Raw(ctx, req)
	if err != nil {
		return Node{}, err
	}
	root, err := ParseNodeBytes(body)
	if err != nil {
		return Node{}, fmt.Errorf("parse api response: %w", err)
	}
	return root, nil
}

// Shards requests the given shards and returns the response children
// keyed by lowercase tag.
func (c *Client) Shards(ctx context.Context, req Request) (ShardMap, error) {
	root, err := c.Node(ctx, req)
	if err != nil {
		return nil, err
	}
	return NewShardMap(root), nil
}

// UserAgent asks the api to echo back the user agent it received.
func (c *Client) UserAgent(ctx context.Context) (string, error) {
	body, err := c.Raw(ctx, Request{Params: url.Values{"a": {"useragent"}}})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(body)), nil
}

// ShardMap holds shard responses keyed by lowercase tag. A shard may come
// back under a different tag than requested, "wa" arrives as "unstatus".
type ShardMap map[string]Node

func NewShardMap(root Node) ShardMap {
	out := make(ShardMap, len(root.Children))
	for _, child := range root.Children {
		out[strings.ToLower(child.Tag())] = child
	}
	return out
}

// Text returns the text of a shard, or the empty string when absent.
func (m ShardMap) Text(key string) string {
	return m[responseKey(key)].Text
}

func (m ShardMap) Has(key string) bool {
	_, ok := m[responseKey(key)]
	return ok
}

// responseKey maps a shard name to the tag it comes back as.
func responseKey(shard string) string {
	key := strings.ToLower(shard)
	if key == "wa" {
		return "unstatus"
	}
	return key
}

func parseRetryAfter(h http.Header) time.Duration {
	for _, key := range []string{"X-Retry-After", "Retry-After"} {
		raw := strings.TrimSpace(h.Get(key))
		if raw == "" {
			continue
		}
		secs, err := strconv.Atoi(raw)
		if err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return 0
}
