package nsapi

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// Nation is the api target for a single nation.
type Nation struct {
	client *Client
	Name   string
	// Auth is nil for public requests.
	Auth *Auth
}

func (c *Client) Nation(name string) *Nation {
	return &Nation{client: c, Name: name}
}

// PrivateNation returns a nation target that authenticates with auth.
func (c *Client) PrivateNation(name string, auth *Auth) *Nation {
	return &Nation{client: c, Name: name, Auth: auth}
}

func (n *Nation) request(shards ...string) Request {
	return Request{
		Target: url.Values{"nation": {CleanFormat(n.Name)}},
		Shards: shards,
		Auth:   n.Auth,
	}
}

func (n *Nation) Shards(ctx context.Context, shards ...string) (ShardMap, error) {
	return n.client.Shards(ctx, n.request(shards...))
}

// Shard returns the text of a single shard.
func (n *Nation) Shard(ctx context.Context, shard string) (string, error) {
	shards, err := n.Shards(ctx, shard)
	if err != nil {
		return "", err
	}
	if !shards.Has(shard) {
		return "", fmt.Errorf("shard %q missing from response", shard)
	}
	return shards.Text(shard), nil
}

// Standard requests the default shard set of the nation.
func (n *Nation) Standard(ctx context.Context) (NationStandard, error) {
	root, err := n.client.Node(ctx, n.request())
	if err != nil {
		return NationStandard{}, err
	}
	return ParseNationStandard(root)
}

// Endorsements returns the nations endorsing this nation.
func (n *Nation) Endorsements(ctx context.Context) ([]string, error) {
	text, err := n.Shard(ctx, "endorsements")
	if err != nil {
		return nil, err
	}
	return SplitList(text, ","), nil
}

// WAStatus returns the "wa" shard, e.g. "WA Member" or "Non-member".
func (n *Nation) WAStatus(ctx context.Context) (string, error) {
	return n.Shard(ctx, "wa")
}

func (n *Nation) cardsRequest(shard string) Request {
	return Request{
		Shards: []string{"cards", shard},
		Params: url.Values{"nationname": {CleanFormat(n.Name)}},
	}
}

// Deck returns the trading cards the nation owns, one entry per copy.
func (n *Nation) Deck(ctx context.Context) ([]CardIdentifier, error) {
	root, err := n.client.Node(ctx, n.cardsRequest("deck"))
	if err != nil {
		return nil, err
	}
	deck, _ := root.First("DECK")
	return parseAll(deck.All("CARD"), ParseCardIdentifier)
}

func (n *Nation) DeckInfo(ctx context.Context) (DeckInfo, error) {
	root, err := n.client.Node(ctx, n.cardsRequest("info"))
	if err != nil {
		return DeckInfo{}, err
	}
	info, ok := root.First("INFO")
	if !ok {
		return DeckInfo{}, fmt.Errorf("deck info missing from response")
	}
	return ParseDeckInfo(info)
}

// Dossier requires authentication.
func (n *Nation) Dossier(ctx context.Context) (Dossier, error) {
	shards, err := n.Shards(ctx, "dossier", "rdossier")
	if err != nil {
		return Dossier{}, err
	}
	return ParseDossier(shards["dossier"], shards["rdossier"]), nil
}

// Issues returns the open issues of the nation, it requires
// authentication.
func (n *Nation) Issues(ctx context.Context) ([]Issue, error) {
	shards, err := n.Shards(ctx, "issues")
	if err != nil {
		return nil, err
	}
	return parseAll(shards["issues"].All("ISSUE"), ParseIssue)
}

// AnswerIssue answers an issue with the given option id.
func (n *Nation) AnswerIssue(ctx context.Context, issue, option int) (IssueResult, error) {
	req := n.request()
	req.Params = url.Values{
		"c":      {"issue"},
		"issue":  {strconv.Itoa(issue)},
		"option": {strconv.Itoa(option)},
	}
	root, err := n.client.Node(ctx, req)
	if err != nil {
		return IssueResult{}, err
	}
	node, ok := root.First("ISSUE")
	if !ok {
		return IssueResult{}, fmt.Errorf("issue result missing from response")
	}
	result, err := ParseIssueResult(node)
	if err != nil {
		return IssueResult{}, err
	}
	if result.Issue == 0 {
		result.Issue = issue
	}
	if result.Option == 0 {
		result.Option = option
	}
	return result, nil
}

// Ping registers a login on the nation, keeping it from ceasing to exist.
func (n *Nation) Ping(ctx context.Context) error {
	if n.Auth == nil {
		return fmt.Errorf("ping requires authentication")
	}
	_, err := n.Shards(ctx, "ping")
	return err
}

// Autologin returns the autologin key of the nation. If no key has been
// received yet, a ping is made to obtain one.
func (n *Nation) Autologin(ctx context.Context) (string, error) {
	if n.Auth == nil {
		return "", fmt.Errorf("autologin requires authentication")
	}
	if n.Auth.Autologin == "" {
		err := n.Ping(ctx)
		if err != nil {
			return "", err
		}
	}
	if n.Auth.Autologin == "" {
		return "", fmt.Errorf("api did not return an autologin key")
	}
	return n.Auth.Autologin, nil
}

// Login switches the nation to authenticate with an autologin key, the
// password and pin of the previous Auth are dropped.
func (n *Nation) Login(autologin string) {
	n.Auth = NewAutologinAuth(autologin)
}
