package hive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultAPIURL is a public Hive API node.
const DefaultAPIURL = "https://api.hive.blog"

const feedPageSize = 50

// Client is a read-only client for the Hive bridge API. It implements Feed,
// MetadataSource and SubscriberDirectory. Broadcasting (muting, commenting)
// requires a signing key and lives in RemoteModerator.
type Client struct {
	logger *slog.Logger
	apiURL string
	http   *retryablehttp.Client

	// read-through cache of full post payloads, so resolving several lazy
	// fields of the same post costs one fetch
	posts *lru.Cache[string, *rawPost]
}

func NewClient(logger *slog.Logger, apiURL string) (*Client, error) {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	hc := retryablehttp.NewClient()
	hc.RetryMax = 2
	hc.Logger = nil

	posts, err := lru.New[string, *rawPost](500)
	if err != nil {
		return nil, err
	}
	return &Client{
		logger: logger.With("system", "hive"),
		apiURL: apiURL,
		http:   hc,
		posts:  posts,
	}, nil
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
	ID      int    `json:"id"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Code, e.Message)
}

func (c *Client) call(ctx context.Context, method string, params any, out any) error {
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", Method: method, Params: params, ID: 1})
	if err != nil {
		return err
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, "POST", c.apiURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", method, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return fmt.Errorf("calling %s: unexpected status %d", method, resp.StatusCode)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	var rr rpcResponse
	if err := json.Unmarshal(raw, &rr); err != nil {
		return fmt.Errorf("decoding %s response: %w", method, err)
	}
	if rr.Error != nil {
		return fmt.Errorf("calling %s: %w", method, rr.Error)
	}
	return json.Unmarshal(rr.Result, out)
}

// rawPost is the subset of the bridge post payload the watchdog consumes.
type rawPost struct {
	Author       string `json:"author"`
	Permlink     string `json:"permlink"`
	Title        string `json:"title"`
	Body         string `json:"body"`
	Created      string `json:"created"`
	JSONMetadata struct {
		Tags []string `json:"tags"`
	} `json:"json_metadata"`
	Beneficiaries []struct {
		Account string `json:"account"`
		Weight  int    `json:"weight"`
	} `json:"beneficiaries"`
	ActiveVotes []struct {
		Voter   string `json:"voter"`
		Rshares int64  `json:"rshares"`
	} `json:"active_votes"`
}

func (rp *rawPost) createdAt() time.Time {
	// bridge timestamps are UTC without a zone suffix
	t, err := time.Parse("2006-01-02T15:04:05", rp.Created)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func (c *Client) RecentReplies(ctx context.Context, account string) ([]*Post, error) {
	var raws []rawPost
	params := map[string]any{"sort": "replies", "account": account, "limit": feedPageSize}
	if err := c.call(ctx, "bridge.get_account_posts", params, &raws); err != nil {
		return nil, err
	}
	return c.wrap(raws), nil
}

func (c *Client) RecentPosts(ctx context.Context, communityID string, tags []string, minAge time.Duration) ([]*Post, error) {
	var raws []rawPost
	params := map[string]any{"sort": "created", "tag": communityID, "limit": feedPageSize}
	if err := c.call(ctx, "bridge.get_ranked_posts", params, &raws); err != nil {
		return nil, err
	}

	now := time.Now()
	var out []*Post
	for i := range raws {
		rp := &raws[i]
		if now.Sub(rp.createdAt()) < minAge {
			continue
		}
		if len(tags) > 0 && !hasAnyTag(rp.JSONMetadata.Tags, tags) {
			continue
		}
		out = append(out, c.wrapOne(rp))
	}
	return out, nil
}

func hasAnyTag(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if strings.EqualFold(h, w) {
				return true
			}
		}
	}
	return false
}

func (c *Client) wrap(raws []rawPost) []*Post {
	out := make([]*Post, 0, len(raws))
	for i := range raws {
		out = append(out, c.wrapOne(&raws[i]))
	}
	return out
}

func (c *Client) wrapOne(rp *rawPost) *Post {
	p := NewPost(rp.Author, rp.Permlink, rp.Title, rp.Body, rp.createdAt(), c)
	c.posts.Add(p.AuthorPerm(), rp)
	return p
}

// fetchPost resolves the full payload for a post, read-through cached.
func (c *Client) fetchPost(ctx context.Context, p *Post) (*rawPost, error) {
	if rp, ok := c.posts.Get(p.AuthorPerm()); ok {
		return rp, nil
	}
	var rp rawPost
	params := map[string]any{"author": p.Author, "permlink": p.Permlink}
	if err := c.call(ctx, "bridge.get_post", params, &rp); err != nil {
		return nil, err
	}
	c.posts.Add(p.AuthorPerm(), &rp)
	return &rp, nil
}

func (c *Client) PostTags(ctx context.Context, p *Post) ([]string, error) {
	rp, err := c.fetchPost(ctx, p)
	if err != nil {
		return nil, err
	}
	return rp.JSONMetadata.Tags, nil
}

func (c *Client) PostBeneficiaries(ctx context.Context, p *Post) (map[string]int, error) {
	rp, err := c.fetchPost(ctx, p)
	if err != nil {
		return nil, err
	}
	bens := make(map[string]int, len(rp.Beneficiaries))
	for _, b := range rp.Beneficiaries {
		bens[b.Account] = b.Weight
	}
	return bens, nil
}

func (c *Client) PostVotes(ctx context.Context, p *Post) (map[string]int, error) {
	rp, err := c.fetchPost(ctx, p)
	if err != nil {
		return nil, err
	}
	votes := make(map[string]int, len(rp.ActiveVotes))
	for _, v := range rp.ActiveVotes {
		switch {
		case v.Rshares > 0:
			votes[v.Voter] = 1
		case v.Rshares < 0:
			votes[v.Voter] = -1
		default:
			votes[v.Voter] = 0
		}
	}
	return votes, nil
}

func (c *Client) PostReplyAuthors(ctx context.Context, p *Post) ([]string, error) {
	// the discussion map is keyed "author/permlink" and includes the root
	var discussion map[string]rawPost
	params := map[string]any{"author": p.Author, "permlink": p.Permlink}
	if err := c.call(ctx, "bridge.get_discussion", params, &discussion); err != nil {
		return nil, err
	}
	root := p.Author + "/" + p.Permlink
	var authors []string
	seen := make(map[string]bool)
	for key, entry := range discussion {
		if key == root || seen[entry.Author] {
			continue
		}
		seen[entry.Author] = true
		authors = append(authors, entry.Author)
	}
	return authors, nil
}

type rawProfile struct {
	Created string `json:"created"`
	Stats   struct {
		PostCount int `json:"post_count"`
	} `json:"stats"`
}

// SubscriberInfo approximates contributor statistics from the most recent
// activity pages. The absolute counts are capped at the page size; the
// post-to-comment ratio is what the notification formatting cares about.
func (c *Client) SubscriberInfo(ctx context.Context, account string) (*SubscriberInfo, error) {
	var profile rawProfile
	if err := c.call(ctx, "bridge.get_profile", map[string]any{"account": account}, &profile); err != nil {
		return nil, err
	}
	joined, err := time.Parse("2006-01-02T15:04:05", profile.Created)
	if err != nil {
		return nil, fmt.Errorf("parsing profile created date: %w", err)
	}

	posts, err := c.countAccountPosts(ctx, account, "posts")
	if err != nil {
		return nil, err
	}
	comments, err := c.countAccountPosts(ctx, account, "comments")
	if err != nil {
		return nil, err
	}
	return &SubscriberInfo{Posts: posts, Comments: comments, Joined: joined.UTC()}, nil
}

func (c *Client) countAccountPosts(ctx context.Context, account, sort string) (int, error) {
	var raws []rawPost
	params := map[string]any{"sort": sort, "account": account, "limit": feedPageSize}
	if err := c.call(ctx, "bridge.get_account_posts", params, &raws); err != nil {
		return 0, err
	}
	return len(raws), nil
}
