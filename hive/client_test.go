package hive

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bridgeServer(t *testing.T, results map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		result, ok := results[req.Method]
		if !ok {
			http.Error(w, "unknown method", 400)
			return
		}
		raw, err := json.Marshal(result)
		require.NoError(t, err)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":` + string(raw) + `}`))
	}))
}

func bridgePost(author, permlink string, created time.Time, tags ...string) map[string]any {
	return map[string]any{
		"author":        author,
		"permlink":      permlink,
		"title":         "title",
		"body":          "body",
		"created":       created.UTC().Format("2006-01-02T15:04:05"),
		"json_metadata": map[string]any{"tags": tags},
		"beneficiaries": []map[string]any{{"account": "lmac.fund", "weight": 200}},
		"active_votes":  []map[string]any{{"voter": "curator", "rshares": 1000}},
	}
}

func TestRecentPostsFiltersAgeAndTags(t *testing.T) {
	assert := assert.New(t)
	now := time.Now()
	srv := bridgeServer(t, map[string]any{
		"bridge.get_ranked_posts": []any{
			bridgePost("alice", "old-enough", now.Add(-2*time.Hour), "letsmakeacollage"),
			bridgePost("bob", "too-fresh", now.Add(-5*time.Minute), "letsmakeacollage"),
			bridgePost("carol", "wrong-tags", now.Add(-2*time.Hour), "photography"),
		},
	})
	defer srv.Close()

	c, err := NewClient(slog.Default(), srv.URL)
	require.NoError(t, err)

	posts, err := c.RecentPosts(context.Background(), "hive-174695", []string{"letsmakeacollage"}, 30*time.Minute)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal("@alice/old-enough", posts[0].AuthorPerm())

	// the feed payload is cached; lazy fields resolve without another call
	bens, err := posts[0].Beneficiaries(context.Background())
	require.NoError(t, err)
	assert.Equal(200, bens["lmac.fund"])
	votes, err := posts[0].Votes(context.Background())
	require.NoError(t, err)
	assert.Equal(1, votes["curator"])
}

func TestCallSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32000,"message":"boom"}}`))
	}))
	defer srv.Close()

	c, err := NewClient(slog.Default(), srv.URL)
	require.NoError(t, err)
	_, err = c.RecentReplies(context.Background(), "account")
	assert.ErrorContains(t, err, "boom")
}
