package hive

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSource struct {
	tagCalls  int
	benCalls  int
	voteCalls int
	tagErr    error
}

func (s *countingSource) PostTags(ctx context.Context, p *Post) ([]string, error) {
	s.tagCalls++
	return []string{"lmac"}, s.tagErr
}

func (s *countingSource) PostBeneficiaries(ctx context.Context, p *Post) (map[string]int, error) {
	s.benCalls++
	return map[string]int{"lmac.fund": 200}, nil
}

func (s *countingSource) PostVotes(ctx context.Context, p *Post) (map[string]int, error) {
	s.voteCalls++
	return map[string]int{"curator": 1}, nil
}

func (s *countingSource) PostReplyAuthors(ctx context.Context, p *Post) ([]string, error) {
	return nil, nil
}

func TestLazyFieldsFetchedOnce(t *testing.T) {
	assert := assert.New(t)
	src := &countingSource{}
	p := NewPost("alice", "my-post", "title", "body", time.Now(), src)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		tags, err := p.Tags(ctx)
		require.NoError(t, err)
		assert.Equal([]string{"lmac"}, tags)

		bens, err := p.Beneficiaries(ctx)
		require.NoError(t, err)
		assert.Equal(200, bens["lmac.fund"])

		votes, err := p.Votes(ctx)
		require.NoError(t, err)
		assert.Equal(1, votes["curator"])
	}
	assert.Equal(1, src.tagCalls)
	assert.Equal(1, src.benCalls)
	assert.Equal(1, src.voteCalls)
}

func TestFetchErrorIsMemoized(t *testing.T) {
	src := &countingSource{tagErr: fmt.Errorf("node down")}
	p := NewPost("alice", "my-post", "title", "body", time.Now(), src)

	_, err := p.Tags(context.Background())
	assert.Error(t, err)
	_, err = p.Tags(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 1, src.tagCalls)
}

func TestAuthorPermAndAge(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	p := NewSeededPost("alice", "my-post", "t", "b", created, nil, nil, nil, nil)
	assert.Equal(t, "@alice/my-post", p.AuthorPerm())
	assert.Equal(t, 48*time.Hour, p.Age(created.Add(48*time.Hour)))
}
