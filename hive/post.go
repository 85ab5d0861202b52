package hive

import (
	"context"
	"fmt"
	"time"
)

// MetadataSource resolves the parts of a post which are not included in the
// feed payload and require an extra network round-trip. Implementations are
// expected to be cheap to call repeatedly; the Post itself guarantees at most
// one call per field per instance.
type MetadataSource interface {
	PostTags(ctx context.Context, p *Post) ([]string, error)
	PostBeneficiaries(ctx context.Context, p *Post) (map[string]int, error)
	PostVotes(ctx context.Context, p *Post) (map[string]int, error)
	PostReplyAuthors(ctx context.Context, p *Post) ([]string, error)
}

// A single published post or reply. Immutable once loaded into the pipeline;
// the derived tag/vote/beneficiary/reply fields are fetched lazily and
// memoized (including fetch errors, so a flaky lookup is not retried for the
// same instance).
type Post struct {
	Author    string
	Permlink  string
	Title     string
	Body      string
	CreatedAt time.Time

	source MetadataSource

	tags          []string
	tagsDone      bool
	tagsErr       error
	bens          map[string]int
	bensDone      bool
	bensErr       error
	votes         map[string]int
	votesDone     bool
	votesErr      error
	replyAuthors  []string
	repliesDone   bool
	repliesErr    error
}

func NewPost(author, permlink, title, body string, createdAt time.Time, src MetadataSource) *Post {
	return &Post{
		Author:    author,
		Permlink:  permlink,
		Title:     title,
		Body:      body,
		CreatedAt: createdAt,
		source:    src,
	}
}

// NewSeededPost constructs a post with all derived metadata pre-resolved.
// Used by feed implementations which already have the full payload, and by
// test fixtures.
func NewSeededPost(author, permlink, title, body string, createdAt time.Time, tags []string, bens map[string]int, votes map[string]int, replyAuthors []string) *Post {
	return &Post{
		Author:       author,
		Permlink:     permlink,
		Title:        title,
		Body:         body,
		CreatedAt:    createdAt,
		tags:         tags,
		tagsDone:     true,
		bens:         bens,
		bensDone:     true,
		votes:        votes,
		votesDone:    true,
		replyAuthors: replyAuthors,
		repliesDone:  true,
	}
}

// AuthorPerm returns the globally unique post identifier, eg "@alice/my-post".
func (p *Post) AuthorPerm() string {
	return fmt.Sprintf("@%s/%s", p.Author, p.Permlink)
}

func (p *Post) Age(now time.Time) time.Duration {
	return now.Sub(p.CreatedAt)
}

func (p *Post) Tags(ctx context.Context) ([]string, error) {
	if !p.tagsDone {
		p.tagsDone = true
		if p.source != nil {
			p.tags, p.tagsErr = p.source.PostTags(ctx, p)
		}
	}
	return p.tags, p.tagsErr
}

// Beneficiaries maps account name to allocated reward weight.
func (p *Post) Beneficiaries(ctx context.Context) (map[string]int, error) {
	if !p.bensDone {
		p.bensDone = true
		if p.source != nil {
			p.bens, p.bensErr = p.source.PostBeneficiaries(ctx, p)
		}
	}
	return p.bens, p.bensErr
}

// Votes maps voter account name to signed vote weight.
func (p *Post) Votes(ctx context.Context) (map[string]int, error) {
	if !p.votesDone {
		p.votesDone = true
		if p.source != nil {
			p.votes, p.votesErr = p.source.PostVotes(ctx, p)
		}
	}
	return p.votes, p.votesErr
}

func (p *Post) ReplyAuthors(ctx context.Context) ([]string, error) {
	if !p.repliesDone {
		p.repliesDone = true
		if p.source != nil {
			p.replyAuthors, p.repliesErr = p.source.PostReplyAuthors(ctx, p)
		}
	}
	return p.replyAuthors, p.repliesErr
}
