// Package hive holds the content data model and the interfaces to the
// monitored platform, plus the read-only JSON-RPC client. The engine depends
// on the interfaces only; concrete clients are injected at the composition
// root.
package hive

import (
	"context"
	"time"
)

// Feed is the ingestion boundary. Both methods may fail with a connectivity
// error, which the orchestrator treats as fatal for the current cycle.
type Feed interface {
	// RecentReplies returns replies to content authored by the given account,
	// newest first.
	RecentReplies(ctx context.Context, account string) ([]*Post, error)
	// RecentPosts returns recently created top-level posts in the community,
	// optionally filtered by tags, skipping posts younger than minAge.
	RecentPosts(ctx context.Context, communityID string, tags []string, minAge time.Duration) ([]*Post, error)
}

// Moderator is the remediation boundary. Invoked only from drained action
// queue entries and from report sinks, never directly by detectors.
type Moderator interface {
	MutePost(ctx context.Context, p *Post, reason string) error
	PostComment(ctx context.Context, author, permlink, body string) error
}

// SubscriberInfo carries contributor statistics. They are computed by the
// platform, not by this system.
type SubscriberInfo struct {
	Posts    int
	Comments int
	Joined   time.Time
}

// SubscriberDirectory looks up contributor statistics for notification
// formatting. A nil result (without error) means the account is unknown.
type SubscriberDirectory interface {
	SubscriberInfo(ctx context.Context, account string) (*SubscriberInfo, error)
}
