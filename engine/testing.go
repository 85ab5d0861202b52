package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/hivewatch/watchdog/action"
	"github.com/hivewatch/watchdog/classify"
	"github.com/hivewatch/watchdog/hive"
	"github.com/hivewatch/watchdog/registry"
	"github.com/hivewatch/watchdog/report"
)

// Test fakes for the external collaborators. Intentionally exported, for use
// in other packages' tests.

type FakeFeed struct {
	Replies    []*hive.Post
	Posts      []*hive.Post
	RepliesErr error
	PostsErr   error
	PostCalls  int
}

func (f *FakeFeed) RecentReplies(ctx context.Context, account string) ([]*hive.Post, error) {
	if f.RepliesErr != nil {
		return nil, f.RepliesErr
	}
	return f.Replies, nil
}

func (f *FakeFeed) RecentPosts(ctx context.Context, communityID string, tags []string, minAge time.Duration) ([]*hive.Post, error) {
	f.PostCalls++
	if f.PostsErr != nil {
		return nil, f.PostsErr
	}
	return f.Posts, nil
}

type FakeModerator struct {
	Muted    []string
	Comments []string
}

func (m *FakeModerator) MutePost(ctx context.Context, p *hive.Post, reason string) error {
	m.Muted = append(m.Muted, p.AuthorPerm())
	return nil
}

func (m *FakeModerator) PostComment(ctx context.Context, author, permlink, body string) error {
	m.Comments = append(m.Comments, "@"+author+"/"+permlink)
	return nil
}

type SentMessage struct {
	Channel string
	Text    string
}

type FakeSender struct {
	Messages []SentMessage
	Err      error
}

func (s *FakeSender) Deliver(ctx context.Context, channelID, text string) error {
	if s.Err != nil {
		return s.Err
	}
	s.Messages = append(s.Messages, SentMessage{Channel: channelID, Text: text})
	return nil
}

// EngineTestFixture wires an engine against in-memory collaborators. The
// returned fakes can be inspected and mutated by the test.
func EngineTestFixture(detectors ...Detector) (*Engine, *FakeFeed, *FakeModerator, *FakeSender) {
	logger := slog.Default()
	feed := &FakeFeed{}
	mod := &FakeModerator{}
	sender := &FakeSender{}

	reg, err := registry.Load(context.Background(), logger, registry.NewMemStore(), false)
	if err != nil {
		panic(err)
	}

	eng := &Engine{
		Logger:     logger,
		Feed:       feed,
		Classifier: classify.Default(),
		Detectors:  detectors,
		Dispatcher: report.NewDispatcher(logger, false, report.NewLogSink(logger)),
		Actions:    action.NewQueue(logger, mod, action.QueueConfig{}),
		Notifier:   sender,
		Registry:   reg,
		Config: Config{
			CommunityID:     "hive-174695",
			CommunityTags:   []string{"letsmakeacollage"},
			Account:         "watchdog",
			AdvisoryChannel: "advisories",
			HistorySize:     100,
		},
	}
	if err := eng.Init(); err != nil {
		panic(err)
	}
	return eng, feed, mod, sender
}
