package action

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hivewatch/watchdog/hive"
)

func testTime() time.Time {
	return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
}

type recordingModerator struct {
	muted []string
}

func (m *recordingModerator) MutePost(ctx context.Context, p *hive.Post, reason string) error {
	m.muted = append(m.muted, p.AuthorPerm())
	return nil
}

func (m *recordingModerator) PostComment(ctx context.Context, author, permlink, body string) error {
	return nil
}

func post(author, permlink string) *hive.Post {
	return hive.NewSeededPost(author, permlink, "", "", testTime(), nil, nil, nil, nil)
}

func TestProcessActionsDrainsLIFO(t *testing.T) {
	assert := assert.New(t)
	mod := &recordingModerator{}
	q := NewQueue(slog.Default(), mod, QueueConfig{})

	q.Add(&MuteAction{Post: post("alice", "p1"), Reason: "r"})
	q.Add(&MuteAction{Post: post("bob", "p2"), Reason: "r"})
	q.Add(&MuteAction{Post: post("carol", "p3"), Reason: "r"})

	// nothing executes until the drain
	assert.Empty(mod.muted)
	assert.Equal(3, q.Len())

	q.ProcessActions(context.Background())
	assert.Equal([]string{"@carol/p3", "@bob/p2", "@alice/p1"}, mod.muted)
	assert.Equal(0, q.Len())

	// a second drain executes nothing
	q.ProcessActions(context.Background())
	assert.Equal(3, len(mod.muted))
}

func TestSimulateModeSkipsExecution(t *testing.T) {
	mod := &recordingModerator{}
	q := NewQueue(slog.Default(), mod, QueueConfig{Simulate: true})

	q.Add(&MuteAction{Post: post("alice", "p1"), Reason: "r"})
	q.ProcessActions(context.Background())

	assert.Empty(t, mod.muted)
	assert.Equal(t, 0, q.Len())
}
