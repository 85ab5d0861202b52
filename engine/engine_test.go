package engine

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivewatch/watchdog/hive"
	"github.com/hivewatch/watchdog/reflist"
	"github.com/hivewatch/watchdog/report"
)

type stubDetector struct {
	id        string
	seen      []string
	outcome   func(item *Item) Outcome
	evalErr   error
	panicking bool
}

func (d *stubDetector) ID() string { return d.id }

func (d *stubDetector) Evaluate(ctx context.Context, item *Item) (Outcome, error) {
	if d.panicking {
		panic("detector exploded")
	}
	d.seen = append(d.seen, item.Post.AuthorPerm())
	if d.evalErr != nil {
		return Outcome{}, d.evalErr
	}
	if d.outcome != nil {
		return d.outcome(item), nil
	}
	return Outcome{}, nil
}

func seeded(author, permlink string, age time.Duration) *hive.Post {
	return hive.NewSeededPost(author, permlink, "title", "body", time.Now().Add(-age), nil, nil, nil, nil)
}

func TestCycleEvaluatesAndDedupes(t *testing.T) {
	assert := assert.New(t)
	det := &stubDetector{id: "stub"}
	eng, feed, _, _ := EngineTestFixture(det)

	feed.Posts = []*hive.Post{
		seeded("alice", "p1", time.Hour),
		seeded("bob", "p2", time.Hour),
	}
	require.NoError(t, eng.RunCycle(context.Background()))
	assert.Equal([]string{"@alice/p1", "@bob/p2"}, det.seen)

	// the same feed content is not re-evaluated next cycle
	require.NoError(t, eng.RunCycle(context.Background()))
	assert.Equal([]string{"@alice/p1", "@bob/p2"}, det.seen)
	assert.Equal(2, feed.PostCalls)
}

func TestCycleSkipsExcludedAuthor(t *testing.T) {
	det := &stubDetector{id: "stub"}
	eng, feed, _, _ := EngineTestFixture(det)
	eng.Config.ExcludedAuthors = []string{"housekeeping-bot"}

	feed.Posts = []*hive.Post{
		seeded("housekeeping-bot", "p1", time.Hour),
		seeded("alice", "p2", time.Hour),
	}
	require.NoError(t, eng.RunCycle(context.Background()))
	assert.Equal(t, []string{"@alice/p2"}, det.seen)
}

func TestCycleSkipsPostAnsweredByModerator(t *testing.T) {
	det := &stubDetector{id: "stub"}
	eng, feed, _, _ := EngineTestFixture(det)
	eng.Config.IgnoreRepliedBy = []string{"mod-account"}

	answered := hive.NewSeededPost("alice", "p1", "t", "b", time.Now().Add(-time.Hour),
		nil, nil, nil, []string{"random-user", "mod-account"})
	feed.Posts = []*hive.Post{answered, seeded("bob", "p2", time.Hour)}

	require.NoError(t, eng.RunCycle(context.Background()))
	assert.Equal(t, []string{"@bob/p2"}, det.seen)
}

func TestCycleIngestionFailureIsFatal(t *testing.T) {
	assert := assert.New(t)
	eng, feed, _, _ := EngineTestFixture(&stubDetector{id: "stub"})

	feed.RepliesErr = fmt.Errorf("node unreachable")
	err := eng.RunCycle(context.Background())
	assert.ErrorContains(err, "ingesting replies")

	feed.RepliesErr = nil
	feed.PostsErr = fmt.Errorf("node unreachable")
	err = eng.RunCycle(context.Background())
	assert.ErrorContains(err, "ingesting posts")
}

func TestReplyAdvisories(t *testing.T) {
	assert := assert.New(t)
	eng, feed, _, sender := EngineTestFixture()

	feed.Replies = []*hive.Post{
		seeded("carol", "reply-1", 2*24*time.Hour),
		seeded("dave", "reply-2", 10*24*time.Hour), // over the 7 day ceiling
	}
	require.NoError(t, eng.RunCycle(context.Background()))

	require.Len(t, sender.Messages, 1)
	assert.Equal("advisories", sender.Messages[0].Channel)
	assert.Contains(sender.Messages[0].Text, "@carol")
	assert.Contains(sender.Messages[0].Text, "https://peakd.com/@carol/reply-1")

	// fresh reply is deduped, stale reply stays unmarked but still skipped
	require.NoError(t, eng.RunCycle(context.Background()))
	assert.Len(sender.Messages, 1)
}

func TestReplyAdvisoryDeliveryFailureRetries(t *testing.T) {
	eng, feed, _, sender := EngineTestFixture()

	feed.Replies = []*hive.Post{seeded("carol", "reply-1", time.Hour)}
	sender.Err = fmt.Errorf("webhook down")
	require.NoError(t, eng.RunCycle(context.Background()))
	assert.Empty(t, sender.Messages)

	// not marked processed, so the next cycle delivers it
	sender.Err = nil
	require.NoError(t, eng.RunCycle(context.Background()))
	assert.Len(t, sender.Messages, 1)
}

func TestObjectedVisibleToLaterDetectors(t *testing.T) {
	assert := assert.New(t)
	objector := &stubDetector{id: "objector", outcome: func(item *Item) Outcome {
		return Outcome{Finding: report.NewFinding(item.Post.Author, item.Post.Permlink, "objector", report.SeverityWarning, "problem")}
	}}
	var observed []bool
	observer := &stubDetector{id: "observer", outcome: func(item *Item) Outcome {
		observed = append(observed, item.Session.WasObjected(item.Post.AuthorPerm()))
		return Outcome{}
	}}
	eng, feed, _, _ := EngineTestFixture(objector, observer)

	feed.Posts = []*hive.Post{seeded("alice", "p1", time.Hour)}
	require.NoError(t, eng.RunCycle(context.Background()))
	assert.Equal([]bool{true}, observed)
}

func TestDetectorErrorIsIsolated(t *testing.T) {
	broken := &stubDetector{id: "broken", evalErr: fmt.Errorf("lookup failed")}
	healthy := &stubDetector{id: "healthy"}
	eng, feed, _, _ := EngineTestFixture(broken, healthy)

	feed.Posts = []*hive.Post{seeded("alice", "p1", time.Hour)}
	require.NoError(t, eng.RunCycle(context.Background()))
	assert.Equal(t, []string{"@alice/p1"}, healthy.seen)
}

func TestDetectorPanicIsRecovered(t *testing.T) {
	eng, feed, _, _ := EngineTestFixture(&stubDetector{id: "boom", panicking: true})
	feed.Posts = []*hive.Post{seeded("alice", "p1", time.Hour)}
	require.NoError(t, eng.RunCycle(context.Background()))
}

// Many expired caches warming at once all persist through the shared
// registry; run with -race.
func TestWarmRefListsSharedRegistry(t *testing.T) {
	assert := assert.New(t)
	eng, _, _, _ := EngineTestFixture()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<div id="doc">
### Blacklist in alphabetic order
alice
bob
</div>`)
	}))
	defer srv.Close()

	for i := 0; i < 16; i++ {
		list, err := reflist.New(eng.Logger, eng.Registry, reflist.Config{
			Realm:     "reflists",
			Key:       fmt.Sprintf("list-%d", i),
			SourceURL: srv.URL,
		})
		require.NoError(t, err)
		eng.RefLists = append(eng.RefLists, list)
	}

	eng.warmRefLists(context.Background())
	for _, list := range eng.RefLists {
		assert.True(list.Ready())
		assert.True(list.Contains("bob"))
	}
	assert.True(eng.Registry.Dirty())
}

func TestHistorySurvivesRestart(t *testing.T) {
	det := &stubDetector{id: "stub"}
	eng, feed, _, _ := EngineTestFixture(det)

	feed.Posts = []*hive.Post{seeded("alice", "p1", time.Hour)}
	require.NoError(t, eng.RunCycle(context.Background()))
	require.Equal(t, []string{"@alice/p1"}, det.seen)

	// a new engine over the same registry store does not re-evaluate
	det2 := &stubDetector{id: "stub"}
	eng2 := *eng
	eng2.Detectors = []Detector{det2}
	require.NoError(t, eng2.Init())
	feed.Posts = []*hive.Post{seeded("alice", "p1", time.Hour)}
	require.NoError(t, eng2.RunCycle(context.Background()))
	assert.Empty(t, det2.seen)
}
