package rules

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivewatch/watchdog/classify"
	"github.com/hivewatch/watchdog/reflist"
	"github.com/hivewatch/watchdog/registry"
	"github.com/hivewatch/watchdog/report"
)

// testRefList builds a cache pre-warmed with the given members (or cold when
// empty) by seeding the persisted state before construction.
func testRefList(t *testing.T, key string, members []string) *reflist.Cache {
	t.Helper()
	reg, err := registry.Load(context.Background(), slog.Default(), registry.NewMemStore(), false)
	require.NoError(t, err)
	if len(members) > 0 {
		require.NoError(t, reg.Set("reflists", key, map[string]any{
			"list":        members,
			"nextRefresh": time.Now().Add(time.Hour).Unix(),
		}))
	}
	list, err := reflist.New(slog.Default(), reg, reflist.Config{
		Realm:     "reflists",
		Key:       key,
		SourceURL: "https://example.invalid/list",
	})
	require.NoError(t, err)
	return list
}

func TestDenylist(t *testing.T) {
	assert := assert.New(t)
	det, err := NewDenylistDetector(testRefList(t, "denylist", []string{"mallory"}))
	require.NoError(t, err)

	out, err := det.Evaluate(context.Background(), contestItem("mallory", "body", nil, nil))
	require.NoError(t, err)
	require.NotNil(t, out.Finding)
	assert.Equal(report.SeverityEscalation, out.Finding.Severity)

	out, err = det.Evaluate(context.Background(), contestItem("alice", "body", nil, nil))
	require.NoError(t, err)
	assert.True(out.Empty())
}

func TestDenylistSkipsWhileCold(t *testing.T) {
	det, err := NewDenylistDetector(testRefList(t, "denylist", nil))
	require.NoError(t, err)

	// an unwarmed list means "not yet available", not "nobody is listed"
	out, err := det.Evaluate(context.Background(), contestItem("mallory", "body", nil, nil))
	require.NoError(t, err)
	assert.True(t, out.Empty())
}

type objectedSession map[string]bool

func (s objectedSession) WasObjected(id string) bool { return s[id] }

func TestCuratable(t *testing.T) {
	assert := assert.New(t)
	det, err := NewCuratableDetector(CuratableConfig{
		Allowlist: testRefList(t, "curation-allowlist", []string{"known-author"}),
		Curators:  []string{"curator"},
	})
	require.NoError(t, err)

	// unknown author without a curator vote gets a curation advisory
	item := contestItem("alice", "body", nil, nil)
	item.Session = objectedSession{}
	out, err := det.Evaluate(context.Background(), item)
	require.NoError(t, err)
	require.NotNil(t, out.Finding)
	assert.Equal(report.SeverityInfo, out.Finding.Severity)
	assert.Equal(report.AdvisoryCuration, out.Finding.Meta[report.MetaAdvisory])
	assert.Equal("contest", out.Finding.Meta[report.MetaPostType])
	assert.Empty(out.Finding.Meta[report.MetaSuspect])

	// allowlisted author is skipped
	known := contestItem("known-author", "body", nil, nil)
	known.Session = objectedSession{}
	out, err = det.Evaluate(context.Background(), known)
	require.NoError(t, err)
	assert.True(out.Empty())

	// a curator vote means the post was already reviewed
	voted := contestItem("alice", "body", nil, map[string]int{"curator": 1})
	voted.Session = objectedSession{}
	out, err = det.Evaluate(context.Background(), voted)
	require.NoError(t, err)
	assert.True(out.Empty())

	// an objected post is advised as suspect
	suspect := contestItem("alice", "body", nil, nil)
	suspect.Session = objectedSession{suspect.Post.AuthorPerm(): true}
	out, err = det.Evaluate(context.Background(), suspect)
	require.NoError(t, err)
	require.NotNil(t, out.Finding)
	assert.Equal("true", out.Finding.Meta[report.MetaSuspect])
}

func TestCuratableSkipsWhileCold(t *testing.T) {
	det, err := NewCuratableDetector(CuratableConfig{
		Allowlist: testRefList(t, "curation-allowlist", nil),
	})
	require.NoError(t, err)

	item := contestItem("alice", "body", nil, nil)
	item.Session = objectedSession{}
	out, err := det.Evaluate(context.Background(), item)
	require.NoError(t, err)
	assert.True(t, out.Empty())
}

func TestCuratableIgnoresPostType(t *testing.T) {
	// curation advisories are not contest-scoped
	det, err := NewCuratableDetector(CuratableConfig{
		Allowlist: testRefList(t, "curation-allowlist", []string{"known-author"}),
	})
	require.NoError(t, err)

	item := contestItem("alice", "body", nil, nil)
	item.Kind = classify.Unknown
	item.Session = objectedSession{}
	out, err := det.Evaluate(context.Background(), item)
	require.NoError(t, err)
	require.NotNil(t, out.Finding)
	assert.Equal(t, "unknown", out.Finding.Meta[report.MetaPostType])
}
