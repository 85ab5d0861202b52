// Package engine drives the monitoring cycle: ingest the feed, run every
// detector over every new item, and hand findings and remedial actions to
// the dispatcher and action queue.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hivewatch/watchdog/action"
	"github.com/hivewatch/watchdog/classify"
	"github.com/hivewatch/watchdog/hive"
	"github.com/hivewatch/watchdog/notify"
	"github.com/hivewatch/watchdog/reflist"
	"github.com/hivewatch/watchdog/registry"
	"github.com/hivewatch/watchdog/report"
)

const (
	stateRealm          = "engine"
	keyMonitoredPosts   = "monitoredPosts"
	keyProcessedReplies = "processedReplies"
)

type Config struct {
	// community whose top-level posts are monitored
	CommunityID   string
	CommunityTags []string
	// account whose reply backlog is scanned for unanswered moderator replies
	Account string
	// chat channel for reply advisories
	AdvisoryChannel string

	// authors never evaluated (eg the community's own bot accounts)
	ExcludedAuthors []string
	// a reply by any of these accounts means a human moderator already
	// handled the post
	IgnoreRepliedBy []string

	// replies older than this never produce an advisory (default 7 days)
	ReplyMaxAge time.Duration
	// posts younger than this are not fetched, giving authors time to fix
	// beneficiary settings
	MinPostAge time.Duration
	// bound of the persisted dedup histories (default 1000)
	HistorySize int
}

// Engine executes monitoring cycles. A cycle runs sequentially and must
// complete (including action execution and registry persistence) before the
// next begins; the dedup histories are mutated without internal locking.
type Engine struct {
	Logger     *slog.Logger
	Feed       hive.Feed
	Classifier *classify.Classifier
	// evaluated in registration order
	Detectors  []Detector
	Dispatcher *report.Dispatcher
	Actions    *action.Queue
	Notifier   notify.Sender
	Registry   *registry.Registry
	// warmed concurrently at the start of each cycle
	RefLists []*reflist.Cache
	Config   Config

	monitored        *History
	processedReplies *History
	objected         map[string]bool
	// set when a history gained an entry; an unchanged store is not re-saved
	stateChanged bool
}

// Init validates configuration defaults and loads the dedup histories from
// the registry. Must be called once before RunCycle.
func (eng *Engine) Init() error {
	if eng.Config.ReplyMaxAge == 0 {
		eng.Config.ReplyMaxAge = 7 * 24 * time.Hour
	}
	if eng.Config.HistorySize == 0 {
		eng.Config.HistorySize = 1000
	}

	var err error
	eng.monitored, err = eng.loadHistory(keyMonitoredPosts)
	if err != nil {
		return err
	}
	eng.processedReplies, err = eng.loadHistory(keyProcessedReplies)
	if err != nil {
		return err
	}
	eng.objected = make(map[string]bool)
	return nil
}

func (eng *Engine) loadHistory(key string) (*History, error) {
	h, err := NewHistory(eng.Config.HistorySize)
	if err != nil {
		return nil, err
	}
	var entries []string
	if _, err := eng.Registry.Get(stateRealm, key, &entries); err != nil {
		return nil, err
	}
	for _, id := range entries {
		h.Push(id)
	}
	return h, nil
}

// WasObjected implements Session for detectors.
func (eng *Engine) WasObjected(id string) bool {
	return eng.objected[id]
}

// RunCycle executes one complete ingest-evaluate-dispatch-act pass. Feed
// failures abort the cycle; anything already dispatched before the failure
// stands (at-least-once, not transactional).
func (eng *Engine) RunCycle(ctx context.Context) error {
	start := time.Now()
	if eng.monitored == nil {
		return fmt.Errorf("engine not initialized")
	}

	eng.warmRefLists(ctx)

	// replies first, so the moderator-reply backlog is surfaced before fresh
	// content floods the findings channel
	advisories, err := eng.processReplies(ctx)
	if err != nil {
		cycleErrorCount.Inc()
		return fmt.Errorf("ingesting replies: %w", err)
	}
	evaluated, err := eng.processPosts(ctx)
	if err != nil {
		cycleErrorCount.Inc()
		return fmt.Errorf("ingesting posts: %w", err)
	}

	findings := eng.Dispatcher.Pending()
	actions := eng.Actions.Len()
	eng.Dispatcher.Flush(ctx)
	eng.Actions.ProcessActions(ctx)

	if err := eng.persistState(ctx); err != nil {
		return err
	}

	cycleCount.Inc()
	cycleDuration.Observe(time.Since(start).Seconds())
	eng.Logger.Info("monitoring cycle complete",
		"duration", time.Since(start),
		"evaluated", evaluated,
		"advisories", advisories,
		"findings", findings,
		"actions", actions,
	)
	return nil
}

// warmRefLists refreshes all reference-list caches concurrently. Failures
// are non-fatal: consumers fall back to the cached list.
func (eng *Engine) warmRefLists(ctx context.Context) {
	var g errgroup.Group
	for _, cache := range eng.RefLists {
		g.Go(func() error {
			if err := cache.Refresh(ctx); err != nil {
				reflistRefreshErrors.Inc()
				eng.Logger.Warn("reference list refresh failed, using cached list", "err", err)
			}
			return nil
		})
	}
	g.Wait()
}

func (eng *Engine) processPosts(ctx context.Context) (int, error) {
	posts, err := eng.Feed.RecentPosts(ctx, eng.Config.CommunityID, eng.Config.CommunityTags, eng.Config.MinPostAge)
	if err != nil {
		return 0, err
	}

	evaluated := 0
	for _, post := range posts {
		id := post.AuthorPerm()
		if contains(eng.Config.ExcludedAuthors, post.Author) {
			itemsSkipped.WithLabelValues("excluded-author").Inc()
			continue
		}
		if eng.monitored.Contains(id) {
			itemsSkipped.WithLabelValues("already-monitored").Inc()
			continue
		}
		if by := eng.answeredBy(ctx, post); by != "" {
			itemsSkipped.WithLabelValues("already-answered").Inc()
			eng.Logger.Debug("post already handled by moderator reply", "post", id, "moderator", by)
			eng.markMonitored(id)
			continue
		}

		eng.evaluatePost(ctx, post)
		eng.markMonitored(id)
		evaluated++
		itemsEvaluated.Inc()
	}
	return evaluated, nil
}

// answeredBy returns the first reply author found in the ignore list, or "".
// A failed reply lookup is logged and treated as "not answered": evaluating
// twice is better than missing a violation.
func (eng *Engine) answeredBy(ctx context.Context, post *hive.Post) string {
	if len(eng.Config.IgnoreRepliedBy) == 0 {
		return ""
	}
	replyAuthors, err := post.ReplyAuthors(ctx)
	if err != nil {
		eng.Logger.Warn("loading reply authors failed", "post", post.AuthorPerm(), "err", err)
		return ""
	}
	for _, author := range replyAuthors {
		if contains(eng.Config.IgnoreRepliedBy, author) {
			return author
		}
	}
	return ""
}

// evaluatePost runs every detector in registration order. Findings and
// actions are collected via dispatcher/queue only; detectors see a
// consistent, unmodified item. Panics from rule execution are recovered,
// like an HTTP server would.
func (eng *Engine) evaluatePost(ctx context.Context, post *hive.Post) {
	id := post.AuthorPerm()
	logger := eng.Logger.With("post", id)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("detector execution exception", "err", r)
		}
	}()

	tags, err := post.Tags(ctx)
	if err != nil {
		logger.Warn("loading tags failed, classifying without tags", "err", err)
	}
	item := &Item{
		Post:    post,
		Kind:    eng.Classifier.Classify(post.Title, post.Body, tags),
		Session: eng,
	}
	logger.Debug("evaluating post", "kind", item.Kind.String())

	for _, det := range eng.Detectors {
		out, err := det.Evaluate(ctx, item)
		if err != nil {
			detectorErrorCount.WithLabelValues(det.ID()).Inc()
			logger.Error("detector failed", "detector", det.ID(), "err", err)
			continue
		}
		if out.Finding != nil {
			findingCount.WithLabelValues(det.ID(), out.Finding.Severity.String()).Inc()
			eng.Dispatcher.Submit(out.Finding)
			eng.objected[id] = true
		}
		if out.Action != nil {
			eng.Actions.Add(out.Action)
		}
	}
}

func (eng *Engine) markMonitored(id string) {
	eng.monitored.Push(id)
	eng.stateChanged = true
}

func (eng *Engine) persistState(ctx context.Context) error {
	if eng.stateChanged {
		if err := eng.Registry.Set(stateRealm, keyMonitoredPosts, eng.monitored.Entries()); err != nil {
			return err
		}
		if err := eng.Registry.Set(stateRealm, keyProcessedReplies, eng.processedReplies.Entries()); err != nil {
			return err
		}
		eng.stateChanged = false
	}
	return eng.Registry.SaveAll(ctx)
}

func contains(list []string, val string) bool {
	for _, v := range list {
		if v == val {
			return true
		}
	}
	return false
}
