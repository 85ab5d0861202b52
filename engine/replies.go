package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/hivewatch/watchdog/hive"
)

// processReplies scans the moderator account's reply backlog and emits one
// advisory notification per new reply. Advisories bypass the finding
// machinery: they are reminders for humans, not rule violations.
func (eng *Engine) processReplies(ctx context.Context) (int, error) {
	replies, err := eng.Feed.RecentReplies(ctx, eng.Config.Account)
	if err != nil {
		return 0, err
	}

	now := time.Now()
	delivered := 0
	for _, reply := range replies {
		if contains(eng.Config.ExcludedAuthors, reply.Author) {
			continue
		}
		key := hashOfString(reply.AuthorPerm())
		if eng.processedReplies.Contains(key) {
			continue
		}
		// stale replies are neither notified nor marked processed
		if reply.Age(now) > eng.Config.ReplyMaxAge {
			itemsSkipped.WithLabelValues("stale-reply").Inc()
			continue
		}

		if err := eng.deliverAdvisory(ctx, reply); err != nil {
			// isolated like a sink failure; retried next cycle
			eng.Logger.Error("reply advisory delivery failed", "reply", reply.AuthorPerm(), "err", err)
			continue
		}
		advisoryCount.Inc()
		delivered++
		eng.processedReplies.Push(key)
		eng.stateChanged = true
	}
	return delivered, nil
}

func (eng *Engine) deliverAdvisory(ctx context.Context, reply *hive.Post) error {
	if eng.Notifier == nil {
		return nil
	}
	msg := fmt.Sprintf("New reply by @%s awaiting review:\nhttps://peakd.com/%s", reply.Author, reply.AuthorPerm())
	return eng.Notifier.Deliver(ctx, eng.Config.AdvisoryChannel, msg)
}
