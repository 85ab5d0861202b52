package action

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"

	"github.com/hivewatch/watchdog/hive"
)

var actionExecutedCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "watchdog_actions_executed",
	Help: "Number of remedial actions executed (or logged in simulate mode)",
}, []string{"outcome"})

// Queue buffers suggested actions during evaluation. ProcessActions drains
// in last-suggested-first order; each entry is applied exactly once and the
// queue is empty afterwards. Execution is rate limited because moderation
// operations on the platform are.
type Queue struct {
	logger   *slog.Logger
	mod      hive.Moderator
	limiter  *rate.Limiter
	simulate bool
	pending  []Action
}

type QueueConfig struct {
	// log intended actions instead of performing them
	Simulate bool
	// moderation ops per second; zero means unlimited
	OpsPerSecond float64
}

func NewQueue(logger *slog.Logger, mod hive.Moderator, cfg QueueConfig) *Queue {
	limit := rate.Inf
	if cfg.OpsPerSecond > 0 {
		limit = rate.Limit(cfg.OpsPerSecond)
	}
	return &Queue{
		logger:   logger.With("system", "actions"),
		mod:      mod,
		limiter:  rate.NewLimiter(limit, 1),
		simulate: cfg.Simulate,
	}
}

// Add buffers an action. Never executes it.
func (q *Queue) Add(a Action) {
	q.pending = append(q.pending, a)
}

func (q *Queue) Len() int {
	return len(q.pending)
}

// ProcessActions drains the queue. Per-action failures are logged and do not
// stop the drain.
func (q *Queue) ProcessActions(ctx context.Context) {
	pending := q.pending
	q.pending = nil

	for i := len(pending) - 1; i >= 0; i-- {
		a := pending[i]
		if q.simulate {
			q.logger.Info("would execute action", "action", a.Describe())
			actionExecutedCount.WithLabelValues("simulated").Inc()
			continue
		}
		if err := q.limiter.Wait(ctx); err != nil {
			q.logger.Error("action rate limiter interrupted", "err", err)
			actionExecutedCount.WithLabelValues("error").Inc()
			continue
		}
		if err := a.Apply(ctx, q.mod); err != nil {
			q.logger.Error("action failed", "action", a.Describe(), "err", err)
			actionExecutedCount.WithLabelValues("error").Inc()
			continue
		}
		q.logger.Info("action executed", "action", a.Describe())
		actionExecutedCount.WithLabelValues("ok").Inc()
	}
}
