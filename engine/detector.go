package engine

import (
	"context"

	"github.com/hivewatch/watchdog/action"
	"github.com/hivewatch/watchdog/classify"
	"github.com/hivewatch/watchdog/hive"
	"github.com/hivewatch/watchdog/report"
)

// Session exposes per-run engine state to detectors that want to suppress
// duplicate signal, eg a catch-all curation check.
type Session interface {
	// WasObjected reports whether any detector already produced a finding for
	// the item during this process run.
	WasObjected(id string) bool
}

// Item is one post under evaluation, classified once by the engine.
// Detectors must not mutate it.
type Item struct {
	Post    *hive.Post
	Kind    classify.PostType
	Session Session
}

// Outcome carries zero, one, or two results of a detector evaluation. A
// clean item produces the zero Outcome; a detector only ever signals
// problems.
type Outcome struct {
	Finding *report.Finding
	Action  action.Action
}

func (o Outcome) Empty() bool {
	return o.Finding == nil && o.Action == nil
}

// Detector is a stateless-per-item rule evaluator. It must be safe to call
// for every ingested item regardless of type; type-inapplicable items yield
// the zero Outcome. Configuration is validated in the detector constructor,
// before any item is processed.
type Detector interface {
	ID() string
	Evaluate(ctx context.Context, item *Item) (Outcome, error)
}
