package rules

import (
	"context"
	"fmt"

	"github.com/hivewatch/watchdog/engine"
	"github.com/hivewatch/watchdog/reflist"
	"github.com/hivewatch/watchdog/report"
)

// DenylistDetector escalates any post by an account on the externally
// maintained denylist. While the list has never been fetched successfully the
// detector stays silent rather than treating every author as clean or listed.
type DenylistDetector struct {
	list *reflist.Cache
}

func NewDenylistDetector(list *reflist.Cache) (*DenylistDetector, error) {
	if list == nil {
		return nil, fmt.Errorf("denylist: reference list is required")
	}
	return &DenylistDetector{list: list}, nil
}

func (det *DenylistDetector) ID() string { return "author-denylist" }

func (det *DenylistDetector) Evaluate(ctx context.Context, item *engine.Item) (engine.Outcome, error) {
	if !det.list.Ready() {
		return engine.Outcome{}, nil
	}
	if !det.list.Contains(item.Post.Author) {
		return engine.Outcome{}, nil
	}

	desc := "Author @{author} is on the denylist"
	return engine.Outcome{
		Finding: report.NewFinding(item.Post.Author, item.Post.Permlink, det.ID(), report.SeverityEscalation, desc),
	}, nil
}
