package rules

import (
	"context"

	"github.com/hivewatch/watchdog/classify"
	"github.com/hivewatch/watchdog/engine"
	"github.com/hivewatch/watchdog/report"
)

// MarkerTableDetector flags posts which look like a gallery series
// contribution but omit the machine-readable marker table, so the gallery
// indexer cannot pick them up.
type MarkerTableDetector struct{}

func NewMarkerTableDetector() *MarkerTableDetector {
	return &MarkerTableDetector{}
}

func (det *MarkerTableDetector) ID() string { return "marker-table" }

func (det *MarkerTableDetector) Evaluate(ctx context.Context, item *engine.Item) (engine.Outcome, error) {
	if item.Kind != classify.SeriesMissingMarker {
		return engine.Outcome{}, nil
	}
	desc := "Post by @{author} looks like a gallery series contribution but is missing the marker table"
	return engine.Outcome{
		Finding: report.NewFinding(item.Post.Author, item.Post.Permlink, det.ID(), report.SeverityWarning, desc),
	}, nil
}
