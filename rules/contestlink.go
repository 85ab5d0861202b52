package rules

import (
	"context"
	"fmt"
	"regexp"

	"github.com/hivewatch/watchdog/action"
	"github.com/hivewatch/watchdog/classify"
	"github.com/hivewatch/watchdog/engine"
	"github.com/hivewatch/watchdog/report"
)

type ContestLinkConfig struct {
	// account publishing the contest announcement posts
	Account string
}

// ContestLinkDetector requires contest entries to link back to the current
// contest announcement, ie any post by the contest account.
type ContestLinkDetector struct {
	linkPattern *regexp.Regexp
}

func NewContestLinkDetector(cfg ContestLinkConfig) (*ContestLinkDetector, error) {
	if cfg.Account == "" {
		return nil, fmt.Errorf("contest link: account is required")
	}
	pat, err := regexp.Compile(`https?://[^\s<>()"']+/@` + regexp.QuoteMeta(cfg.Account) + `/[\w-]+`)
	if err != nil {
		return nil, fmt.Errorf("contest link: building pattern: %w", err)
	}
	return &ContestLinkDetector{linkPattern: pat}, nil
}

func (det *ContestLinkDetector) ID() string { return "contest-link" }

func (det *ContestLinkDetector) Evaluate(ctx context.Context, item *engine.Item) (engine.Outcome, error) {
	if item.Kind != classify.Contest {
		return engine.Outcome{}, nil
	}
	if det.linkPattern.MatchString(item.Post.Body) {
		return engine.Outcome{}, nil
	}

	desc := "Post by @{author} does not link to the contest announcement"
	return engine.Outcome{
		Finding: report.NewFinding(item.Post.Author, item.Post.Permlink, det.ID(), report.SeverityWarning, desc),
		Action:  &action.MuteAction{Post: item.Post, Reason: "missing contest announcement link"},
	}, nil
}
