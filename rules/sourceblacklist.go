package rules

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/hivewatch/watchdog/classify"
	"github.com/hivewatch/watchdog/engine"
	"github.com/hivewatch/watchdog/report"
)

type SourceBlacklistConfig struct {
	// regular expressions matched against every URL in the body
	Patterns []string
}

// SourceBlacklistDetector flags contest entries which link to a prohibited
// image source.
type SourceBlacklistDetector struct {
	patterns []*regexp.Regexp
}

func NewSourceBlacklistDetector(cfg SourceBlacklistConfig) (*SourceBlacklistDetector, error) {
	if len(cfg.Patterns) == 0 {
		return nil, fmt.Errorf("source blacklist: at least one pattern is required")
	}
	det := &SourceBlacklistDetector{}
	for _, raw := range cfg.Patterns {
		pat, err := regexp.Compile(raw)
		if err != nil {
			return nil, fmt.Errorf("source blacklist: invalid pattern %q: %w", raw, err)
		}
		det.patterns = append(det.patterns, pat)
	}
	return det, nil
}

func (det *SourceBlacklistDetector) ID() string { return "source-blacklist" }

func (det *SourceBlacklistDetector) Evaluate(ctx context.Context, item *engine.Item) (engine.Outcome, error) {
	if item.Kind != classify.Contest {
		return engine.Outcome{}, nil
	}

	var matched []string
	for _, url := range extractURLs(item.Post.Body) {
		for _, pat := range det.patterns {
			if pat.MatchString(url) {
				matched = append(matched, url)
				break
			}
		}
	}
	if len(matched) == 0 {
		return engine.Outcome{}, nil
	}

	desc := fmt.Sprintf("Post by @{author} links to a blacklisted image source: %s", strings.Join(matched, ", "))
	return engine.Outcome{
		Finding: report.NewFinding(item.Post.Author, item.Post.Permlink, det.ID(), report.SeverityViolation, desc),
	}, nil
}
