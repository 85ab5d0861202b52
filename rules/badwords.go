package rules

import (
	"context"
	"fmt"
	"strings"

	"github.com/hivewatch/watchdog/engine"
	"github.com/hivewatch/watchdog/report"
)

type BadWordsConfig struct {
	Words []string
}

// BadWordsDetector flags prohibited language in the post body, regardless of
// post type.
type BadWordsDetector struct {
	words []string
}

func NewBadWordsDetector(cfg BadWordsConfig) (*BadWordsDetector, error) {
	if len(cfg.Words) == 0 {
		return nil, fmt.Errorf("bad words: at least one word is required")
	}
	det := &BadWordsDetector{}
	for _, w := range cfg.Words {
		det.words = append(det.words, strings.ToLower(w))
	}
	return det, nil
}

func (det *BadWordsDetector) ID() string { return "bad-words" }

func (det *BadWordsDetector) Evaluate(ctx context.Context, item *engine.Item) (engine.Outcome, error) {
	body := strings.ToLower(item.Post.Body)
	var matched []string
	for _, w := range det.words {
		if strings.Contains(body, w) {
			matched = append(matched, w)
		}
	}
	if len(matched) == 0 {
		return engine.Outcome{}, nil
	}

	desc := fmt.Sprintf("Post by @{author} contains prohibited language: %s", strings.Join(matched, ", "))
	return engine.Outcome{
		Finding: report.NewFinding(item.Post.Author, item.Post.Permlink, det.ID(), report.SeverityViolation, desc),
	}, nil
}
