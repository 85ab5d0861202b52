package rules

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/hivewatch/watchdog/engine"
	"github.com/hivewatch/watchdog/report"
)

type DownvoteConfig struct {
	// accounts whose downvote is treated as a moderation signal
	Authorities []string
}

// DownvoteDetector escalates posts already downvoted by a trusted authority
// account, typically an anti-abuse service.
type DownvoteDetector struct {
	cfg DownvoteConfig
}

func NewDownvoteDetector(cfg DownvoteConfig) (*DownvoteDetector, error) {
	if len(cfg.Authorities) == 0 {
		return nil, fmt.Errorf("downvote: at least one authority account is required")
	}
	return &DownvoteDetector{cfg: cfg}, nil
}

func (det *DownvoteDetector) ID() string { return "downvote" }

func (det *DownvoteDetector) Evaluate(ctx context.Context, item *engine.Item) (engine.Outcome, error) {
	votes, err := item.Post.Votes(ctx)
	if err != nil {
		return engine.Outcome{}, err
	}

	var voters []string
	for _, authority := range det.cfg.Authorities {
		if votes[authority] < 0 {
			voters = append(voters, "@"+authority)
		}
	}
	if len(voters) == 0 {
		return engine.Outcome{}, nil
	}
	sort.Strings(voters)

	desc := fmt.Sprintf("Post by @{author} was downvoted by %s", strings.Join(voters, ", "))
	return engine.Outcome{
		Finding: report.NewFinding(item.Post.Author, item.Post.Permlink, det.ID(), report.SeverityEscalation, desc),
	}, nil
}
