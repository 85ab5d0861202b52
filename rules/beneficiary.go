package rules

import (
	"context"
	"fmt"

	"github.com/hivewatch/watchdog/action"
	"github.com/hivewatch/watchdog/classify"
	"github.com/hivewatch/watchdog/engine"
	"github.com/hivewatch/watchdog/report"
)

type BeneficiaryConfig struct {
	// account which must receive part of the post rewards
	Account string
	// minimum acceptable weight, in basis points
	MinimumWeight int
	// community administrators are exempt
	Admins []string
	// frequent misspellings of the account name, flagged before the main
	// weight check
	TypoVariants []string
}

// BeneficiaryDetector enforces the reward-sharing rule on contest entries and
// gallery series contributions.
type BeneficiaryDetector struct {
	cfg BeneficiaryConfig
}

func NewBeneficiaryDetector(cfg BeneficiaryConfig) (*BeneficiaryDetector, error) {
	if cfg.Account == "" {
		return nil, fmt.Errorf("beneficiary: account is required")
	}
	if cfg.MinimumWeight <= 0 {
		return nil, fmt.Errorf("beneficiary: minimum weight must be positive")
	}
	return &BeneficiaryDetector{cfg: cfg}, nil
}

func (det *BeneficiaryDetector) ID() string { return "beneficiary" }

func (det *BeneficiaryDetector) Evaluate(ctx context.Context, item *engine.Item) (engine.Outcome, error) {
	if item.Kind != classify.Contest && item.Kind != classify.Series {
		return engine.Outcome{}, nil
	}
	if containsFold(det.cfg.Admins, item.Post.Author) {
		return engine.Outcome{}, nil
	}

	bens, err := item.Post.Beneficiaries(ctx)
	if err != nil {
		return engine.Outcome{}, err
	}

	for _, typo := range det.cfg.TypoVariants {
		if _, ok := bens[typo]; ok {
			desc := fmt.Sprintf("Post by @{author} sets beneficiary %q, probably a typo for %q", typo, det.cfg.Account)
			return engine.Outcome{
				Finding: report.NewFinding(item.Post.Author, item.Post.Permlink, det.ID(), report.SeverityWarning, desc),
			}, nil
		}
	}

	if bens[det.cfg.Account] >= det.cfg.MinimumWeight {
		return engine.Outcome{}, nil
	}

	desc := fmt.Sprintf("Post by @{author} does not allocate the required %.1f%% to @%s",
		float64(det.cfg.MinimumWeight)/100, det.cfg.Account)
	return engine.Outcome{
		Finding: report.NewFinding(item.Post.Author, item.Post.Permlink, det.ID(), report.SeverityWarning, desc),
		Action:  &action.MuteAction{Post: item.Post, Reason: "missing required beneficiary setting"},
	}, nil
}
