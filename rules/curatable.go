package rules

import (
	"context"
	"fmt"

	"github.com/hivewatch/watchdog/engine"
	"github.com/hivewatch/watchdog/reflist"
	"github.com/hivewatch/watchdog/report"
)

type CuratableConfig struct {
	// allowlist of authors the curation team already follows
	Allowlist *reflist.Cache
	// a vote by any of these accounts means the post was already reviewed
	Curators []string
}

// CuratableDetector surfaces posts from authors the curation team does not
// follow yet. It produces advisories, not violations, and is meant to run
// after the rule detectors so posts already objected to this run can be
// marked as suspect.
type CuratableDetector struct {
	cfg CuratableConfig
}

func NewCuratableDetector(cfg CuratableConfig) (*CuratableDetector, error) {
	if cfg.Allowlist == nil {
		return nil, fmt.Errorf("curatable: allowlist reference list is required")
	}
	return &CuratableDetector{cfg: cfg}, nil
}

func (det *CuratableDetector) ID() string { return "curatable" }

func (det *CuratableDetector) Evaluate(ctx context.Context, item *engine.Item) (engine.Outcome, error) {
	if !det.cfg.Allowlist.Ready() {
		return engine.Outcome{}, nil
	}
	if det.cfg.Allowlist.Contains(item.Post.Author) {
		return engine.Outcome{}, nil
	}

	if len(det.cfg.Curators) > 0 {
		votes, err := item.Post.Votes(ctx)
		if err != nil {
			return engine.Outcome{}, err
		}
		for _, curator := range det.cfg.Curators {
			if _, voted := votes[curator]; voted {
				return engine.Outcome{}, nil
			}
		}
	}

	desc := "New post by @{author} awaiting curation review"
	finding := report.NewFinding(item.Post.Author, item.Post.Permlink, det.ID(), report.SeverityInfo, desc).
		WithMeta(report.MetaAdvisory, report.AdvisoryCuration).
		WithMeta(report.MetaPostType, item.Kind.String())
	if item.Session != nil && item.Session.WasObjected(item.Post.AuthorPerm()) {
		finding = finding.WithMeta(report.MetaSuspect, "true")
	}
	return engine.Outcome{Finding: finding}, nil
}
