package rules

import (
	"context"
	"fmt"
	"regexp"

	"github.com/hivewatch/watchdog/classify"
	"github.com/hivewatch/watchdog/engine"
	"github.com/hivewatch/watchdog/report"
)

var galleryImageRegex = regexp.MustCompile(`https://(?:www\.)?lmac\.gallery/lil-gallery-image/\d+`)

type PerImageConfig struct {
	// weight, in basis points, owed to the creator of each borrowed image
	PerImageWeight int
}

// PerImageDetector checks that a contest entry using gallery images shares
// rewards with the image creators. It counts the embedded gallery links and
// requires one beneficiary entry with the expected weight per image.
type PerImageDetector struct {
	cfg PerImageConfig
}

func NewPerImageDetector(cfg PerImageConfig) (*PerImageDetector, error) {
	if cfg.PerImageWeight <= 0 {
		return nil, fmt.Errorf("per-image beneficiary: weight must be positive")
	}
	return &PerImageDetector{cfg: cfg}, nil
}

func (det *PerImageDetector) ID() string { return "per-image-beneficiary" }

func (det *PerImageDetector) Evaluate(ctx context.Context, item *engine.Item) (engine.Outcome, error) {
	if item.Kind != classify.Contest {
		return engine.Outcome{}, nil
	}

	images := dedupeStrings(galleryImageRegex.FindAllString(item.Post.Body, -1))
	if len(images) == 0 {
		return engine.Outcome{}, nil
	}

	bens, err := item.Post.Beneficiaries(ctx)
	if err != nil {
		return engine.Outcome{}, err
	}
	allocated := 0
	for _, weight := range bens {
		if weight == det.cfg.PerImageWeight {
			allocated++
		}
	}
	if allocated >= len(images) {
		return engine.Outcome{}, nil
	}

	desc := fmt.Sprintf("Post by @{author} uses %d gallery image(s) but only %d beneficiary entries carry the expected %.1f%% share",
		len(images), allocated, float64(det.cfg.PerImageWeight)/100)
	return engine.Outcome{
		Finding: report.NewFinding(item.Post.Author, item.Post.Permlink, det.ID(), report.SeverityViolation, desc),
	}, nil
}
