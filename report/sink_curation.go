package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hivewatch/watchdog/hive"
	"github.com/hivewatch/watchdog/notify"
)

// Meta keys set by advisory-producing detectors and consumed here.
const (
	MetaAdvisory = "advisory"
	MetaPostType = "postType"
	MetaSuspect  = "suspect"

	AdvisoryCuration = "curation"
)

// CurationSink forwards curation advisories to a single channel, enriched
// with contributor statistics when the directory knows the author. All other
// findings are skipped.
type CurationSink struct {
	sender    notify.Sender
	directory hive.SubscriberDirectory
	channel   string
	now       func() time.Time
}

// NewCurationSink requires the target channel; directory may be nil, in
// which case the short message format is used.
func NewCurationSink(sender notify.Sender, directory hive.SubscriberDirectory, channel string) (*CurationSink, error) {
	if sender == nil {
		return nil, fmt.Errorf("curation sink: sender is required")
	}
	if channel == "" {
		return nil, fmt.Errorf("curation sink: channel is required")
	}
	return &CurationSink{
		sender:    sender,
		directory: directory,
		channel:   channel,
		now:       time.Now,
	}, nil
}

func (s *CurationSink) Name() string { return "curation" }

func (s *CurationSink) Deliver(ctx context.Context, f *Finding) error {
	if f.Meta[MetaAdvisory] != AdvisoryCuration {
		return nil
	}

	var info *hive.SubscriberInfo
	if s.directory != nil {
		var err error
		info, err = s.directory.SubscriberInfo(ctx, f.Author)
		if err != nil {
			// stats are decoration; deliver the short form instead
			info = nil
		}
	}
	return s.sender.Deliver(ctx, s.channel, s.format(f, info))
}

func (s *CurationSink) format(f *Finding, info *hive.SubscriberInfo) string {
	var b strings.Builder

	if f.Meta[MetaSuspect] == "true" {
		b.WriteString(":warning: This post is suspected of violating the rules.\n")
	}
	if info != nil {
		ratio := 0.0
		if info.Posts > 0 && info.Comments > 0 {
			ratio = float64(info.Posts) / float64(info.Comments)
		}
		days := int(s.now().Sub(info.Joined).Hours() / 24)
		fmt.Fprintf(&b, "%s\n- 📅: %d days\n- ✉️: %d posts\n- 💬: %d comments\n- ✉/💬: %.2f (%s)\n",
			f.Author, days, info.Posts, info.Comments, ratio, ratioIcon(ratio))
	}
	b.WriteString(postTypeText(f.Meta[MetaPostType]))
	b.WriteString("\n")
	b.WriteString(f.PermalinkURL())
	return b.String()
}

// Low post-to-comment ratio suggests an engaged contributor.
func ratioIcon(ratio float64) string {
	switch {
	case ratio < 1:
		return "🟢"
	case ratio < 2:
		return "🟡"
	default:
		return "🔴"
	}
}

func postTypeText(postType string) string {
	switch postType {
	case "contest":
		return "Contest entry."
	case "series":
		return "Gallery series contribution."
	case "series-missing-marker":
		return "Could be a gallery series contribution, but the marker table is missing."
	case "tutorial":
		return "Tutorial."
	default:
		return "Unknown post type."
	}
}
