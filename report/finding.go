// Package report carries rule findings from the monitoring engine to the
// registered delivery sinks.
package report

import (
	"fmt"
	"strings"
)

// Severity of a finding. Ordered: a merged finding keeps the maximum.
type Severity int

const (
	SeverityInfo Severity = iota + 1
	SeverityWarning
	SeverityViolation
	SeverityEscalation
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityViolation:
		return "violation"
	case SeverityEscalation:
		return "escalation"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// ParseSeverity maps the string form back to the level. Used when loading
// channel routing config.
func ParseSeverity(raw string) (Severity, error) {
	switch strings.ToLower(raw) {
	case "info":
		return SeverityInfo, nil
	case "warning":
		return SeverityWarning, nil
	case "violation":
		return SeverityViolation, nil
	case "escalation":
		return SeverityEscalation, nil
	}
	return 0, fmt.Errorf("unknown severity: %q", raw)
}

// Finding describes one detected rule violation (or advisory). Produced
// fresh per detector invocation; merging during dispatch works on copies.
type Finding struct {
	Author   string
	Permlink string
	// Detector identifier. May become a comma-joined list after merging.
	Detector    string
	Severity    Severity
	Description string
	Meta        map[string]string
}

// NewFinding substitutes "{author}" and "{permlink}" placeholders in the
// description text.
func NewFinding(author, permlink, detector string, severity Severity, description string) *Finding {
	r := strings.NewReplacer("{author}", author, "{permlink}", permlink)
	return &Finding{
		Author:      author,
		Permlink:    permlink,
		Detector:    detector,
		Severity:    severity,
		Description: r.Replace(description),
	}
}

func (f *Finding) WithMeta(key, val string) *Finding {
	if f.Meta == nil {
		f.Meta = make(map[string]string)
	}
	f.Meta[key] = val
	return f
}

// DetectorIDs returns the individual detector identifiers, undoing the join
// a unification merge applies to the Detector field.
func (f *Finding) DetectorIDs() []string {
	raw := strings.TrimPrefix(f.Detector, CollaboratedPrefix)
	var ids []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// Subject returns the post identifier the finding refers to.
func (f *Finding) Subject() string {
	return fmt.Sprintf("@%s/%s", f.Author, f.Permlink)
}

// PermalinkURL returns the human-facing URL for the subject post.
func (f *Finding) PermalinkURL() string {
	return "https://peakd.com/" + f.Subject()
}

func (f *Finding) clone() *Finding {
	out := *f
	if f.Meta != nil {
		out.Meta = make(map[string]string, len(f.Meta))
		for k, v := range f.Meta {
			out.Meta[k] = v
		}
	}
	return &out
}
