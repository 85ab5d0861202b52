// Package classify maps a post's title, body and tags to a content type.
// Classification is pure string matching, so it can be unit tested against
// literal fixtures without any network access.
package classify

import "strings"

type PostType int

const (
	Unknown PostType = iota
	Contest
	Series
	SeriesMissingMarker
	Tutorial
)

func (t PostType) String() string {
	switch t {
	case Contest:
		return "contest"
	case Series:
		return "series"
	case SeriesMissingMarker:
		return "series-missing-marker"
	case Tutorial:
		return "tutorial"
	default:
		return "unknown"
	}
}

// Classifier holds the community-specific markers. Rules are evaluated in
// fixed precedence order (first match wins): earlier categories are strictly
// more specific, and a post can satisfy several heuristics at once.
type Classifier struct {
	TutorialMarker string
	TutorialTag    string
	SeriesPrefix   string
	SeriesTag      string
	SeriesMarker   string
	ContestPhrase  string
	ContestWord    string
	ContestTags    []string
	// title keywords which indicate a contest entry when a contest tag is set
	ContestTitleWords []string
}

// Default returns the classifier configured for the reference community.
func Default() *Classifier {
	return &Classifier{
		TutorialMarker:    "tutorial",
		TutorialTag:       "lmacschool",
		SeriesPrefix:      "lil",
		SeriesTag:         "lil",
		SeriesMarker:      `<table class="lil">`,
		ContestPhrase:     "let's make a collage",
		ContestWord:       "round",
		ContestTags:       []string{"letsmakeacollage", "lmac"},
		ContestTitleWords: []string{"round", "contest", "collage", "rondo", "concurso", "lmac special", "prize pool"},
	}
}

// Classify is total and deterministic. Title and body comparisons are
// case-insensitive substring checks; tag comparisons are case-insensitive.
func (c *Classifier) Classify(title, body string, tags []string) PostType {
	lowTitle := strings.ToLower(title)
	lowBody := strings.ToLower(body)

	if strings.Contains(lowTitle, c.TutorialMarker) || hasTag(tags, c.TutorialTag) {
		return Tutorial
	}
	if strings.HasPrefix(lowTitle, strings.ToLower(c.SeriesPrefix)) {
		if !strings.Contains(lowBody, strings.ToLower(c.SeriesMarker)) {
			return SeriesMissingMarker
		}
		if hasTag(tags, c.SeriesTag) {
			return Series
		}
	}
	if strings.Contains(lowBody, c.ContestPhrase) && strings.Contains(lowBody, c.ContestWord) && c.hasContestTag(tags) {
		return Contest
	}
	if c.hasContestTag(tags) {
		for _, w := range c.ContestTitleWords {
			if strings.Contains(lowTitle, w) {
				return Contest
			}
		}
	}
	return Unknown
}

func (c *Classifier) hasContestTag(tags []string) bool {
	for _, t := range c.ContestTags {
		if hasTag(tags, t) {
			return true
		}
	}
	return false
}

func hasTag(tags []string, want string) bool {
	for _, t := range tags {
		if strings.EqualFold(t, want) {
			return true
		}
	}
	return false
}
