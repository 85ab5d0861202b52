package report

import (
	"context"
	"fmt"

	"github.com/flosch/pongo2/v6"

	"github.com/hivewatch/watchdog/hive"
)

// Default comment templates, keyed by detector id. Overridable from the
// rules config file.
var DefaultCommentTemplates = map[string]string{
	"beneficiary": "Dear @{{ author }},\n\n" +
		"your contribution does not set the required beneficiary. " +
		"Please edit the post and add the missing beneficiary setting, otherwise it cannot be rewarded.\n\n" +
		"Your friendly watchdog",
	"contest-link": "Dear @{{ author }},\n\n" +
		"we could not find a link to the current contest announcement in your entry. " +
		"Please add the link so your entry can be counted.\n\n" +
		"Your friendly watchdog",
}

// CommentSink answers selected findings with an automated on-platform reply
// under the offending post. Only findings whose detector has a configured
// template are answered.
type CommentSink struct {
	moderator hive.Moderator
	templates map[string]*pongo2.Template
}

// NewCommentSink compiles all templates eagerly so that a malformed template
// fails at startup, not during a cycle.
func NewCommentSink(moderator hive.Moderator, templates map[string]string) (*CommentSink, error) {
	if moderator == nil {
		return nil, fmt.Errorf("comment sink: moderator client is required")
	}
	if len(templates) == 0 {
		return nil, fmt.Errorf("comment sink: at least one template is required")
	}
	compiled := make(map[string]*pongo2.Template, len(templates))
	for detector, src := range templates {
		tpl, err := pongo2.FromString(src)
		if err != nil {
			return nil, fmt.Errorf("comment sink: compiling template for %q: %w", detector, err)
		}
		compiled[detector] = tpl
	}
	return &CommentSink{moderator: moderator, templates: compiled}, nil
}

func (s *CommentSink) Name() string { return "comment" }

func (s *CommentSink) Deliver(ctx context.Context, f *Finding) error {
	// a merged finding carries several detector ids; it still gets at most
	// one reply, from the first id with a template
	var tpl *pongo2.Template
	for _, id := range f.DetectorIDs() {
		if t, ok := s.templates[id]; ok {
			tpl = t
			break
		}
	}
	if tpl == nil {
		return nil
	}
	body, err := tpl.Execute(pongo2.Context{
		"author":   f.Author,
		"permlink": f.Permlink,
		"subject":  f.Subject(),
	})
	if err != nil {
		return fmt.Errorf("rendering comment: %w", err)
	}
	return s.moderator.PostComment(ctx, f.Author, f.Permlink, body)
}
