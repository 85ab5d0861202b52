// Package action buffers remedial actions suggested during rule evaluation
// and executes them only after the monitoring cycle completes. This keeps
// detectors read-only over a consistent item set and makes a dry-run mode
// possible.
package action

import (
	"context"
	"fmt"

	"github.com/hivewatch/watchdog/hive"
)

// Action is one automated enforcement step. Created by a detector, owned by
// the queue until applied exactly once.
type Action interface {
	Describe() string
	Apply(ctx context.Context, mod hive.Moderator) error
}

// MuteAction mutes a post in the community.
type MuteAction struct {
	Post   *hive.Post
	Reason string
}

func (a *MuteAction) Describe() string {
	return fmt.Sprintf("mute %s: %s", a.Post.AuthorPerm(), a.Reason)
}

func (a *MuteAction) Apply(ctx context.Context, mod hive.Moderator) error {
	return mod.MutePost(ctx, a.Post, a.Reason)
}
