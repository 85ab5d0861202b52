package report

import (
	"context"
	"fmt"

	"github.com/hivewatch/watchdog/notify"
)

// ChatSink forwards findings to chat channels, routed by severity. Findings
// whose severity has no configured channel are skipped silently.
type ChatSink struct {
	sender   notify.Sender
	channels map[Severity]string
}

func NewChatSink(sender notify.Sender, channels map[Severity]string) (*ChatSink, error) {
	if sender == nil {
		return nil, fmt.Errorf("chat sink: sender is required")
	}
	if len(channels) == 0 {
		return nil, fmt.Errorf("chat sink: at least one severity channel is required")
	}
	return &ChatSink{sender: sender, channels: channels}, nil
}

func (s *ChatSink) Name() string { return "chat" }

func (s *ChatSink) Deliver(ctx context.Context, f *Finding) error {
	channel, ok := s.channels[f.Severity]
	if !ok {
		return nil
	}
	msg := fmt.Sprintf("%s\n%s", f.Description, f.PermalinkURL())
	return s.sender.Deliver(ctx, channel, msg)
}
