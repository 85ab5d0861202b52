package hive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// RemoteModerator broadcasts moderation operations through a signing sidecar
// service which holds the community account's posting key. The watchdog
// itself never sees key material.
type RemoteModerator struct {
	logger      *slog.Logger
	client      *http.Client
	endpoint    string
	communityID string
	account     string
}

func NewRemoteModerator(logger *slog.Logger, endpoint, communityID, account string) (*RemoteModerator, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("remote moderator: endpoint is required")
	}
	if communityID == "" || account == "" {
		return nil, fmt.Errorf("remote moderator: community and account are required")
	}
	return &RemoteModerator{
		logger:      logger.With("system", "moderator"),
		client:      &http.Client{Timeout: 30 * time.Second},
		endpoint:    endpoint,
		communityID: communityID,
		account:     account,
	}, nil
}

type broadcastOp struct {
	Op        string `json:"op"`
	Community string `json:"community"`
	Account   string `json:"account"`
	Author    string `json:"author"`
	Permlink  string `json:"permlink"`
	Notes     string `json:"notes,omitempty"`
	Body      string `json:"body,omitempty"`
}

func (m *RemoteModerator) MutePost(ctx context.Context, p *Post, reason string) error {
	return m.broadcast(ctx, broadcastOp{
		Op:        "mutePost",
		Community: m.communityID,
		Account:   m.account,
		Author:    p.Author,
		Permlink:  p.Permlink,
		Notes:     reason,
	})
}

func (m *RemoteModerator) PostComment(ctx context.Context, author, permlink, body string) error {
	return m.broadcast(ctx, broadcastOp{
		Op:        "comment",
		Community: m.communityID,
		Account:   m.account,
		Author:    author,
		Permlink:  permlink,
		Body:      body,
	})
}

func (m *RemoteModerator) broadcast(ctx context.Context, op broadcastOp) error {
	raw, err := json.Marshal(op)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, "POST", m.endpoint, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("broadcasting %s: %w", op.Op, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return fmt.Errorf("broadcasting %s: unexpected status %d", op.Op, resp.StatusCode)
	}
	m.logger.Info("broadcast operation", "op", op.Op, "post", "@"+op.Author+"/"+op.Permlink)
	return nil
}
