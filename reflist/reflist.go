// Package reflist caches externally hosted account lists (allow- or
// deny-lists) with a refresh interval, persisting the cached state in the
// registry so restarts do not hammer the source.
package reflist

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/hivewatch/watchdog/registry"
)

// DefaultRefreshInterval between successful fetches of the source document.
const DefaultRefreshInterval = 24 * time.Hour

// DefaultStartMarker precedes the newline-delimited identifier list inside
// the source document.
const DefaultStartMarker = "### Blacklist in alphabetic order"

// the list lives inside the first "doc" div of the fetched page
var blockPattern = regexp.MustCompile(`(?s)<div id="doc"[^>]*>(.*?)</div>`)

type state struct {
	List        []string `json:"list"`
	NextRefresh int64    `json:"nextRefresh"`
}

type Config struct {
	// registry namespace the cached state is persisted under
	Realm string
	Key   string

	SourceURL   string
	StartMarker string
	Interval    time.Duration
}

// Cache holds the current list and its next-refresh deadline. While the
// current time is before the deadline the cached list is authoritative and
// no fetch occurs. A failed refresh keeps the previous list and does not
// advance the deadline, so the next cycle retries.
type Cache struct {
	logger  *slog.Logger
	reg     *registry.Registry
	cfg     Config
	client  *retryablehttp.Client
	now     func() time.Time
	fetch   func(ctx context.Context) (string, error)
	list    []string
	members map[string]bool
	next    time.Time
}

func New(logger *slog.Logger, reg *registry.Registry, cfg Config) (*Cache, error) {
	if cfg.SourceURL == "" {
		return nil, fmt.Errorf("reference list: source URL is required")
	}
	if cfg.Realm == "" || cfg.Key == "" {
		return nil, fmt.Errorf("reference list: registry realm and key are required")
	}
	if cfg.StartMarker == "" {
		cfg.StartMarker = DefaultStartMarker
	}
	if cfg.Interval == 0 {
		cfg.Interval = DefaultRefreshInterval
	}

	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.Logger = nil

	c := &Cache{
		logger: logger.With("system", "reflist", "list", cfg.Key),
		reg:    reg,
		cfg:    cfg,
		client: client,
		now:    time.Now,
	}
	c.fetch = c.fetchSource

	var st state
	if _, err := reg.Get(cfg.Realm, cfg.Key, &st); err != nil {
		return nil, err
	}
	c.replace(st.List)
	c.next = time.Unix(st.NextRefresh, 0)
	return c, nil
}

// Refresh fetches the source when the cached list has expired. Errors are
// non-fatal to the caller by contract; they are returned so the orchestrator
// can log and count them.
func (c *Cache) Refresh(ctx context.Context) error {
	if c.now().Before(c.next) {
		return nil
	}
	doc, err := c.fetch(ctx)
	if err != nil {
		return fmt.Errorf("fetching reference list: %w", err)
	}
	list, err := parseReferenceList(doc, c.cfg.StartMarker)
	if err != nil {
		return fmt.Errorf("parsing reference list: %w", err)
	}

	c.replace(list)
	c.next = c.now().Add(c.cfg.Interval)
	if err := c.reg.Set(c.cfg.Realm, c.cfg.Key, state{List: c.list, NextRefresh: c.next.Unix()}); err != nil {
		return err
	}
	c.logger.Info("reference list refreshed", "entries", len(c.list), "nextRefresh", c.next)
	return nil
}

// Ready reports whether the cache has ever been warmed. Consumers must treat
// an empty list as "not yet available", not as "nothing is listed".
func (c *Cache) Ready() bool {
	return len(c.list) > 0
}

func (c *Cache) Contains(name string) bool {
	return c.members[name]
}

func (c *Cache) Size() int {
	return len(c.list)
}

func (c *Cache) replace(list []string) {
	c.list = list
	c.members = make(map[string]bool, len(list))
	for _, name := range list {
		c.members[name] = true
	}
}

func (c *Cache) fetchSource(ctx context.Context) (string, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, "GET", c.cfg.SourceURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return "", fmt.Errorf("unexpected status %d from %s", resp.StatusCode, c.cfg.SourceURL)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// parseReferenceList extracts the identifier list from the fetched document:
// one HTML block, a literal start marker, then one identifier per line to
// the end of the block.
func parseReferenceList(doc, startMarker string) ([]string, error) {
	m := blockPattern.FindStringSubmatch(doc)
	if m == nil {
		return nil, fmt.Errorf("document block not found")
	}
	block := m[1]
	idx := strings.Index(block, startMarker)
	if idx < 0 {
		return nil, fmt.Errorf("start marker not found")
	}
	var list []string
	for _, line := range strings.Split(block[idx+len(startMarker):], "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		list = append(list, line)
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("empty identifier list")
	}
	return list, nil
}
