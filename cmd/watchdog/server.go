package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hivewatch/watchdog/action"
	"github.com/hivewatch/watchdog/classify"
	"github.com/hivewatch/watchdog/engine"
	"github.com/hivewatch/watchdog/hive"
	"github.com/hivewatch/watchdog/notify"
	"github.com/hivewatch/watchdog/reflist"
	"github.com/hivewatch/watchdog/registry"
	"github.com/hivewatch/watchdog/report"
	"github.com/hivewatch/watchdog/rules"
)

type Server struct {
	logger   *slog.Logger
	engine   *engine.Engine
	registry *registry.Registry
	interval time.Duration
}

type Config struct {
	Logger           *slog.Logger
	HiveAPIURL       string
	CommunityID      string
	CommunityTags    []string
	Account          string
	RulesFile        string
	RegistryFile     string
	RedisURL         string
	BroadcastURL     string
	WebhookURL       string
	AdvisoryChannel  string
	CurationChannel  string
	WarningChannel   string
	ViolationChannel string
	ExcludedAuthors  []string
	IgnoreRepliedBy  []string
	MinPostAge       time.Duration
	Interval         time.Duration
	ActionRate       float64
	UnifyFindings    bool
	Simulate         bool
}

// rulesFile is the on-disk detector configuration. An absent section
// disables the detector; a present but invalid section is fatal at startup,
// because silently skipping a misconfigured detector would leave an
// undetected compliance gap.
type rulesFile struct {
	SourceBlacklist *rules.SourceBlacklistConfig `json:"sourceBlacklist"`
	Beneficiary     *rules.BeneficiaryConfig     `json:"beneficiary"`
	PerImage        *rules.PerImageConfig        `json:"perImageBeneficiary"`
	MarkerTable     *struct{}                    `json:"markerTable"`
	BadWords        *rules.BadWordsConfig        `json:"badWords"`
	ContestLink     *rules.ContestLinkConfig     `json:"contestLink"`
	Downvote        *rules.DownvoteConfig        `json:"downvote"`
	Denylist        *struct {
		SourceURL string `json:"sourceUrl"`
	} `json:"denylist"`
	Curatable *struct {
		SourceURL string   `json:"sourceUrl"`
		Curators  []string `json:"curators"`
	} `json:"curatable"`
	// overrides for the built-in comment reply templates, keyed by detector
	CommentTemplates map[string]string `json:"commentTemplates"`
}

func loadRulesFile(path string) (*rulesFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules file: %w", err)
	}
	var rf rulesFile
	if err := json.Unmarshal(raw, &rf); err != nil {
		return nil, fmt.Errorf("parsing rules file %s: %w", path, err)
	}
	return &rf, nil
}

func NewServer(ctx context.Context, config Config) (*Server, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}
	if config.Account == "" {
		return nil, fmt.Errorf("moderation account is required")
	}

	rf, err := loadRulesFile(config.RulesFile)
	if err != nil {
		return nil, err
	}

	var store registry.Store
	if config.RedisURL != "" {
		store, err = registry.NewRedisStore(config.RedisURL)
		if err != nil {
			return nil, err
		}
		logger.Info("using redis registry store")
	} else {
		store = registry.NewFileStore(config.RegistryFile)
		logger.Info("using file registry store", "path", config.RegistryFile)
	}
	reg, err := registry.Load(ctx, logger, store, config.Simulate)
	if err != nil {
		return nil, err
	}

	feed, err := hive.NewClient(logger, config.HiveAPIURL)
	if err != nil {
		return nil, err
	}

	var moderator hive.Moderator
	if config.BroadcastURL != "" {
		moderator, err = hive.NewRemoteModerator(logger, config.BroadcastURL, config.CommunityID, config.Account)
		if err != nil {
			return nil, err
		}
	}
	simulateActions := config.Simulate
	if moderator == nil && !simulateActions {
		logger.Warn("no broadcast endpoint configured, actions run in simulate mode")
		simulateActions = true
	}

	var sender notify.Sender
	if config.WebhookURL != "" && !config.Simulate {
		sender = notify.NewWebhookSender(config.WebhookURL)
	} else {
		sender = &notify.LogSender{Logger: logger}
	}

	detectors, refLists, err := buildDetectors(logger, reg, rf)
	if err != nil {
		return nil, err
	}

	sinks, err := buildSinks(logger, config, rf, sender, feed, moderator)
	if err != nil {
		return nil, err
	}

	eng := &engine.Engine{
		Logger:     logger,
		Feed:       feed,
		Classifier: classify.Default(),
		Detectors:  detectors,
		Dispatcher: report.NewDispatcher(logger, config.UnifyFindings, sinks...),
		Actions: action.NewQueue(logger, moderator, action.QueueConfig{
			Simulate:     simulateActions,
			OpsPerSecond: config.ActionRate,
		}),
		Notifier: sender,
		Registry: reg,
		RefLists: refLists,
		Config: engine.Config{
			CommunityID:     config.CommunityID,
			CommunityTags:   config.CommunityTags,
			Account:         config.Account,
			AdvisoryChannel: config.AdvisoryChannel,
			ExcludedAuthors: config.ExcludedAuthors,
			IgnoreRepliedBy: config.IgnoreRepliedBy,
			MinPostAge:      config.MinPostAge,
		},
	}
	if err := eng.Init(); err != nil {
		return nil, err
	}

	return &Server{
		logger:   logger,
		engine:   eng,
		registry: reg,
		interval: config.Interval,
	}, nil
}

// buildDetectors constructs the configured detectors in evaluation order. The
// curation detector comes last so it can see which posts were already
// objected to.
func buildDetectors(logger *slog.Logger, reg *registry.Registry, rf *rulesFile) ([]engine.Detector, []*reflist.Cache, error) {
	var detectors []engine.Detector
	var refLists []*reflist.Cache
	add := func(det engine.Detector, err error) error {
		if err != nil {
			return err
		}
		detectors = append(detectors, det)
		logger.Info("detector enabled", "detector", det.ID())
		return nil
	}

	if rf.SourceBlacklist != nil {
		if err := add(rules.NewSourceBlacklistDetector(*rf.SourceBlacklist)); err != nil {
			return nil, nil, err
		}
	}
	if rf.Beneficiary != nil {
		if err := add(rules.NewBeneficiaryDetector(*rf.Beneficiary)); err != nil {
			return nil, nil, err
		}
	}
	if rf.PerImage != nil {
		if err := add(rules.NewPerImageDetector(*rf.PerImage)); err != nil {
			return nil, nil, err
		}
	}
	if rf.MarkerTable != nil {
		if err := add(rules.NewMarkerTableDetector(), nil); err != nil {
			return nil, nil, err
		}
	}
	if rf.BadWords != nil {
		if err := add(rules.NewBadWordsDetector(*rf.BadWords)); err != nil {
			return nil, nil, err
		}
	}
	if rf.ContestLink != nil {
		if err := add(rules.NewContestLinkDetector(*rf.ContestLink)); err != nil {
			return nil, nil, err
		}
	}
	if rf.Downvote != nil {
		if err := add(rules.NewDownvoteDetector(*rf.Downvote)); err != nil {
			return nil, nil, err
		}
	}
	if rf.Denylist != nil {
		list, err := reflist.New(logger, reg, reflist.Config{
			Realm:     "reflists",
			Key:       "denylist",
			SourceURL: rf.Denylist.SourceURL,
		})
		if err != nil {
			return nil, nil, err
		}
		refLists = append(refLists, list)
		if err := add(rules.NewDenylistDetector(list)); err != nil {
			return nil, nil, err
		}
	}
	if rf.Curatable != nil {
		list, err := reflist.New(logger, reg, reflist.Config{
			Realm:     "reflists",
			Key:       "curation-allowlist",
			SourceURL: rf.Curatable.SourceURL,
		})
		if err != nil {
			return nil, nil, err
		}
		refLists = append(refLists, list)
		if err := add(rules.NewCuratableDetector(rules.CuratableConfig{
			Allowlist: list,
			Curators:  rf.Curatable.Curators,
		})); err != nil {
			return nil, nil, err
		}
	}
	return detectors, refLists, nil
}

func buildSinks(logger *slog.Logger, config Config, rf *rulesFile, sender notify.Sender, directory hive.SubscriberDirectory, moderator hive.Moderator) ([]report.Sink, error) {
	sinks := []report.Sink{report.NewLogSink(logger)}

	channels := make(map[report.Severity]string)
	if config.WarningChannel != "" {
		channels[report.SeverityWarning] = config.WarningChannel
	}
	if config.ViolationChannel != "" {
		channels[report.SeverityViolation] = config.ViolationChannel
		channels[report.SeverityEscalation] = config.ViolationChannel
	}
	if len(channels) > 0 {
		chat, err := report.NewChatSink(sender, channels)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, chat)
	}

	if config.CurationChannel != "" {
		curation, err := report.NewCurationSink(sender, directory, config.CurationChannel)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, curation)
	}

	if moderator != nil && !config.Simulate {
		templates := make(map[string]string, len(report.DefaultCommentTemplates))
		for k, v := range report.DefaultCommentTemplates {
			templates[k] = v
		}
		for k, v := range rf.CommentTemplates {
			templates[k] = v
		}
		comment, err := report.NewCommentSink(moderator, templates)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, comment)
	}
	return sinks, nil
}

// Run executes monitoring cycles until the context or a termination signal
// stops it. A zero interval runs a single cycle and exits.
func (s *Server) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if s.interval == 0 {
		return s.engine.RunCycle(ctx)
	}

	s.logger.Info("starting monitoring loop", "interval", s.interval)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		if err := s.engine.RunCycle(ctx); err != nil {
			s.logger.Error("monitoring cycle failed", "err", err)
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			s.logger.Info("shutting down")
			// cycles persist after themselves; this catches a cycle
			// interrupted between Set and SaveAll
			saveCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := s.registry.SaveAll(saveCtx); err != nil {
				s.logger.Error("final registry save failed", "err", err)
			}
			return nil
		}
	}
}

func (s *Server) RunMetrics(listen string) error {
	http.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(listen, nil)
}
