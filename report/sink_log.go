package report

import (
	"context"
	"log/slog"
)

// LogSink writes every finding to the structured log.
type LogSink struct {
	Logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{Logger: logger.With("sink", "log")}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Deliver(ctx context.Context, f *Finding) error {
	s.Logger.Info("finding",
		"subject", f.Subject(),
		"detector", f.Detector,
		"severity", f.Severity.String(),
		"description", f.Description,
	)
	return nil
}
