package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	cli "github.com/urfave/cli/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "watchdog",
		Usage:   "community moderation daemon (keeps the gallery clean)",
		Version: versioninfo.Short(),
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "hive-api-url",
			Usage:   "Hive API node to read the feed from",
			Value:   "https://api.hive.blog",
			EnvVars: []string{"WATCHDOG_HIVE_API_URL"},
		},
		&cli.StringFlag{
			Name:    "community",
			Usage:   "community identifier whose posts are monitored",
			Value:   "hive-174695",
			EnvVars: []string{"WATCHDOG_COMMUNITY"},
		},
		&cli.StringSliceFlag{
			Name:    "community-tag",
			Usage:   "tags which identify community content outside the community feed",
			EnvVars: []string{"WATCHDOG_COMMUNITY_TAGS"},
		},
		&cli.StringFlag{
			Name:    "account",
			Usage:   "moderation account whose reply backlog is scanned",
			EnvVars: []string{"WATCHDOG_ACCOUNT"},
		},
	}

	app.Commands = []*cli.Command{
		runCmd,
	}

	return app.Run(args)
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "run the moderation service",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "rules-file",
			Usage:   "path of the detector configuration JSON file",
			Value:   "rules.json",
			EnvVars: []string{"WATCHDOG_RULES_FILE"},
		},
		&cli.StringFlag{
			Name:    "registry-file",
			Usage:   "path of the persisted state document (ignored when redis is configured)",
			Value:   "data/watchdog/registry.json",
			EnvVars: []string{"WATCHDOG_REGISTRY_FILE"},
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "redis connection URL for persisted state, eg redis://localhost:6379/0",
			EnvVars: []string{"WATCHDOG_REDIS_URL"},
		},
		&cli.StringFlag{
			Name:    "broadcast-url",
			Usage:   "signing sidecar endpoint for mute and comment operations",
			EnvVars: []string{"WATCHDOG_BROADCAST_URL"},
		},
		&cli.StringFlag{
			Name:    "webhook-url",
			Usage:   "chat webhook for findings and advisories",
			EnvVars: []string{"WATCHDOG_WEBHOOK_URL"},
		},
		&cli.StringFlag{
			Name:    "advisory-channel",
			Usage:   "chat channel for reply advisories",
			Value:   "moderation",
			EnvVars: []string{"WATCHDOG_ADVISORY_CHANNEL"},
		},
		&cli.StringFlag{
			Name:    "curation-channel",
			Usage:   "chat channel for curation advisories; empty disables the curation sink",
			EnvVars: []string{"WATCHDOG_CURATION_CHANNEL"},
		},
		&cli.StringFlag{
			Name:    "warning-channel",
			Usage:   "chat channel for warning findings",
			EnvVars: []string{"WATCHDOG_WARNING_CHANNEL"},
		},
		&cli.StringFlag{
			Name:    "violation-channel",
			Usage:   "chat channel for violation and escalation findings",
			EnvVars: []string{"WATCHDOG_VIOLATION_CHANNEL"},
		},
		&cli.StringSliceFlag{
			Name:    "excluded-author",
			Usage:   "authors never evaluated",
			EnvVars: []string{"WATCHDOG_EXCLUDED_AUTHORS"},
		},
		&cli.StringSliceFlag{
			Name:    "ignore-replied-by",
			Usage:   "a reply by any of these accounts marks a post as already handled",
			EnvVars: []string{"WATCHDOG_IGNORE_REPLIED_BY"},
		},
		&cli.DurationFlag{
			Name:    "min-post-age",
			Usage:   "posts younger than this are left alone for now",
			Value:   30 * time.Minute,
			EnvVars: []string{"WATCHDOG_MIN_POST_AGE"},
		},
		&cli.DurationFlag{
			Name:    "interval",
			Usage:   "delay between monitoring cycles; zero runs a single cycle and exits",
			EnvVars: []string{"WATCHDOG_INTERVAL"},
		},
		&cli.Float64Flag{
			Name:    "action-rate",
			Usage:   "max moderation operations per second; zero means unlimited",
			Value:   1,
			EnvVars: []string{"WATCHDOG_ACTION_RATE"},
		},
		&cli.BoolFlag{
			Name:    "unify-findings",
			Usage:   "merge findings for the same post before delivery",
			EnvVars: []string{"WATCHDOG_UNIFY_FINDINGS"},
		},
		&cli.BoolFlag{
			Name:    "simulate",
			Usage:   "log intended actions, notifications and state writes without performing them",
			EnvVars: []string{"WATCHDOG_SIMULATE"},
		},
		&cli.StringFlag{
			Name:    "metrics-listen",
			Usage:   "IP or address, and port, to listen on for metrics APIs",
			Value:   ":3989",
			EnvVars: []string{"WATCHDOG_METRICS_LISTEN"},
		},
	},
	Action: func(cctx *cli.Context) error {
		ctx := context.Background()
		logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
		slog.SetDefault(logger)

		// Enable OTLP HTTP exporter
		// For relevant environment variables:
		// https://pkg.go.dev/go.opentelemetry.io/otel/exporters/otlp/otlptrace#readme-environment-variables
		// At a minimum, you need to set
		// OTEL_EXPORTER_OTLP_ENDPOINT=http://localhost:4318
		if ep := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); ep != "" {
			slog.Info("setting up trace exporter", "endpoint", ep)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			exp, err := otlptracehttp.New(ctx)
			if err != nil {
				log.Fatal("failed to create trace exporter", "error", err)
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				if err := exp.Shutdown(ctx); err != nil {
					slog.Error("failed to shutdown trace exporter", "error", err)
				}
			}()

			tp := tracesdk.NewTracerProvider(
				tracesdk.WithBatcher(exp),
				tracesdk.WithResource(resource.NewWithAttributes(
					semconv.SchemaURL,
					semconv.ServiceNameKey.String("watchdog"),
					attribute.String("env", os.Getenv("ENVIRONMENT")),         // DataDog
					attribute.String("environment", os.Getenv("ENVIRONMENT")), // Others
					attribute.Int64("ID", 1),
				)),
			)
			otel.SetTracerProvider(tp)
		}

		srv, err := NewServer(ctx, Config{
			Logger:           logger,
			HiveAPIURL:       cctx.String("hive-api-url"),
			CommunityID:      cctx.String("community"),
			CommunityTags:    cctx.StringSlice("community-tag"),
			Account:          cctx.String("account"),
			RulesFile:        cctx.String("rules-file"),
			RegistryFile:     cctx.String("registry-file"),
			RedisURL:         cctx.String("redis-url"),
			BroadcastURL:     cctx.String("broadcast-url"),
			WebhookURL:       cctx.String("webhook-url"),
			AdvisoryChannel:  cctx.String("advisory-channel"),
			CurationChannel:  cctx.String("curation-channel"),
			WarningChannel:   cctx.String("warning-channel"),
			ViolationChannel: cctx.String("violation-channel"),
			ExcludedAuthors:  cctx.StringSlice("excluded-author"),
			IgnoreRepliedBy:  cctx.StringSlice("ignore-replied-by"),
			MinPostAge:       cctx.Duration("min-post-age"),
			Interval:         cctx.Duration("interval"),
			ActionRate:       cctx.Float64("action-rate"),
			UnifyFindings:    cctx.Bool("unify-findings"),
			Simulate:         cctx.Bool("simulate"),
		})
		if err != nil {
			return err
		}

		go func() {
			if err := srv.RunMetrics(cctx.String("metrics-listen")); err != nil {
				slog.Error("failed to start metrics endpoint", "error", err)
				panic(fmt.Errorf("failed to start metrics endpoint: %w", err))
			}
		}()

		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("failed to run moderation service: %w", err)
		}
		return nil
	},
}
