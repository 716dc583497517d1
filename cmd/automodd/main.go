package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/chatguard/chatguard/automod/chatclient"
	"github.com/chatguard/chatguard/automod/keyword"
	"github.com/chatguard/chatguard/automod/threatintel"
	"github.com/chatguard/chatguard/util/cliutil"
	"github.com/chatguard/chatguard/util/svcutil"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	cli "github.com/urfave/cli/v2"
	_ "go.uber.org/automaxprocs"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "automodd",
		Usage:   "per-server automatic moderation daemon for chat communities",
		Version: versioninfo.Short(),
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "log verbosity level (eg: warn, info, debug)",
			Value:   "info",
			EnvVars: []string{"AUTOMOD_LOG_LEVEL", "LOG_LEVEL"},
		},
		&cli.StringFlag{
			Name:    "chat-api-host",
			Usage:   "base URL of the chat platform REST API",
			Value:   chatclient.DefaultHost,
			EnvVars: []string{"AUTOMOD_CHAT_API_HOST"},
		},
		&cli.StringFlag{
			Name:    "chat-api-token",
			Usage:   "bot token for the chat platform API and gateway",
			EnvVars: []string{"AUTOMOD_CHAT_API_TOKEN", "BOT_TOKEN"},
		},
		&cli.IntFlag{
			Name:    "max-db-connections",
			EnvVars: []string{"AUTOMOD_MAX_DB_CONNECTIONS", "MAX_METADB_CONNECTIONS"},
			Value:   40,
		},
	}

	app.Commands = []*cli.Command{
		runCmd,
	}

	return app.Run(args)
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "run the service",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "database-url",
			Usage:   "policy database (sqlite:// or postgres://)",
			Value:   "sqlite://data/automod/automod.db",
			EnvVars: []string{"DATABASE_URL"},
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "redis connection URL for cooldowns, policy cache and gateway cursor. If not set, state is kept in process memory",
			EnvVars: []string{"AUTOMOD_REDIS_URL"},
		},
		&cli.DurationFlag{
			Name:    "policy-cache-ttl",
			Usage:   "how long server policies are cached",
			Value:   30 * time.Minute,
			EnvVars: []string{"AUTOMOD_POLICY_CACHE_TTL"},
		},
		&cli.StringFlag{
			Name:    "bind",
			Usage:   "IP or address, and port, to listen on for HTTP APIs",
			Value:   ":3999",
			EnvVars: []string{"AUTOMOD_BIND"},
		},
		&cli.StringFlag{
			Name:    "metrics-listen",
			Usage:   "IP or address, and port, to listen on for metrics APIs",
			Value:   ":3998",
			EnvVars: []string{"AUTOMOD_METRICS_LISTEN"},
		},
		&cli.StringFlag{
			Name:    "ingest-token",
			Usage:   "shared secret required (as a bearer token) on event ingest and admin endpoints. If not set, those endpoints are open",
			EnvVars: []string{"AUTOMOD_INGEST_TOKEN"},
		},
		&cli.StringFlag{
			Name:    "gateway-host",
			Usage:   "websocket URL of the chat platform gateway. If not set, events are only accepted over HTTP",
			EnvVars: []string{"AUTOMOD_GATEWAY_HOST"},
		},
		&cli.StringFlag{
			Name:    "toxicity-host",
			Usage:   "base URL of the text toxicity classifier service",
			EnvVars: []string{"AUTOMOD_TOXICITY_HOST"},
		},
		&cli.StringFlag{
			Name:    "toxicity-token",
			Usage:   "bearer token for the text toxicity classifier service",
			EnvVars: []string{"AUTOMOD_TOXICITY_TOKEN"},
		},
		&cli.StringFlag{
			Name:    "nudity-host",
			Usage:   "base URL of the image body-region detector service",
			EnvVars: []string{"AUTOMOD_NUDITY_HOST"},
		},
		&cli.StringFlag{
			Name:    "nsfw-model-host",
			Usage:   "base URL of the whole-image NSFW classifier service (optional, blended in to nudity scores)",
			EnvVars: []string{"AUTOMOD_NSFW_MODEL_HOST"},
		},
		&cli.StringFlag{
			Name:    "nsfw-model-token",
			Usage:   "bearer token for the image classifier services (nudity detector and NSFW model)",
			EnvVars: []string{"AUTOMOD_NSFW_MODEL_TOKEN"},
		},
		&cli.IntFlag{
			Name:    "text-concurrency",
			Usage:   "max concurrent text classification requests",
			Value:   4,
			EnvVars: []string{"AUTOMOD_TEXT_CONCURRENCY"},
		},
		&cli.IntFlag{
			Name:    "image-concurrency",
			Usage:   "max images scored at once",
			Value:   2,
			EnvVars: []string{"AUTOMOD_IMAGE_CONCURRENCY"},
		},
		&cli.IntFlag{
			Name:    "worker-count",
			Usage:   "number of concurrent content item workers",
			Value:   16,
			EnvVars: []string{"AUTOMOD_WORKER_COUNT"},
		},
		&cli.IntFlag{
			Name:    "worker-queue",
			Usage:   "number of content items which may be queued for workers before ingest blocks",
			Value:   1000,
			EnvVars: []string{"AUTOMOD_WORKER_QUEUE"},
		},
		&cli.StringFlag{
			Name:    "threat-feed-url",
			Usage:   "malicious URL feed (URLhaus CSV, optionally zipped)",
			Value:   threatintel.DefaultThreatFeedURL,
			EnvVars: []string{"AUTOMOD_THREAT_FEED_URL"},
		},
		&cli.StringFlag{
			Name:    "sitemap-url",
			Usage:   "chat platform sitemap, listing first-party paths which look like invites",
			Value:   threatintel.DefaultSitemapURL,
			EnvVars: []string{"AUTOMOD_SITEMAP_URL"},
		},
		&cli.DurationFlag{
			Name:    "threat-refresh-interval",
			Value:   threatintel.DefaultInterval,
			EnvVars: []string{"AUTOMOD_THREAT_REFRESH_INTERVAL"},
		},
		&cli.StringFlag{
			Name:    "wordlist-base-url",
			Usage:   "base URL for default per-language profanity lists",
			Value:   keyword.DefaultWordListURL,
			EnvVars: []string{"AUTOMOD_WORDLIST_BASE_URL"},
		},
		&cli.StringFlag{
			Name:    "wordlist-cache-dir",
			Usage:   "local directory for cached word lists (defaults to XDG cache dir)",
			EnvVars: []string{"AUTOMOD_WORDLIST_CACHE_DIR"},
		},
		&cli.StringFlag{
			Name:    "slack-webhook-url",
			Usage:   "Slack webhook URL which receives a copy of every blocking action",
			EnvVars: []string{"SLACK_WEBHOOK_URL"},
		},
		&cli.Float64Flag{
			Name:    "link-fetch-rate-limit",
			Usage:   "max outbound link metadata requests per second",
			Value:   10,
			EnvVars: []string{"AUTOMOD_LINK_FETCH_RATE_LIMIT"},
		},
	},
	Action: func(cctx *cli.Context) error {
		ctx := context.Background()
		logger := svcutil.ConfigLogger(cctx, os.Stdout)

		shutdownOTEL := configOTEL("automodd")
		defer shutdownOTEL()

		db, err := cliutil.SetupDatabase(cctx.String("database-url"), cctx.Int("max-db-connections"))
		if err != nil {
			return err
		}

		srv, err := NewServer(
			db,
			Config{
				Logger:                logger,
				Bind:                  cctx.String("bind"),
				IngestToken:           cctx.String("ingest-token"),
				RedisURL:              cctx.String("redis-url"),
				PolicyCacheTTL:        cctx.Duration("policy-cache-ttl"),
				ChatAPIHost:           cctx.String("chat-api-host"),
				ChatAPIToken:          cctx.String("chat-api-token"),
				GatewayHost:           cctx.String("gateway-host"),
				ToxicityHost:          cctx.String("toxicity-host"),
				ToxicityToken:         cctx.String("toxicity-token"),
				NudityHost:            cctx.String("nudity-host"),
				NSFWModelHost:         cctx.String("nsfw-model-host"),
				NSFWModelToken:        cctx.String("nsfw-model-token"),
				TextConcurrency:       cctx.Int("text-concurrency"),
				ImageConcurrency:      cctx.Int("image-concurrency"),
				WorkerCount:           cctx.Int("worker-count"),
				WorkerQueue:           cctx.Int("worker-queue"),
				ThreatFeedURL:         cctx.String("threat-feed-url"),
				SitemapURL:            cctx.String("sitemap-url"),
				ThreatRefreshInterval: cctx.Duration("threat-refresh-interval"),
				WordListBaseURL:       cctx.String("wordlist-base-url"),
				WordListCacheDir:      cctx.String("wordlist-cache-dir"),
				SlackWebhookURL:       cctx.String("slack-webhook-url"),
				LinkFetchRateLimit:    cctx.Float64("link-fetch-rate-limit"),
			},
		)
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
			return fmt.Errorf("failed to run automod service: %w", err)
		}
		return nil
	},
}
