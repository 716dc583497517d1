package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/chatguard/chatguard/automod/cachestore"
	"github.com/chatguard/chatguard/automod/chatclient"
	"github.com/chatguard/chatguard/automod/consumer"
	"github.com/chatguard/chatguard/automod/cooldown"
	"github.com/chatguard/chatguard/automod/engine"
	"github.com/chatguard/chatguard/automod/keyword"
	"github.com/chatguard/chatguard/automod/langdetect"
	"github.com/chatguard/chatguard/automod/linkmeta"
	"github.com/chatguard/chatguard/automod/policy"
	"github.com/chatguard/chatguard/automod/rules"
	"github.com/chatguard/chatguard/automod/textclass"
	"github.com/chatguard/chatguard/automod/threatintel"
	"github.com/chatguard/chatguard/automod/visual"
	"github.com/chatguard/chatguard/util"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

var (
	_ engine.ThreatIndex       = (*threatintel.Index)(nil)
	_ engine.ProfanityMatchers = (*keyword.MatcherSet)(nil)
	_ engine.LanguageDetector  = (*langdetect.LinguaDetector)(nil)
	_ engine.TextClassifier    = (*textclass.Client)(nil)
	_ engine.NudityScorer      = (*visual.Scorer)(nil)
	_ engine.LinkClassifier    = (*linkmeta.Fetcher)(nil)
)

type Server struct {
	logger      *slog.Logger
	engine      *engine.Engine
	policies    policy.PolicyStore
	dispatcher  *consumer.Dispatcher
	gateway     *consumer.GatewayConsumer
	refresher   *threatintel.Refresher
	wordlists   *keyword.WordListLoader
	profanity   *keyword.MatcherSet
	languages   *langdetect.LinguaDetector
	text        *textclass.Client
	rdb         *redis.Client
	ingestToken string
	// set when cooldowns are kept in process memory
	memCooldowns *cooldown.MemCooldownStore

	echo  *echo.Echo
	httpd *http.Server
}

type Config struct {
	Logger                *slog.Logger
	Bind                  string
	IngestToken           string
	RedisURL              string
	PolicyCacheTTL        time.Duration
	ChatAPIHost           string
	ChatAPIToken          string
	GatewayHost           string
	ToxicityHost          string
	ToxicityToken         string
	NudityHost            string
	NSFWModelHost         string
	NSFWModelToken        string
	TextConcurrency       int
	ImageConcurrency      int
	WorkerCount           int
	WorkerQueue           int
	ThreatFeedURL         string
	SitemapURL            string
	ThreatRefreshInterval time.Duration
	WordListBaseURL       string
	WordListCacheDir      string
	SlackWebhookURL       string
	LinkFetchRateLimit    float64
}

func NewServer(db *gorm.DB, config Config) (*Server, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	gatewayURL := util.GatewayURL(config.GatewayHost)
	if gatewayURL != "" && !strings.HasPrefix(gatewayURL, "ws") {
		return nil, fmt.Errorf("specified gateway host must be a websocket or http URL")
	}

	var cooldowns cooldown.CooldownStore
	var memCooldowns *cooldown.MemCooldownStore
	var cache cachestore.CacheStore
	var rdb *redis.Client
	if config.RedisURL != "" {
		// generic client, shared by cooldowns, policy cache and cursor state
		opt, err := redis.ParseURL(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis URL: %v", err)
		}
		rdb = redis.NewClient(opt)
		// check redis connection
		_, err = rdb.Ping(context.TODO()).Result()
		if err != nil {
			return nil, fmt.Errorf("redis ping failed: %v", err)
		}
		cooldowns = &cooldown.RedisCooldownStore{Client: rdb, Window: cooldown.DefaultWindow}
		cache = cachestore.NewRedisCacheStoreFromClient(rdb, config.PolicyCacheTTL)
	} else {
		memCooldowns = cooldown.NewMemCooldownStore()
		cooldowns = memCooldowns
		cache = cachestore.NewMemCacheStore(5_000, config.PolicyCacheTTL)
	}

	dbPolicies, err := policy.NewGormPolicyStore(db)
	if err != nil {
		return nil, fmt.Errorf("initializing policy store: %v", err)
	}
	policies := policy.NewCachedPolicyStore(dbPolicies, cache)

	chat := chatclient.NewClient(config.ChatAPIHost, config.ChatAPIToken)
	index := threatintel.NewIndex()
	profanity := keyword.NewMatcherSet(nil)
	languages := langdetect.NewLinguaDetector(keyword.DefaultLanguages)

	eng := &engine.Engine{
		Logger:      logger,
		Rules:       rules.DefaultRules(),
		Policies:    policies,
		Permissions: chat,
		Cooldowns:   cooldowns,
		Matchers:    engine.NewMatcherCache(),
		Languages:   languages,
		Profanity:   profanity,
		Threats:     index,
		Links:       linkmeta.NewFetcher(config.LinkFetchRateLimit),
		Chat:        chat,
		BlobClient:  util.RobustHTTPClientWithTransport(linkmeta.PublicOnlyTransport()),
	}

	var text *textclass.Client
	if config.ToxicityHost != "" {
		logger.Info("configuring text toxicity classifier", "host", config.ToxicityHost)
		text = textclass.NewClient(config.ToxicityHost, config.ToxicityToken, int64(config.TextConcurrency))
		eng.Text = text
	}

	if config.NudityHost != "" {
		logger.Info("configuring image nudity scoring", "host", config.NudityHost)
		detector := visual.NewDetectorClient(config.NudityHost, config.NSFWModelToken)
		var prescreen *visual.PreScreenClient
		if config.NSFWModelHost != "" {
			prescreen = visual.NewPreScreenClient(config.NSFWModelHost, config.NSFWModelToken)
		}
		eng.Nudity = visual.NewScorer(detector, prescreen, int64(config.ImageConcurrency))
	}

	if config.SlackWebhookURL != "" {
		eng.Notifier = &engine.SlackNotifier{
			SlackWebhookURL: config.SlackWebhookURL,
			Client:          util.RobustHTTPClient(),
		}
	}

	dispatcher := consumer.NewDispatcher(config.WorkerCount, config.WorkerQueue, "automod", eng.ProcessContentItem)

	var gateway *consumer.GatewayConsumer
	if gatewayURL != "" {
		gateway = &consumer.GatewayConsumer{
			Host:        gatewayURL,
			Token:       config.ChatAPIToken,
			Logger:      logger.With("consumer", "gateway"),
			RedisClient: rdb,
			Engine:      eng,
			Dispatcher:  dispatcher,
		}
	}

	s := &Server{
		logger:     logger,
		engine:     eng,
		policies:   policies,
		dispatcher: dispatcher,
		gateway:    gateway,
		refresher: &threatintel.Refresher{
			Index:         index,
			Client:        util.RobustHTTPClient(),
			ThreatFeedURL: config.ThreatFeedURL,
			SitemapURL:    config.SitemapURL,
			Interval:      config.ThreatRefreshInterval,
			Logger:        logger.With("system", "threatintel"),
		},
		wordlists: &keyword.WordListLoader{
			BaseURL:  config.WordListBaseURL,
			Client:   util.RobustHTTPClient(),
			CacheDir: config.WordListCacheDir,
			Logger:   logger.With("system", "wordlists"),
		},
		profanity:    profanity,
		languages:    languages,
		text:         text,
		rdb:          rdb,
		ingestToken:  config.IngestToken,
		memCooldowns: memCooldowns,
	}
	s.setupEcho(config.Bind)

	return s, nil
}

func (s *Server) RunMetrics(listen string) error {
	http.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(listen, nil)
}

// Loads the default profanity lists in the background. Until they are loaded, the default profanity rule finds nothing.
func (s *Server) loadWordLists(ctx context.Context) {
	matchers, err := s.wordlists.LoadAll(ctx, keyword.DefaultLanguages)
	if err != nil {
		s.logger.Error("failed to load profanity word lists", "err", err)
		return
	}
	s.profanity.Replace(matchers)
	s.logger.Info("profanity word lists loaded", "languages", len(matchers))
}

// Keeps the gateway subscription alive, reconnecting after failures until the context is cancelled.
func (s *Server) runGateway(ctx context.Context) {
	go func() {
		if err := s.gateway.RunPersistCursor(ctx); err != nil {
			s.logger.Error("cursor routine failed", "err", err)
		}
	}()
	backoff := time.Second
	for {
		start := time.Now()
		err := s.gateway.Run(ctx)
		if ctx.Err() != nil {
			return
		}
		if time.Since(start) > time.Minute {
			backoff = time.Second
		}
		s.logger.Error("gateway connection lost, reconnecting", "err", err, "backoff", backoff)
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, time.Minute)
	}
}

func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go s.refresher.Run(ctx)
	go s.loadWordLists(ctx)
	go s.languages.Warmup(ctx)
	if s.memCooldowns != nil {
		go s.memCooldowns.RunSweeper(ctx, cooldown.DefaultWindow)
	}
	if s.text != nil {
		go s.text.Warmup(ctx, 5*time.Second)
	}
	if s.gateway != nil {
		go s.runGateway(ctx)
	}

	s.logger.Info("starting server", "bind", s.httpd.Addr)
	go func() {
		if err := s.httpd.ListenAndServe(); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				s.logger.Error("HTTP server shutting down unexpectedly", "err", err)
			}
		}
	}()

	// Wait for a signal to exit.
	s.logger.Info("registering OS exit signal handler")
	exitSignals := make(chan os.Signal, 1)
	signal.Notify(exitSignals, syscall.SIGINT, syscall.SIGTERM)
	sig := <-exitSignals
	s.logger.Info("received OS exit signal", "signal", sig)

	// stop accepting new events before draining workers
	cancel()
	if err := s.Shutdown(); err != nil {
		s.logger.Error("HTTP server shutdown error", "err", err)
	}
	s.dispatcher.Shutdown()
	if s.rdb != nil {
		s.rdb.Close()
	}
	s.logger.Info("graceful shutdown complete")
	return nil
}

func (s *Server) Shutdown() error {
	s.logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.httpd.Shutdown(ctx)
}
