package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	rediscache "skyflip/internal/cache/redis"
	"skyflip/internal/catalog"
	"skyflip/internal/client/hypixel"
	"skyflip/internal/config"
	cronrunner "skyflip/internal/cron"
	"skyflip/internal/db"
	"skyflip/internal/detector"
	"skyflip/internal/handler"
	"skyflip/internal/logger"
	"skyflip/internal/notify"
	"skyflip/internal/repository"
	gormrepository "skyflip/internal/repository/gorm"
	"skyflip/internal/repository/memory"
	"skyflip/internal/service"
	"skyflip/internal/sink"
	"skyflip/internal/stream"

	_ "skyflip/docs"
)

func main() {
	cfgPath := os.Getenv("SKYFLIP_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("SKYFLIP_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	checks := map[string]handler.Pinger{}

	var store repository.Repository
	switch strings.ToLower(strings.TrimSpace(cfg.Store.Driver)) {
	case config.StoreDriverMemory:
		logger.Warn("using in-memory store; source hashes reset on restart")
		store = memory.New()
	default:
		dbConn, err := db.Open(cfg.DB)
		if err != nil {
			logger.Fatal("db open failed", zap.Error(err))
		}
		defer db.Close(dbConn)

		if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
			logger.Warn("failed to set timezone", zap.Error(err))
		}
		if err := db.AutoMigrate(dbConn); err != nil {
			logger.Fatal("auto-migrate failed", zap.Error(err))
		}
		store = gormrepository.New(dbConn.Gorm)
		checks["db"] = handler.PingFunc(func(ctx context.Context) error { return db.Ping(ctx, dbConn) })
	}

	sinks := &sink.MultiSink{Logger: logger}
	sinks.Add("db", &sink.DBSink{Repo: store})

	var (
		candidateCache *rediscache.CandidateCache
		cycleLock      *rediscache.Locker
	)
	if cfg.Redis.Enabled {
		rctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		rc, err := rediscache.New(rctx, cfg.Redis)
		cancel()
		if err != nil {
			logger.Fatal("redis connect failed", zap.Error(err))
		}
		defer rc.Close()
		candidateCache = rediscache.NewCandidateCache(rc, cfg.Redis.CandidateTTL)
		cycleLock = rediscache.NewLocker(rc)
		sinks.Add("cache", candidateCache)
		checks["redis"] = rc
	}

	hub := stream.NewHub(logger)
	sinks.Add("stream", hub)

	var notifiers []notify.Notifier
	if strings.TrimSpace(cfg.Notify.WebhookURL) != "" {
		notifiers = append(notifiers, notify.NewWebhookNotifier(cfg.Notify.WebhookURL, cfg.Notify.Timeout))
	}
	if cfg.Notify.TelegramBotToken != "" && cfg.Notify.TelegramChatID != "" {
		notifiers = append(notifiers, notify.NewTelegramNotifier(cfg.Notify.TelegramBotToken, cfg.Notify.TelegramChatID, cfg.Notify.Timeout))
	}
	if len(notifiers) > 0 {
		sinks.Add("notify", &sink.NotifySink{Notifiers: notifiers, MinEdge: cfg.Notify.MinEdge, Logger: logger})
	}

	resolver := catalog.NewResolver(store, logger)
	if err := resolver.Refresh(ctx); err != nil {
		logger.Warn("initial catalog load failed (falling back to listing names)", zap.Error(err))
	}

	fetcher := &hypixel.Fetcher{
		Client:          hypixel.NewClient(cfg.Venue.BaseURL, cfg.Venue.APIKey, cfg.Venue.Timeout),
		Resolver:        resolver,
		Logger:          logger,
		MaxAuctionPages: cfg.Venue.MaxAuctionPages,
		PageConcurrency: cfg.Venue.PageConcurrency,
	}
	cycleSvc := &service.SnapshotCycleService{
		Fetcher:       fetcher,
		Detector:      detector.New(store, logger),
		Logger:        logger,
		FetchTimeout:  cfg.Cycle.FetchTimeout,
		AuctionShards: cfg.Cycle.AuctionShards,
	}
	flipJob := &service.FlipCycleJob{
		Cycle:   cycleSvc,
		Sink:    sinks,
		Runs:    store,
		Logger:  logger,
		LockTTL: cfg.Redis.LockTTL,
	}
	if cycleLock != nil {
		flipJob.Lock = cycleLock
	}
	retention := &service.RetentionService{
		Flips:  store,
		Cycles: store,
		Config: cfg.Retention,
		Logger: logger,
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	healthHandler := &handler.HealthHandler{Checks: checks}
	healthHandler.Register(engine)
	flipHandler := &handler.FlipHandler{Repo: store, Stream: hub}
	if candidateCache != nil {
		flipHandler.Cache = candidateCache
	}
	flipHandler.Register(engine)
	sourceHandler := &handler.SourceHandler{Repo: store}
	sourceHandler.Register(engine)
	cycleHandler := &handler.CycleHandler{Repo: store, Runner: flipJob}
	cycleHandler.Register(engine)

	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	cronRunner := cronrunner.New(logger, ctx)
	if cfg.Cron.Enabled {
		if _, err := cronRunner.Add("flip_cycle", cfg.Cron.FlipCycle, flipJob.Tick); err != nil {
			logger.Fatal("cron register flip cycle failed", zap.Error(err))
		}
		if _, err := cronRunner.Add("catalog_refresh", cfg.Cron.CatalogRefresh, func(ctx context.Context) {
			_ = resolver.Refresh(ctx)
		}); err != nil {
			logger.Warn("cron register catalog refresh failed", zap.Error(err))
		}
		if _, err := cronRunner.Add("history_prune", cfg.Cron.HistoryPrune, retention.Tick); err != nil {
			logger.Warn("cron register history prune failed", zap.Error(err))
		}
		cronRunner.Start()
		defer cronRunner.Stop()
	} else {
		logger.Info("cron disabled; cycles run only via POST /api/v1/cycles/run")
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
