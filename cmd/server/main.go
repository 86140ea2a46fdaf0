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
	"golang.org/x/time/rate"

	"github.com/nissand/polymarket-analytics/internal/client/polymarket/clob"
	"github.com/nissand/polymarket-analytics/internal/client/polymarket/gamma"
	"github.com/nissand/polymarket-analytics/internal/client/polymarket/rest"
	"github.com/nissand/polymarket-analytics/internal/config"
	cronrunner "github.com/nissand/polymarket-analytics/internal/cron"
	"github.com/nissand/polymarket-analytics/internal/db"
	"github.com/nissand/polymarket-analytics/internal/handler"
	"github.com/nissand/polymarket-analytics/internal/logger"
	gormrepository "github.com/nissand/polymarket-analytics/internal/repository/gorm"
	"github.com/nissand/polymarket-analytics/internal/service"

	_ "github.com/nissand/polymarket-analytics/docs"
)

func main() {
	cfgPath := os.Getenv("PMA_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("PMA_ENV_ONLY"); envOnlyRaw != "" {
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

	retryOpts := rest.Options{
		MaxRetries:   cfg.Client.MaxRetries,
		InitialDelay: cfg.Client.InitialDelay,
		MaxDelay:     cfg.Client.MaxDelay,
	}
	gammaClient := gamma.NewClient(
		&http.Client{Timeout: cfg.Gamma.Timeout},
		cfg.Gamma.BaseURL,
		newLimiter(cfg.Client.RatePerSec),
		retryOpts,
	)
	clobClient := clob.NewClient(
		&http.Client{Timeout: cfg.Clob.Timeout},
		cfg.Clob.BaseURL,
		newLimiter(cfg.Client.RatePerSec),
		retryOpts,
		logger,
	)
	clobClient.SetChunking(cfg.Capture.ChunkMaxDays, cfg.Capture.ClobDelay)

	store := gormrepository.New(dbConn.Gorm)
	tolerance := time.Duration(cfg.Downsample.ToleranceMinutes) * time.Minute

	importer := &service.ImportService{
		Repo:      store,
		Gamma:     gammaClient,
		Clob:      clobClient,
		Config:    cfg.Capture,
		Tolerance: tolerance,
		Logger:    logger,
	}
	captureSvc := &service.CaptureService{Repo: store, Config: cfg.Capture, Logger: logger}
	skewSvc := &service.SkewService{Repo: store, Logger: logger}
	scheduler := &service.CaptureScheduler{
		Repo:   store,
		Runner: importer,
		Config: cfg.Capture,
		Logger: logger,
	}
	tagSync := &service.TagSyncService{
		Repo:   store,
		Gamma:  gammaClient,
		Config: cfg.TagSync,
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

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm, Repo: store}
	healthHandler.Register(engine)
	captureHandler := &handler.CaptureHandler{
		Captures: captureSvc,
		Skew:     skewSvc,
		Repo:     store,
		Logger:   logger,
	}
	captureHandler.Register(engine)
	marketHandler := &handler.MarketHandler{Repo: store, Logger: logger}
	marketHandler.Register(engine)
	eventHandler := &handler.EventHandler{Repo: store, Logger: logger}
	eventHandler.Register(engine)
	tagHandler := &handler.TagHandler{Repo: store}
	tagHandler.Register(engine)
	analyticsHandler := &handler.AnalyticsHandler{Repo: store}
	analyticsHandler.Register(engine)

	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	engine.GET("/docs", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Cron.Enabled {
		cronRunner := cronrunner.New(logger, ctx)
		if _, err := cronRunner.Add("process_pending", cfg.Cron.ProcessPending, scheduler.RunOnce); err != nil {
			logger.Warn("cron register process_pending failed", zap.Error(err))
		}
		if _, err := cronRunner.Add("tag_sync", cfg.Cron.TagSync, func(ctx context.Context) {
			if err := tagSync.RunOnce(ctx); err != nil {
				logger.Warn("tag sync run failed", zap.Error(err))
			}
		}); err != nil {
			logger.Warn("cron register tag_sync failed", zap.Error(err))
		}
		cronRunner.Start()
		defer cronRunner.Stop()
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

func newLimiter(perSec float64) *rate.Limiter {
	if perSec <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(perSec), 1)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization,X-User-ID")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
