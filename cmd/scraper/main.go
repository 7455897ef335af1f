package main

import (
	"context"
	"io"
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

	"nftmarket/internal/auth"
	"nftmarket/internal/cache"
	"nftmarket/internal/client/chain"
	"nftmarket/internal/client/market"
	"nftmarket/internal/config"
	cronrunner "nftmarket/internal/cron"
	"nftmarket/internal/db"
	"nftmarket/internal/fetcher"
	"nftmarket/internal/handler"
	"nftmarket/internal/logger"
	"nftmarket/internal/models"
	"nftmarket/internal/pricing"
	"nftmarket/internal/rate"
	gormrepository "nftmarket/internal/repository/gorm"
	"nftmarket/internal/service"

	_ "nftmarket/docs"
)

func main() {
	cfgPath := os.Getenv("NFTM_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("NFTM_ENV_ONLY"); envOnlyRaw != "" {
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

	store := gormrepository.New(dbConn.Gorm)
	settingsSvc := &service.SystemSettingsService{Repo: store}
	defaults := map[string]bool{}
	for _, job := range cfg.Jobs {
		defaults[service.JobFeatureKey(job.Name)] = job.Enabled
	}
	if err := settingsSvc.EnsureDefaultSwitches(context.Background(), defaults); err != nil {
		logger.Warn("init default scrape switches failed", zap.Error(err))
	}

	cacheStore := cache.New(cfg.Redis)
	if closer, ok := cacheStore.(io.Closer); ok {
		defer closer.Close()
	}

	retrier := fetcher.NewRetrier(cfg.Fetch, logger)
	gate := fetcher.NewGate(cfg.Fetch.MinInterval)

	chainClient := chain.NewClient(cfg.Chain.BaseURL,
		chain.WithHTTPClient(&http.Client{Timeout: cfg.Chain.Timeout}),
		chain.WithRetrier(retrier),
		chain.WithGate(gate),
		chain.WithCache(cacheStore, cfg.Chain.CacheTTL),
	)
	marketOpts := []market.Option{
		market.WithHTTPClient(&http.Client{Timeout: cfg.Marketplaces.Timeout}),
		market.WithRetrier(retrier),
		market.WithUserAgent(cfg.Marketplaces.UserAgent),
	}
	normalizer := &pricing.Normalizer{
		Pages:         market.NewDeadrareClient(cfg.Marketplaces.Deadrare.BaseURL, marketOpts...),
		Activity:      market.NewFrameitClient(cfg.Marketplaces.Frameit.BaseURL, marketOpts...),
		History:       market.NewGraphClient(cfg.Marketplaces.Xoxno.BaseURL, marketOpts...),
		NativeHistory: market.NewGraphClient(cfg.Marketplaces.ElrondMarket.BaseURL, marketOpts...),
		Transactions:  chainClient,
	}
	rates := &rate.Cache{
		Endpoint:   cfg.Rate.Endpoint,
		CoinID:     cfg.Rate.CoinID,
		HTTPClient: &http.Client{Timeout: cfg.Rate.Timeout},
		Retrier:    retrier,
		Logger:     logger,
	}
	reconciler := &service.Reconciler{
		Repo:   store,
		Listed: chainClient,
		Pricer: normalizer,
		Rates:  rates,
		Contracts: map[models.Marketplace]string{
			models.Deadrare:     cfg.Marketplaces.Deadrare.Contract,
			models.Frameit:      cfg.Marketplaces.Frameit.Contract,
			models.Xoxno:        cfg.Marketplaces.Xoxno.Contract,
			models.ElrondMarket: cfg.Marketplaces.ElrondMarket.Contract,
		},
		PageSize:        cfg.Scrape.PageSize,
		PolitenessDelay: cfg.Scrape.PolitenessDelay,
		NativeToken:     cfg.Scrape.NativeToken,
		Logger:          logger,
	}

	claims := &service.ClaimChecker{
		Chain:       chainClient,
		Repo:        store,
		Contract:    cfg.Claim.Contract,
		Collections: cfg.Claim.Collections,
		Logger:      logger,
	}
	querySvc := &service.ListingQueryService{
		Repo:               store,
		Claims:             claims,
		Holdings:           chainClient,
		AllowedCollections: cfg.Collections.Allowed,
		ExcludedToken:      cfg.Collections.ExcludedToken,
		OwnerFetchLimit:    cfg.Collections.OwnerFetchLimit,
	}
	locks := &service.MergeLockService{Repo: store, Collection: cfg.Collections.Rotg}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cronRunner := cronrunner.New(logger, ctx)
	jobs := map[string]handler.TickRunner{}
	tickGuard := &service.TickGuard{}
	for _, job := range cfg.Jobs {
		scheduler := &service.Scheduler{
			Name:        job.Name,
			Collections: job.Collections,
			Rates:       rates,
			Reconciler:  reconciler,
			Runs:        store,
			Settings:    settingsSvc,
			Logger:      logger,
			Guard:       tickGuard,
		}
		jobs[job.Name] = scheduler
		if _, err := cronRunner.Add(job.Name, job.Schedule, scheduler.Run); err != nil {
			logger.Fatal("register scrape job failed", zap.String("job", job.Name), zap.Error(err))
		}
	}
	cronRunner.Start()
	defer cronRunner.Stop()

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	var adminAuth gin.HandlerFunc
	if secret := strings.TrimSpace(cfg.Auth.JWTSecret); secret != "" {
		adminAuth = auth.Middleware(auth.JWT{Secret: []byte(secret)}, auth.RoleAdmin)
	} else {
		logger.Warn("auth.jwt_secret is empty, admin routes are disabled")
		adminAuth = func(c *gin.Context) {
			handler.Error(c, http.StatusServiceUnavailable, "admin api disabled", nil)
			c.Abort()
		}
	}

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm, Jobs: jobs}
	healthHandler.Register(engine)
	listingsHandler := &handler.ListingsHandler{Service: querySvc}
	listingsHandler.Register(engine)
	adminHandler := &handler.AdminHandler{
		Jobs:     jobs,
		Cron:     cronRunner,
		Runs:     store,
		Locks:    locks,
		Settings: settingsSvc,
		Auth:     adminAuth,
		Logger:   logger,
	}
	adminHandler.Register(engine)

	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
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
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
