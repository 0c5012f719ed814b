package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"news_portal/internal/cache"
	"news_portal/internal/classifier"
	"news_portal/internal/config"
	"news_portal/internal/logger"
	"news_portal/internal/metrics"
	"news_portal/internal/publisher"
	"news_portal/internal/scheduler"
	"news_portal/internal/service"
	"news_portal/internal/source/esena"
	"news_portal/internal/storage/postgres"
	httptransport "news_portal/internal/transport/http"
	"news_portal/internal/watermark"
	"news_portal/migrations"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	syncOnce := flag.Bool("sync-once", false, "run a single sync cycle and exit")
	migrate := flag.Bool("migrate", true, "apply database migrations on startup")
	flag.Parse()

	bootLog := logrus.New()
	bootLog.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog.WithError(err).Fatal("failed to load config")
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		bootLog.WithError(err).Fatal("failed to set up logger")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer db.Close()
	log.Info("connected to database")

	if *migrate {
		applied, err := migrations.Up(ctx, db)
		if err != nil {
			log.WithError(err).Fatal("failed to apply migrations")
		}
		log.WithField("migrations", applied).Info("schema up to date")
	}

	articleStore := postgres.NewArticleStore(db)
	syncStateStore := postgres.NewSyncStateStore(db)
	txManager := postgres.NewTransactionManager(db)

	health := map[string]httptransport.HealthChecker{"database": articleStore}

	var pub service.Publisher
	if cfg.RabbitMQ.Enabled {
		rabbitMQ, err := publisher.NewRabbitMQ(publisher.Config{
			URL:        cfg.RabbitMQ.URL,
			Exchange:   cfg.RabbitMQ.Exchange,
			RoutingKey: cfg.RabbitMQ.RoutingKey,
			QueueName:  cfg.RabbitMQ.QueueName,
		}, log)
		if err != nil {
			log.WithError(err).Fatal("failed to connect to rabbitmq")
		}
		defer rabbitMQ.Close()
		pub = rabbitMQ
	}

	var articleCache service.ArticleCache
	if cfg.Redis.Enabled {
		client, err := cache.Connect(ctx, cache.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.WithError(err).Fatal("failed to connect to redis")
		}
		defer client.Close()

		redisCache := cache.NewArticleCache(client, cfg.Redis.TTL, "")
		articleCache = redisCache
		health["redis"] = redisCache
		log.WithField("addr", cfg.Redis.Addr).Info("article cache enabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	appMetrics := metrics.New(registry)

	feed := esena.New(esena.Config{
		URL:            cfg.Feed.URL,
		Timeout:        cfg.Feed.Timeout,
		MaxAttempts:    cfg.Feed.Retry.MaxAttempts,
		InitialBackoff: cfg.Feed.Retry.InitialBackoff,
		MaxBackoff:     cfg.Feed.Retry.MaxBackoff,
	}, log)

	syncService := service.NewSyncService(
		feed,
		articleStore,
		syncStateStore,
		classifier.New(classifier.DefaultRules),
		pub,
		articleCache,
		appMetrics,
		log,
	)

	sched := scheduler.NewScheduler(syncService, cfg.Sync.Interval, cfg.Sync.CycleTimeout, log)

	if *syncOnce {
		stats, err := sched.RunOnce(ctx)
		if err != nil {
			log.WithError(err).Fatal("sync failed")
		}
		log.WithField("stats", stats).Info("single sync finished")
		return
	}

	articleService := service.NewArticleService(articleStore, txManager, articleCache, pub, log)

	watermarkClient := watermark.NewClient(watermark.Config{
		APIKey:          cfg.Watermark.APIKey,
		Endpoint:        cfg.Watermark.Endpoint,
		Host:            cfg.Watermark.Host,
		DownloadTimeout: cfg.Watermark.DownloadTimeout,
		RemoveTimeout:   cfg.Watermark.RemoveTimeout,
	}, log)
	if !watermarkClient.Configured() {
		log.Warn("watermark api key not configured, removal requests will fail")
	}

	if log.IsLevelEnabled(logrus.DebugLevel) {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	handler := httptransport.NewHandler(httptransport.Deps{
		News:       articleService,
		Sync:       sched,
		SyncStatus: syncService,
		Watermark:  watermarkClient,
		Health:     health,
		Logger:     log,
	})
	router := httptransport.NewRouter(handler,
		httptransport.WithMiddleware(appMetrics.Middleware()),
		httptransport.WithMetricsHandler(metrics.Handler(registry)),
	)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.WithField("addr", srv.Addr).Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	if cfg.Sync.IsEnabled() {
		if err := sched.Start(ctx); err != nil {
			log.WithError(err).Fatal("failed to start scheduler")
		}
		log.WithFields(logrus.Fields{
			"source":   feed.Name(),
			"interval": cfg.Sync.Interval,
		}).Info("sync scheduler started")
	}

	select {
	case <-ctx.Done():
		log.Info("received shutdown signal")
	case err := <-serverErr:
		if err != nil {
			log.WithError(err).Error("http server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("http server shutdown")
	}

	stopped := make(chan struct{})
	go func() {
		sched.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(cfg.Server.ShutdownTimeout):
		log.Warn("sync cycle still running at shutdown")
	}

	log.Info("server stopped")
}
