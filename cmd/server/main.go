package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"cinehub/internal/auth"
	"cinehub/internal/config"
	"cinehub/internal/db"
	"cinehub/internal/events"
	"cinehub/internal/logger"
	"cinehub/internal/metrics"
	"cinehub/internal/models"
	"cinehub/internal/ranking"
	"cinehub/internal/router"
	"cinehub/internal/services"
	"cinehub/internal/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, finding env vars from system")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	appLog := logger.New("cinehub", cfg.LogLevel)
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	backend, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		appLog.WithError(err).Fatal("Failed to open store")
	}
	defer closeStore()
	if cfg.CacheTTL > 0 {
		cached, err := store.NewCachedStore(backend, cfg.CacheSize, cfg.CacheTTL)
		if err != nil {
			appLog.WithError(err).Fatal("Failed to create store cache")
		}
		backend = cached
	}
	appLog.WithField("driver", cfg.StoreDriver).Info("store ready")

	// Events: websocket hub, plus Kafka when brokers are configured.
	hub := events.NewHub(64)
	publishers := events.Multi{hub}
	if len(cfg.KafkaBrokers) > 0 {
		kafka := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kafka.Close()
		publishers = append(publishers, kafka)
		appLog.WithField("topic", cfg.KafkaTopic).Info("publishing events to kafka")
	}
	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	dispatcher := events.NewDispatcher(publishers, appLog.Entry, events.WithMetrics(m))
	dispatcher.Start(dispatchCtx)

	var rankOpts []ranking.Option
	if !cfg.RankShuffle {
		rankOpts = append(rankOpts, ranking.WithoutShuffle())
	}
	if cfg.RankSeed != 0 {
		rankOpts = append(rankOpts, ranking.WithSeed(cfg.RankSeed))
	}
	deps := services.Deps{
		Ranker:   ranking.New(rankOpts...),
		Notifier: dispatcher,
		Metrics:  m,
		Log:      appLog.Entry,
	}

	collOpts := []store.CollectionOption{
		store.WithLogger(appLog.Entry),
		store.WithConflictHook(m.ConflictHook()),
	}
	engine, err := router.New(router.Deps{
		Config:  cfg,
		Log:     appLog,
		Metrics: m,
		Store:   backend,
		Tokens:  auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL),
		Hub:     hub,
		Playlists: services.NewPlaylistService(
			store.NewCollection[models.Playlist](backend, store.Playlists, collOpts...), deps),
		Forum: services.NewForumService(
			store.NewCollection[models.ForumMovie](backend, store.ForumMovies, collOpts...),
			store.NewCollection[models.ForumThread](backend, store.ForumThreads, collOpts...),
			deps),
		Reviews: services.NewReviewService(
			store.NewCollection[models.Review](backend, store.Reviews, collOpts...), deps),
		Users: services.NewUserService(
			store.NewCollection[models.User](backend, store.Users, collOpts...), deps),
	})
	if err != nil {
		appLog.WithError(err).Fatal("Failed to build router")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		appLog.Infof("cinehub server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	appLog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.WithError(err).Error("server shutdown")
	}

	stopDispatch()
	select {
	case <-dispatcher.Done():
	case <-shutdownCtx.Done():
		appLog.Warn("event dispatcher did not flush in time")
	}
}

// openStore connects the backend selected by STORE_DRIVER. The returned func
// releases its connections.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverFile:
		fs := store.NewFileStore(cfg.DataDir)
		if err := fs.EnsureCollections(store.AllCollections...); err != nil {
			return nil, nil, err
		}
		return fs, func() {}, nil

	case config.DriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, err
		}
		return store.NewRedisStore(client), func() { client.Close() }, nil

	default:
		gdb, err := db.Open(cfg)
		if err != nil {
			return nil, nil, err
		}
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, nil, err
		}
		return store.NewGormStore(gdb), func() { sqlDB.Close() }, nil
	}
}
