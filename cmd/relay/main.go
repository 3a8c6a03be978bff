package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Shepherdphiri/z-radio/internal/cache"
	"github.com/Shepherdphiri/z-radio/internal/config"
	"github.com/Shepherdphiri/z-radio/internal/domain"
	"github.com/Shepherdphiri/z-radio/internal/events"
	"github.com/Shepherdphiri/z-radio/internal/handler"
	"github.com/Shepherdphiri/z-radio/internal/hub"
	"github.com/Shepherdphiri/z-radio/internal/membership"
	"github.com/Shepherdphiri/z-radio/internal/metrics"
	"github.com/Shepherdphiri/z-radio/internal/registry"
	"github.com/Shepherdphiri/z-radio/internal/relay"
	"github.com/Shepherdphiri/z-radio/internal/service"
	"github.com/Shepherdphiri/z-radio/pkg/database"
	pkglog "github.com/Shepherdphiri/z-radio/pkg/log"
	"github.com/Shepherdphiri/z-radio/pkg/pubsub"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load configuration")
	}

	pkglog.Init(pkglog.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty, ServiceName: "z-radio-relay"})
	logger := pkglog.L()

	logger.Info().Str("host", cfg.Server.Host).Int("port", cfg.Server.Port).Msg("starting z-radio-relay")

	m := metrics.New()

	// Registry
	var closers []func() error

	var store registry.Store
	if cfg.Registry.IsDurable() {
		db, err := database.New(databaseConfig(cfg))
		if err != nil {
			logger.Fatal().Err(err).Str("driver", cfg.Registry.Driver).Msg("failed to connect to database")
		}
		if err := database.AutoMigrate(db, &domain.BroadcastModel{}); err != nil {
			logger.Fatal().Err(err).Msg("failed to migrate database")
		}
		closers = append(closers, func() error { return database.Close(db) })
		store = registry.NewGormStore(db)
		logger.Info().Str("driver", cfg.Registry.Driver).Msg("database registry ready")
	} else {
		store = registry.NewMemoryStore()
		logger.Info().Msg("in-memory registry ready")
	}

	remote := cfg.Registry.IsDurable()
	if cfg.Cache.Enabled {
		broadcastCache, err := cache.NewRedisBroadcastCache(cfg.Cache.Redis, cfg.Cache.Prefix)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to connect to redis cache, continuing uncached")
		} else {
			closers = append(closers, broadcastCache.Close)
			store = registry.NewCachedStore(store, broadcastCache, cfg.Cache.TTL)
			remote = true
			logger.Info().Str("address", cfg.Cache.Redis.Address).Dur("ttl", cfg.Cache.TTL).Msg("broadcast cache enabled")
		}
	}

	var counts registry.CountWriter = registry.SyncCountWriter{Store: store}
	var writeBehind *registry.WriteBehind
	// Remote stores are always written off the relay's path; config rejects
	// write_behind=false for them.
	if remote {
		writeBehind = registry.NewWriteBehind(store, cfg.Registry.WriteTimeout)
		counts = writeBehind
	}

	// Events
	publisher, err := pubsub.NewPublisher(cfg.Events.PubSub())
	if err != nil {
		logger.Warn().Err(err).Str("driver", cfg.Events.Driver).Msg("failed to create event publisher, lifecycle events disabled")
		publisher = pubsub.NopPublisher{}
	}
	emitter := events.NewEmitter(publisher, cfg.Events.QueueSize)

	// Relay
	table := membership.NewTable()
	signalRelay := relay.New(table, store, counts, emitter, m)

	wsHub := hub.NewHub(hub.Config{
		PingInterval:   cfg.WebSocket.PingInterval,
		PongWait:       cfg.WebSocket.PongWait,
		WriteWait:      cfg.WebSocket.WriteWait,
		MaxMessageSize: cfg.WebSocket.MaxMessageSize,
		SendBuffer:     cfg.WebSocket.SendBuffer,
	}, m)

	broadcastSvc := service.NewBroadcastService(store, signalRelay, emitter, cfg.Stats.ConnectionQuality)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(pkglog.GinMiddleware(logger))

	handler.NewHandler(broadcastSvc).RegisterRoutes(r)
	handler.NewWSHandler(wsHub, signalRelay).RegisterRoutes(r)
	r.GET("/metrics", gin.WrapH(m.Handler()))

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().Str("addr", server.Addr).Str("registry", cfg.Registry.Driver).Str("events", cfg.Events.Driver).Msg("z-radio-relay listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down z-radio-relay")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}
	if err := wsHub.CloseAll(shutdownCtx); err != nil {
		logger.Warn().Err(err).Int("remaining", wsHub.Count()).Msg("connections did not close in time")
	}

	emitter.Close()
	if writeBehind != nil {
		writeBehind.Close()
	}
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			logger.Warn().Err(err).Msg("failed to release resource")
		}
	}
	if err := publisher.Close(); err != nil {
		logger.Warn().Err(err).Msg("failed to close event publisher")
	}

	logger.Info().Msg("z-radio-relay stopped")
}

func databaseConfig(cfg *config.Config) *database.Config {
	db := cfg.Registry.Database
	return &database.Config{
		Driver:          cfg.Registry.Driver,
		Host:            db.Host,
		Port:            db.Port,
		User:            db.User,
		Password:        db.Password,
		DBName:          db.DBName,
		SSLMode:         db.SSLMode,
		TimeZone:        db.TimeZone,
		FilePath:        db.FilePath,
		MaxIdleConns:    db.MaxIdleConns,
		MaxOpenConns:    db.MaxOpenConns,
		ConnMaxLifetime: db.ConnMaxLifetime,
		Verbose:         db.Verbose,
	}
}
