package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	app "github.com/lisahq/lisaflow"
	"github.com/lisahq/lisaflow/internal/archive"
	"github.com/lisahq/lisaflow/internal/config"
	"github.com/lisahq/lisaflow/internal/handler"
	"github.com/lisahq/lisaflow/internal/scheduler"
	"github.com/lisahq/lisaflow/internal/server"
	"github.com/lisahq/lisaflow/pkg/log"

	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
)

type lisaflowd struct {
	cfg        *config.Config
	cache      *handler.CacheStore
	archiver   *archive.Archiver
	sched      *scheduler.Scheduler
	apiServer  *server.Server
	httpServer *http.Server
	quit       chan os.Signal
}

var (
	ErrConnectRedis = errors.New("failed to connect to redis")
	ErrOpenBucket   = errors.New("failed to open archive bucket")
)

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

func main() {
	cfg := config.NewDefaultConfig()
	if err := cfg.LoadFromEnv(); err != nil {
		slog.Error("Invalid configuration", log.Error(err))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", log.Error(err))
		os.Exit(1)
	}

	s := &lisaflowd{
		cfg:  cfg,
		quit: make(chan os.Signal, 1),
	}
	s.setupLogging()

	if err := s.run(); err != nil {
		slog.Error("Failed to start application", log.Error(err))
		os.Exit(1)
	}
}

func (s *lisaflowd) run() error {
	if err := s.initializeStores(); err != nil {
		return err
	}
	s.initializeScheduler()
	s.startServer()

	signal.Notify(s.quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(s.quit)
	<-s.quit

	s.shutdown()
	return nil
}

func (s *lisaflowd) setupLogging() {
	level, ok := logLevels[s.cfg.LogLevel]
	if !ok {
		level = slog.LevelInfo
	}

	env := os.Getenv("ENV")
	logger := log.NewWithLevel(app.Name, env, app.Version, level)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level)

	slog.Info("Lisaflow Engine starting",
		slog.String("log_level", s.cfg.LogLevel))

	slog.Info("Configuration loaded",
		slog.String("api_host", s.cfg.APIHost),
		slog.Int("api_port", s.cfg.APIPort),
		slog.Int("max_concurrency", s.cfg.MaxConcurrency),
		slog.Int64("node_timeout_ms", s.cfg.NodeTimeout),
		slog.String("cache_redis_addr", s.cfg.Cache.Addr),
		slog.String("archive_bucket_url", s.cfg.ArchiveBucketURL))
}

func (s *lisaflowd) initializeStores() error {
	if s.cfg.Cache.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     s.cfg.Cache.Addr,
			Password: s.cfg.Cache.Password,
			DB:       s.cfg.Cache.DB,
		})
		if err := client.Ping(context.Background()).Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrConnectRedis, err)
		}
		s.cache = handler.NewCacheStore(client, s.cfg.Cache.Prefix)
	}

	if s.cfg.ArchiveBucketURL != "" {
		archiver, err := archive.Open(
			context.Background(), s.cfg.ArchiveBucketURL, app.Name)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrOpenBucket, err)
		}
		s.archiver = archiver
	}
	return nil
}

func (s *lisaflowd) initializeScheduler() {
	registry := handler.NewBuiltinRegistry(s.cache)
	s.sched = scheduler.New(registry, scheduler.Defaults{
		Retry:          s.cfg.Retry,
		MaxConcurrency: s.cfg.MaxConcurrency,
		NodeTimeout:    s.cfg.NodeTimeout,
	})
}

func (s *lisaflowd) startServer() {
	s.apiServer = server.NewServer(s.sched, s.archiver)
	mux := s.apiServer.SetupRoutes()

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.cfg.APIHost, s.cfg.APIPort),
		Handler: mux,
	}

	go func() {
		slog.Info("HTTP server starting",
			slog.String("addr", s.httpServer.Addr))
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", log.Error(err))
		}
	}()
}

func (s *lisaflowd) shutdown() {
	slog.Info("Shutting down")

	ctx, cancel := context.WithTimeout(
		context.Background(), s.cfg.ShutdownTimeout,
	)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		slog.Error("Shutdown failed", log.Error(err))
	}

	s.apiServer.CloseWebSockets()

	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			slog.Error("Cache shutdown failed", log.Error(err))
		}
	}

	slog.Info("Server exited")
}
