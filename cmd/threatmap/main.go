// threatmap - Live cyber-threat dashboard service.
//
// It consumes an external threat backend (SSE stream + REST endpoints),
// normalizes and curates the telemetry, and republishes the live dashboard
// state over its own HTTP API and WebSocket frame feed.
//
// Usage:
//
//	threatmap -stream=http://backend:5000/threats -backend=http://backend:5000
//
// Environment variables (alternative to flags):
//
//	THREATMAP_LISTEN       - HTTP listen address
//	THREATMAP_STREAM       - Threat stream (SSE) URL
//	THREATMAP_BACKEND      - Backend REST base URL
//	THREATMAP_REDIS        - Redis URL
//	THREATMAP_DATABASE     - PostgreSQL URL
//	THREATMAP_COUNTRY_DATA - Path to country centroid CSV file
package main

import (
	"context"
	"database/sql"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hervehildenbrand/threatmap/pkg/config"
	"github.com/hervehildenbrand/threatmap/pkg/dashboard"
	"github.com/hervehildenbrand/threatmap/pkg/feed"
	"github.com/hervehildenbrand/threatmap/pkg/geo"
	"github.com/hervehildenbrand/threatmap/pkg/intel"
	"github.com/hervehildenbrand/threatmap/pkg/render"
	"github.com/hervehildenbrand/threatmap/pkg/server"
	"github.com/hervehildenbrand/threatmap/pkg/stream"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

var (
	configFlag      = flag.String("config", "", "Path to YAML config file (optional)")
	listenFlag      = flag.String("listen", "", "HTTP listen address")
	streamFlag      = flag.String("stream", "", "Threat stream (SSE) URL")
	backendFlag     = flag.String("backend", "", "Backend REST base URL")
	redisURLFlag    = flag.String("redis", "", "Redis URL (optional, e.g., redis://localhost:6379)")
	databaseURLFlag = flag.String("database", "", "PostgreSQL URL (optional, for country centroid data)")
	countryDataFlag = flag.String("country-data", "", "Path to country centroid CSV file (optional, format: code,name,lat,lon)")
	logLevelFlag    = flag.String("log-level", "", "Log level (debug, info, warn, error)")
)

// getEnvOrFlag returns the flag value if set, otherwise the environment variable, otherwise the default.
func getEnvOrFlag(flagVal *string, envName, defaultVal string) string {
	if *flagVal != "" {
		return *flagVal
	}
	if env := os.Getenv(envName); env != "" {
		return env
	}
	return defaultVal
}

func main() {
	flag.Parse()

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logrus.Info("threatmap starting...")

	cfg, err := config.Load(*configFlag)
	if err != nil {
		logrus.Fatalf("Config error: %v", err)
	}

	// Flags and environment variables override the config file
	cfg.Listen = getEnvOrFlag(listenFlag, "THREATMAP_LISTEN", cfg.Listen)
	cfg.StreamURL = getEnvOrFlag(streamFlag, "THREATMAP_STREAM", cfg.StreamURL)
	cfg.BackendURL = getEnvOrFlag(backendFlag, "THREATMAP_BACKEND", cfg.BackendURL)
	cfg.RedisURL = getEnvOrFlag(redisURLFlag, "THREATMAP_REDIS", cfg.RedisURL)
	cfg.DatabaseURL = getEnvOrFlag(databaseURLFlag, "THREATMAP_DATABASE", cfg.DatabaseURL)
	cfg.CountryData = getEnvOrFlag(countryDataFlag, "THREATMAP_COUNTRY_DATA", cfg.CountryData)
	cfg.LogLevel = getEnvOrFlag(logLevelFlag, "THREATMAP_LOG_LEVEL", cfg.LogLevel)

	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	} else {
		logrus.Warnf("Invalid log level %q, using info", cfg.LogLevel)
	}

	logrus.Infof("Stream: %s, backend: %s", cfg.StreamURL, cfg.BackendURL)

	// Connect to Redis (optional)
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logrus.Warnf("Invalid Redis URL: %v", err)
		} else {
			redisClient = redis.NewClient(opt)
			if err := redisClient.Ping(context.Background()).Err(); err != nil {
				logrus.Warnf("Redis connection failed: %v", err)
				redisClient = nil
			} else {
				logrus.Infof("Connected to Redis: %s", cfg.RedisURL)
			}
		}
	}

	// Country resolver (multiple sources supported)
	// Priority: CSV file > Database > Built-in table
	var resolver geo.CountryResolver = geo.NewStaticResolver()
	if cfg.CountryData != "" {
		fileResolver, err := geo.NewFileResolver(cfg.CountryData)
		if err != nil {
			logrus.Warnf("Failed to load country data from %s: %v", cfg.CountryData, err)
		} else {
			resolver = fileResolver
			logrus.Infof("Using file-based country resolver: %s (%d countries)", cfg.CountryData, resolver.Count())
		}
	} else if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err == nil {
			dbResolver := geo.NewDatabaseResolver(db, "country_centroids")
			dbResolver.Start()
			resolver = dbResolver
			logrus.Info("Using database country resolver")
		} else {
			logrus.Warnf("Country resolver database connection failed: %v", err)
		}
	} else {
		logrus.Infof("Using built-in country table (%d countries)", resolver.Count())
	}

	normalizer := feed.NewNormalizer(resolver)
	streamClient := stream.NewClient(cfg.StreamURL, normalizer)
	intelClient := intel.NewClient(cfg.BackendURL, cfg.IPRetryAttempts, cfg.IPRetryDelay.Std(), redisClient)

	orch := dashboard.NewOrchestrator(streamClient, intelClient, resolver, redisClient, dashboard.Options{
		ActiveCap:           cfg.ActiveCap,
		HistoryCap:          cfg.HistoryCap,
		IPRefreshInterval:   cfg.IPRefresh.Std(),
		NewsRefreshInterval: cfg.NewsRefresh.Std(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := orch.Start(ctx); err != nil {
		logrus.Fatalf("Failed to start orchestrator: %v", err)
	}

	renderer := render.NewRenderer(cfg.MapWidth, cfg.MapHeight)
	srv := server.New(cfg.Listen, orch, intelClient, renderer)
	serveErr := srv.Start()

	// Wait for interrupt
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logrus.Infof("Received %v, shutting down...", sig)
	case err := <-serveErr:
		logrus.Errorf("Server error: %v", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	srv.Stop(shutdownCtx)
	orch.Stop()
	resolver.Stop()

	logrus.Info("threatmap stopped")
}
