// Package main provides the demoscope demographic ingestion service.
//
// The service accepts CSV uploads of demographic records, validates and
// persists them, and serves aggregated chart data over HTTP.
package main

import (
	"flag"
	"log"
	"log/slog"
	"os"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/demoscope-io/demoscope/internal/aggregation"
	"github.com/demoscope-io/demoscope/internal/api"
	"github.com/demoscope-io/demoscope/internal/api/middleware"
	"github.com/demoscope-io/demoscope/internal/ingestion"
	"github.com/demoscope-io/demoscope/internal/storage"
)

// Version information.
const (
	version = "1.0.0"
	name    = "demoscope"
)

func main() {
	versionFlag := flag.Bool("version", false, "show version information")
	flag.Parse()

	if *versionFlag {
		log.Printf("%s v%s\n", name, version)
		os.Exit(0)
	}

	serverConfig := api.LoadServerConfig()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: serverConfig.LogLevel,
	}))

	logger.Info("Starting demoscope service",
		slog.String("service", name),
		slog.String("version", version),
	)

	logger.Info("Loaded server configuration",
		slog.String("host", serverConfig.Host),
		slog.Int("port", serverConfig.Port),
		slog.Duration("read_timeout", serverConfig.ReadTimeout),
		slog.Duration("write_timeout", serverConfig.WriteTimeout),
		slog.Duration("shutdown_timeout", serverConfig.ShutdownTimeout),
		slog.Int64("max_upload_size", serverConfig.MaxUploadSize),
		slog.String("log_level", serverConfig.LogLevel.String()),
	)

	rateLimiter := middleware.NewInMemoryRateLimiter(serverConfig.GlobalRPS, serverConfig.ClientRPS)
	defer rateLimiter.Close()

	logger.Info("Rate limiter initialized",
		slog.Int("global_rps", serverConfig.GlobalRPS),
		slog.Int("client_rps", serverConfig.ClientRPS),
	)

	storageConfig := storage.LoadConfig()

	dbConn, err := storage.NewConnection(storageConfig)
	if err != nil {
		logger.Error("Failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	defer func() {
		_ = dbConn.Close() // Ensure connection closes on normal shutdown
	}()

	personStore, err := storage.NewPersonStore(dbConn)
	if err != nil {
		logger.Error("Failed to create person store", slog.String("error", err.Error()))

		_ = dbConn.Close()

		os.Exit(1)
	}

	logger.Info("Person store initialized",
		slog.String("database_url", storageConfig.MaskDatabaseURL()),
		slog.Int("database_max_open_conns", storageConfig.MaxOpenConns),
		slog.Int("database_max_idle_conns", storageConfig.MaxIdleConns),
		slog.Duration("database_conn_max_lifetime", storageConfig.ConnMaxLifetime),
		slog.Duration("database_conn_max_idle_time", storageConfig.ConnMaxIdleTime),
	)

	// Redis is optional. Without DEMOSCOPE_REDIS_URL the chart cache falls
	// back to a process-local cache, suitable for single-instance setups.
	var chartCache aggregation.Cache

	cacheConfig := storage.LoadCacheConfig()

	redisClient, err := storage.NewRedisClient(cacheConfig)
	if err != nil {
		logger.Error("Failed to connect to redis", slog.String("error", err.Error()))

		_ = dbConn.Close()
		//nolint:gocritic // Explicit cleanup before os.Exit is intentional (defer won't run)
		os.Exit(1)
	}

	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()

		chartCache = storage.NewRedisChartCache(redisClient)

		logger.Info("Chart cache initialized", slog.String("backend", "redis"))
	} else {
		chartCache = storage.NewMemoryChartCache()

		logger.Warn("Chart cache falling back to in-memory backend",
			slog.String("note", "Set DEMOSCOPE_REDIS_URL to share the cache across instances"),
		)
	}

	headerConfig, err := ingestion.LoadHeaderConfigFromEnv()
	if err != nil {
		logger.Error("Failed to load header alias configuration", slog.String("error", err.Error()))

		_ = dbConn.Close()

		os.Exit(1)
	}

	pipeline := ingestion.NewPipeline(personStore,
		ingestion.WithHeaderResolver(ingestion.NewHeaderResolver(headerConfig)),
		ingestion.WithLogger(logger),
	)

	charts := aggregation.NewChartService(personStore, chartCache,
		aggregation.WithServiceLogger(logger),
	)

	server := api.NewServer(serverConfig, pipeline, charts, personStore, rateLimiter)

	if err := server.Start(); err != nil {
		logger.Error("Server failed to start",
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	logger.Info("demoscope service stopped")
}
