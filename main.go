package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/pg-discover/pkg/adapters/datasource"
	"github.com/ekaya-inc/pg-discover/pkg/adapters/datasource/postgres"
	"github.com/ekaya-inc/pg-discover/pkg/cache"
	"github.com/ekaya-inc/pg-discover/pkg/config"
	"github.com/ekaya-inc/pg-discover/pkg/handlers"
	"github.com/ekaya-inc/pg-discover/pkg/logging"
	"github.com/ekaya-inc/pg-discover/pkg/mcp"
	"github.com/ekaya-inc/pg-discover/pkg/mcp/tools"
	"github.com/ekaya-inc/pg-discover/pkg/middleware"
	"github.com/ekaya-inc/pg-discover/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("addr", cfg.Addr()),
		zap.Duration("cache_ttl", cfg.Cache.TTL()),
		zap.Int("cache_max_entries", cfg.Cache.MaxEntries),
		zap.Bool("mcp_enabled", cfg.MCP.Enabled),
	)

	resultCache, err := cache.New(cache.Config{
		TTL:        cfg.Cache.TTL(),
		MaxEntries: cfg.Cache.MaxEntries,
	})
	if err != nil {
		return fmt.Errorf("create cache: %w", err)
	}

	connector := postgres.NewConnector(config.HostResolver(cfg.Discovery.ResolveDockerHosts), logger)
	discoveryService := services.NewDiscoveryService(connector, resultCache, services.SampleLimits{
		Default: cfg.Discovery.DefaultSampleLimit,
		Max:     cfg.Discovery.MaxSampleLimit,
	}, logger)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, discoveryService, logger).RegisterRoutes(mux)
	handlers.NewDiscoveryHandler(discoveryService, cfg.Discovery, logger).RegisterRoutes(mux)

	if cfg.MCP.Enabled {
		mcpServer := mcp.NewServer("pg-discover", cfg.Version, logger)
		mcpServer.RegisterTools(cfg.Version, discoveryService, &tools.DiscoveryToolDeps{
			Service: discoveryService,
			Target:  mcpTarget(cfg),
			Logger:  logger,
		})
		handlers.NewMCPHandler(mcpServer, logger).RegisterRoutes(mux)
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           middleware.RequestID(middleware.RequestLogger(logger)(mux)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting pg-discover", zap.String("addr", srv.Addr), zap.String("version", cfg.Version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeoutSeconds)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// mcpTarget builds the connection parameters the MCP tools run against.
func mcpTarget(cfg *config.Config) datasource.ConnectionParams {
	t := cfg.MCP.Target
	return datasource.ConnectionParams{
		Host:           t.Host,
		Port:           t.Port,
		User:           t.User,
		Password:       t.Password,
		Database:       t.Database,
		ConnectTimeout: cfg.Discovery.ConnectTimeoutSeconds,
		SSLMode:        t.SSLMode,
	}.WithDefaults()
}
