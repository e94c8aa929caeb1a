package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"spiraldemo/config"
	"spiraldemo/db"
	qhttp "spiraldemo/http"
	"spiraldemo/logging"
	"spiraldemo/ml"
	"spiraldemo/monitoring"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	// 1. Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Logger
	logger, err := logging.New(logging.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	// 3. Dependencies
	cache, err := ml.NewSpiralCache(cfg.Spiral.CacheSize)
	if err != nil {
		logger.Fatal("Failed to create spiral cache", zap.Error(err))
	}
	opts := qhttp.Options{
		Logger:   logger,
		Metrics:  monitoring.NewServiceMetrics(),
		Cache:    cache,
		Defaults: defaultsFromConfig(cfg),
	}
	if cfg.Database.Path != "" {
		store, err := db.Open(cfg.Database.Path)
		if err != nil {
			logger.Fatal("Failed to open database", zap.String("path", cfg.Database.Path), zap.Error(err))
		}
		defer store.Close()
		opts.Store = store
		logger.Info("Database initialized", zap.String("path", cfg.Database.Path))
	}
	api, err := qhttp.NewAPI(opts)
	if err != nil {
		logger.Fatal("Failed to create API", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 4. Reload defaults when the config file changes
	if _, err := os.Stat(*configPath); err == nil {
		go func() {
			running := cfg
			err := config.Watch(ctx, *configPath, logger, func(c *config.Config) {
				api.SetDefaults(defaultsFromConfig(c))
				if keys := config.RestartRequired(running, c); len(keys) > 0 {
					logger.Warn("Config changes need a restart to take effect", zap.Strings("keys", keys))
				}
			})
			if err != nil {
				logger.Warn("Config watcher stopped", zap.Error(err))
			}
		}()
	}

	// 5. Start HTTP server
	server := qhttp.NewServer(qhttp.ServerConfig{
		Port:           cfg.Http.Port,
		Timeout:        cfg.Http.Timeout,
		AllowedOrigins: cfg.Http.AllowedOrigins,
	}, api)
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	// 6. Wait for a signal or a listener failure
	select {
	case <-ctx.Done():
		logger.Info("Shutting down...")
	case err := <-errCh:
		if err != nil {
			logger.Error("HTTP server failed", zap.Error(err))
		}
	}

	if err := server.Stop(); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	logger.Info("Exiting")
}

func defaultsFromConfig(c *config.Config) qhttp.Defaults {
	return qhttp.Defaults{
		Spiral:        c.SpiralConfig(),
		Probabilities: c.Evaluation.Probabilities,
		Targets:       c.EvaluationTargets(),
	}
}
