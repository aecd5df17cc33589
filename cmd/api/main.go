// Command api запускает edgeapi как обычный HTTP сервер (локальная
// разработка, контейнер). Те же handlers обслуживает cmd/lambda.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"

	"github.com/Haleralex/edgeapi/internal/config"
	"github.com/Haleralex/edgeapi/internal/container"
)

func main() {
	var (
		configPath string
		configName string
	)
	flag.StringVar(&configPath, "config-path", "configs", "Directory with the config file")
	flag.StringVar(&configName, "config-name", "config", "Config file name without extension")
	flag.Parse()

	// 1. Configuration
	cfg, err := config.Load(configPath, configName)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()

	// 2. Dependencies
	c := container.New(cfg)
	if err := c.Initialize(ctx); err != nil {
		log.Fatalf("failed to initialize: %v", err)
	}
	logger := c.Logger()

	// 3. Serve until SIGINT/SIGTERM
	runErr := c.Run(ctx)

	// 4. Cleanup
	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	if err := c.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", slog.String("error", err.Error()))
	}
	cancel()

	if runErr != nil {
		logger.Error("Server error", slog.String("error", runErr.Error()))
		os.Exit(1)
	}

	logger.Info("Server stopped gracefully")
}
