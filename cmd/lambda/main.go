// Command lambda обслуживает один ресурс edgeapi за API Gateway.
//
// Какие маршруты обслуживает функция, задаёт EDGEAPI_LAMBDA_FUNCTION
// (projects, projects.item, profiles, profiles.item, health, ready),
// формат события - EDGEAPI_LAMBDA_PAYLOAD_VERSION (1 - REST API, 2 - HTTP API).
package main

import (
	"context"
	"log"
	"log/slog"
	"time"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/Haleralex/edgeapi/internal/config"
	"github.com/Haleralex/edgeapi/internal/container"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Инициализация выполняется один раз на cold start, пул соединений
	// переживает последующие вызовы.
	c := container.New(cfg)
	if err := c.Initialize(context.Background()); err != nil {
		log.Fatalf("failed to initialize: %v", err)
	}
	logger := c.Logger()

	h, err := c.LambdaHandler(cfg.Lambda.Function)
	if err != nil {
		logger.Error("Invalid lambda function",
			slog.String("function", cfg.Lambda.Function),
			slog.Any("available", c.Functions()),
		)
		log.Fatal(err)
	}

	logger.Info("Starting lambda handler",
		slog.String("function", cfg.Lambda.Function),
		slog.Int("payload_version", cfg.Lambda.PayloadVersion),
	)

	onSIGTERM := lambda.WithEnableSIGTERM(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()
		if err := c.Shutdown(ctx); err != nil {
			logger.Error("Shutdown error", slog.String("error", err.Error()))
		}
	})

	if cfg.Lambda.PayloadVersion == 2 {
		lambda.StartWithOptions(h.HTTPV2, onSIGTERM)
		return
	}
	lambda.StartWithOptions(h.ProxyV1, onSIGTERM)
}
