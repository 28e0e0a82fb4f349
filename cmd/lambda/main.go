package main

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/jijunnie/jijunnie-portfolio-sub000/internal/app"
	"github.com/jijunnie/jijunnie-portfolio-sub000/internal/config"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	logger := app.NewLogger(os.Stdout, cfg.Logging)
	slog.SetDefault(logger)

	// ---- Services and handler ----
	a, err := app.New(ctx, cfg, logger, app.DefaultAWSLoader)
	if err != nil {
		logger.Error("failed to build application", "err", err)
		os.Exit(1)
	}

	switch source := strings.ToLower(strings.TrimSpace(os.Getenv("LAMBDA_EVENT_SOURCE"))); source {
	case "", "apigateway":
		lambda.Start(a.Handler.Handle)
	case "functionurl":
		lambda.Start(a.Handler.HandleFunctionURL)
	default:
		logger.Error("unknown LAMBDA_EVENT_SOURCE", "value", source)
		os.Exit(1)
	}
}
