// Package app wires configuration into the chat and settings services shared
// by the Lambda and local entrypoints.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/jijunnie/jijunnie-portfolio-sub000/handler"
	"github.com/jijunnie/jijunnie-portfolio-sub000/internal/config"
	"github.com/jijunnie/jijunnie-portfolio-sub000/internal/integrations/anthropic"
	"github.com/jijunnie/jijunnie-portfolio-sub000/internal/integrations/paramstore"
	"github.com/jijunnie/jijunnie-portfolio-sub000/internal/ratelimit"
	"github.com/jijunnie/jijunnie-portfolio-sub000/internal/repository"
	"github.com/jijunnie/jijunnie-portfolio-sub000/internal/usecase"
)

// AWSLoader returns the SDK configuration. It is only called when a component
// needs AWS (SSM key lookup or the DynamoDB settings table).
type AWSLoader func(ctx context.Context) (aws.Config, error)

func DefaultAWSLoader(ctx context.Context) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx)
}

type App struct {
	Chat     *usecase.ChatService
	Settings *usecase.SettingsService
	Limiter  *ratelimit.Limiter
	Handler  *handler.Handler
}

// NewLogger returns the JSON slog logger used by every entrypoint.
func NewLogger(w io.Writer, cfg config.LoggingConfig) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger, loadAWS AWSLoader) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if loadAWS == nil {
		loadAWS = DefaultAWSLoader
	}

	var (
		awsCfg    aws.Config
		awsLoaded bool
	)
	awsConfig := func() (aws.Config, error) {
		if awsLoaded {
			return awsCfg, nil
		}
		c, err := loadAWS(ctx)
		if err != nil {
			return aws.Config{}, fmt.Errorf("app: load AWS config: %w", err)
		}
		awsCfg, awsLoaded = c, true
		return awsCfg, nil
	}

	keys, err := keySource(cfg.Anthropic, awsConfig)
	if err != nil {
		return nil, err
	}

	timeout, err := cfg.Anthropic.TimeoutDuration()
	if err != nil {
		return nil, err
	}
	llm, err := anthropic.NewClient(keys,
		anthropic.WithBaseURL(cfg.Anthropic.BaseURL),
		anthropic.WithVersion(cfg.Anthropic.Version),
		anthropic.WithHTTPClient(&http.Client{Timeout: timeout}),
	)
	if err != nil {
		return nil, fmt.Errorf("app: create anthropic client: %w", err)
	}

	chat, err := usecase.NewChatService(llm, usecase.ChatConfig{
		Model:            cfg.Anthropic.Model,
		MaxTokens:        cfg.Anthropic.MaxTokens,
		MaxMessageLength: cfg.Chat.MaxMessageLength,
	})
	if err != nil {
		return nil, fmt.Errorf("app: create chat service: %w", err)
	}

	store, err := settingsStore(cfg.Settings, awsConfig, logger)
	if err != nil {
		return nil, err
	}
	settings, err := usecase.NewSettingsService(store)
	if err != nil {
		return nil, fmt.Errorf("app: create settings service: %w", err)
	}

	limiter := ratelimit.New(cfg.HTTP.RateLimitRPS, cfg.HTTP.RateLimitBurst)

	h, err := handler.NewHandler(chat,
		handler.WithSettings(settings),
		handler.WithLimiter(limiter),
		handler.WithLogger(logger),
		handler.WithAllowedOrigin(cfg.HTTP.AllowedOrigin),
		handler.WithDebugResponses(cfg.Chat.DebugResponses),
		handler.WithFallbackEmail(cfg.Chat.FallbackEmail),
	)
	if err != nil {
		return nil, fmt.Errorf("app: create handler: %w", err)
	}

	return &App{Chat: chat, Settings: settings, Limiter: limiter, Handler: h}, nil
}

func keySource(cfg config.AnthropicConfig, awsConfig func() (aws.Config, error)) (anthropic.KeySource, error) {
	if cfg.APIKey != "" {
		return anthropic.StaticKey(cfg.APIKey), nil
	}
	if cfg.KeyParam == "" {
		return nil, errors.New("app: no API key source configured")
	}
	awsCfg, err := awsConfig()
	if err != nil {
		return nil, err
	}
	ps, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
	if err != nil {
		return nil, fmt.Errorf("app: create SSM client: %w", err)
	}
	return anthropic.NewParamStoreKey(ps, cfg.KeyParam)
}

func settingsStore(cfg config.SettingsConfig, awsConfig func() (aws.Config, error), logger *slog.Logger) (usecase.SettingsStore, error) {
	if cfg.Table == "" {
		logger.Warn("settings table not configured, using in-memory store")
		return repository.NewMemoryStore(), nil
	}
	awsCfg, err := awsConfig()
	if err != nil {
		return nil, err
	}
	store, err := repository.New(awsdynamodb.NewFromConfig(awsCfg), cfg.Table)
	if err != nil {
		return nil, fmt.Errorf("app: create settings repository: %w", err)
	}
	return store, nil
}
