package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jijunnie/jijunnie-portfolio-sub000/internal/app"
	"github.com/jijunnie/jijunnie-portfolio-sub000/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "chatproxy",
	Short: "Portfolio chat proxy",
	Long: `Run the portfolio chat proxy outside Lambda.

Configuration is read from --config (YAML, optional) and then from the
environment (ANTHROPIC_API_KEY, ANTHROPIC_MODEL, LISTEN_ADDR, ...).`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	rootCmd.AddCommand(serveCmd, askCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// bootstrap loads configuration and wires the application. Logs go to stderr
// so stdout stays clean for command output.
func bootstrap(ctx context.Context) (config.Config, *slog.Logger, *app.App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	logger := app.NewLogger(os.Stderr, cfg.Logging)
	slog.SetDefault(logger)

	a, err := app.New(ctx, cfg, logger, app.DefaultAWSLoader)
	if err != nil {
		return config.Config{}, nil, nil, fmt.Errorf("build application: %w", err)
	}
	return cfg, logger, a, nil
}
