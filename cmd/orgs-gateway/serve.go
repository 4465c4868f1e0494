package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/github-orgs-gateway/pkg/config"
	"github.com/Sternrassler/github-orgs-gateway/pkg/logging"
)

var (
	serveConfigPath string
	servePort       int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP gateway",
	Long: `Start the HTTP gateway.

Configuration is read from the optional TOML file, then from the environment:
API_KEY, PORT, GITHUB_API_URL, REDIS_URL, LOG_LEVEL and USER_AGENT.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveConfigPath, "config", "c", "", "Path to a TOML config file")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on (overrides config and PORT)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(serveConfigPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = servePort
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
	}

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.Logging.Level),
		Pretty: cfg.Logging.Pretty,
		Output: os.Stderr,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	logger.Info().
		Int("port", cfg.Server.Port).
		Str("upstream", cfg.Upstream.BaseURL).
		Bool("authenticated", cfg.Upstream.Token != "").
		Bool("redis", cfg.RedisEnabled()).
		Int("max_pages", cfg.Upstream.MaxPages).
		Msg("Starting gateway")

	return a.Run(ctx)
}
