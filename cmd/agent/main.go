package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"example.com/robot-bt/internal/agent"
)

func main() {
	cfgPath := flag.String("config", "", "path to the agent config file")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	path := *cfgPath
	if path == "" {
		path = os.Getenv("AGENT_CONFIG_PATH")
	}
	if path == "" {
		path = "/etc/robot-bt/agent.yaml"
	}
	cfg, err := agent.LoadConfig(path)
	if err != nil {
		logger.Fatal().Err(err).Str("path", path).Msg("failed to load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine := agent.NewEngine(cfg, logger)
	status, err := engine.Start(ctx)
	if err != nil {
		if ctx.Err() != nil {
			logger.Info().Msg("shutting down agent")
			return
		}
		logger.Fatal().Err(err).Msg("agent engine failed")
	}
	logger.Info().Stringer("result", status).Msg("mission finished")
}
