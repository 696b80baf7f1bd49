package main

import (
	"os"

	"github.com/rs/zerolog"

	httpserver "example.com/robot-bt/internal/http"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "controller.db"
	}

	server, err := httpserver.NewServer(dbPath, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init server")
	}

	if err := server.Start(); err != nil {
		logger.Fatal().Err(err).Msg("server error")
	}
}
