package main

import (
	"database/sql"

	_ "github.com/lib/pq"

	"hearth/config"
	"hearth/internal/logging"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load config")
	}

	logging.Init(logging.Config{Level: cfg.LogLevel, Format: "json"})

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to open database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing database connection")
		}
	}()
	if err := db.Ping(); err != nil {
		logging.Fatal().Err(err).Msg("failed to connect to database")
	}

	srv := InitializeServer(cfg, db)

	logging.Info().Str("port", cfg.Port).Msg("starting realtime gateway")
	if err := srv.Run(":" + cfg.Port); err != nil {
		logging.Fatal().Err(err).Msg("server stopped")
	}
}
