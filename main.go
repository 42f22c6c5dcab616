package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"einvoice/cmd"
	"einvoice/internal/config"
	"einvoice/internal/logger"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		if err := logger.Setup(logger.DefaultConfig()); err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
		mainLog := logger.WithComponent("main")
		mainLog.Fatal().Err(err).Msg("Invalid configuration")
	}

	if err := logger.Setup(cfg.GetLoggerConfig()); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	log := logger.WithComponent("main")
	log.Debug().Str("ledger_dsn", cfg.LedgerDSN).Msg("Starting einvoice")

	cmd.Execute(cfg)
}
