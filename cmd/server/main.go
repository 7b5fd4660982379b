package main

import (
	"fmt"
	"os"

	"github.com/memberdesk/memberdesk/internal/config"
	"github.com/memberdesk/memberdesk/internal/logger"
	"github.com/memberdesk/memberdesk/internal/server"
)

var version = "dev" // Will be set during build with -ldflags

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.GetLogger()

	srv, err := server.New(cfg, log, version)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create dashboard")
	}

	// A restored session stays unverified until the guard's first check settles.
	restored := srv.Session().Snapshot()
	log.Info().
		Str("version", version).
		Str("api", cfg.API.BaseURL).
		Str("addr", cfg.Web.Address).
		Bool("restored_session", restored.Token != "").
		Msg("Starting memberdesk dashboard")

	if err := srv.Start(); err != nil {
		log.Fatal().Err(err).Msg("Dashboard stopped")
	}
}
