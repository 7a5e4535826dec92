// Smsguard - SMS and OTP fraud risk analysis service
package main

import (
	"context"
	"os"

	"github.com/mbd888/smsguard/internal/config"
	"github.com/mbd888/smsguard/internal/logging"
	"github.com/mbd888/smsguard/internal/server"
)

// Build info - set by ldflags
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	// Create logger
	logger := logging.New("info", "text")

	logger.Info("starting smsguard",
		"version", Version,
		"commit", Commit,
		"build_time", BuildTime,
	)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"env", cfg.Env,
		"context_threshold_minutes", cfg.ContextThresholdMinutes,
		"attack_window_minutes", cfg.AttackWindowMinutes,
		"max_otps_in_window", cfg.MaxOTPsInWindow,
	)

	// Create and run server
	srv, err := server.New(cfg, server.WithLogger(logger))
	if err != nil {
		logger.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
