package main

import (
	"os"

	"github.com/bearshare/backend/internal/pkg/logger"
	"github.com/bearshare/backend/internal/server"
)

// @title BearShare API
// @version 1.0
// @description Class discussion backend: courses, memberships, posts and reactions

// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Identity provider JWT, "Bearer <token>"

// @securityDefinitions.apikey AdminSecret
// @in header
// @name X-Admin-Secret
// @description Legacy shared admin secret, only when auth.admin_secret_hash is set

//go:generate swag init -d ../../ -g cmd/api/main.go -o ../../docs

func main() {
	configPath := os.Getenv("BEARSHARE_CONFIG")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	srv, err := server.NewServer(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize server")
		os.Exit(1)
	}

	if err := srv.Run(); err != nil {
		logger.Error().Err(err).Msg("Server execution failed or shutdown encountered errors")
		os.Exit(1)
	}

	logger.Info().Msg("Application finished gracefully.")
}
