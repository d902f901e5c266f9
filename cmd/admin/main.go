package main

import (
	"os"

	"github.com/bearshare/backend/internal/bootstrap"
	"github.com/bearshare/backend/internal/pkg/logger"
)

func main() {
	cfg, lgr, err := bootstrap.LoadConfigAndSetupLogger(configPath())
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}

	cli := commandLine{cfg: cfg, logger: lgr, out: os.Stdout}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			lgr.Error().Err(err).Msg("Command failed")
		}
		os.Exit(1)
	}
}

func configPath() string {
	if p := os.Getenv("BEARSHARE_CONFIG"); p != "" {
		return p
	}
	return "configs/config.yaml"
}
