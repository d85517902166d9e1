package main

import (
	"log"
	"os"

	"github.com/avstrong/tripwatch/internal/app"
	"github.com/avstrong/tripwatch/internal/config"
	"github.com/avstrong/tripwatch/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	l, err := logger.NewFromConfig(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	var exitCode int

	if err := app.Run(cfg, l); err != nil {
		l.LogErrorf("Failed to run app: %v", err.Error())

		exitCode = 1
	}

	_ = l.Sync()

	os.Exit(exitCode)
}
