package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"ctxengine/internal/config"
	"ctxengine/internal/logging"
)

var (
	cfgPath    string
	dbPath     string
	verbose    bool
	workingDir string

	zapLogger *zap.Logger
	cfg       *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initLogging() error {
	zapCfg := zap.NewProductionConfig()
	if verbose {
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	l, err := zapCfg.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	zapLogger = l

	ws := workingDir
	if ws == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to determine working directory: %w", err)
		}
		ws = wd
	}
	return logging.Initialize(ws)
}

func loadConfig() error {
	path := cfgPath
	if path == "" {
		path = ".ctxengine/config.yaml"
	}
	loaded, err := config.Load(path)
	if err != nil {
		return err
	}
	if dbPath != "" {
		loaded.Store.DatabasePath = dbPath
	}
	if err := loaded.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	cfg = loaded
	return nil
}
