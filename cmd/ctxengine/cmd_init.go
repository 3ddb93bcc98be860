package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"ctxengine/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config.yaml into .ctxengine/",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgPath
		if path == "" {
			path = filepath.Join(".ctxengine", "config.yaml")
		}

		cfg := config.DefaultConfig()
		if err := cfg.Save(path); err != nil {
			return err
		}

		fmt.Printf("wrote %s\n", path)
		fmt.Printf("engine: %s\n", engineConfigSummary(cfg.Engine))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
