package main

import (
	"github.com/spf13/cobra"

	"ctxengine/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "ctxengine",
	Short: "Bounded-context session engine for LLM conversations",
	Long: `ctxengine manages LLM conversation sessions against a fixed token
budget: it tracks message and file-reference tokens, and escalates
through soft, hard, and emergency compaction as usage climbs.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := initLogging(); err != nil {
			return err
		}
		if cmd.Name() == "init" {
			return nil
		}
		return loadConfig()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if zapLogger != nil {
			_ = zapLogger.Sync()
		}
		logging.CloseAll()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config.yaml (default .ctxengine/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "override the session database path")
	rootCmd.PersistentFlags().StringVar(&workingDir, "workspace", "", "working directory (default: current directory)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}
