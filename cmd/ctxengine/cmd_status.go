package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status [session-id]",
	Short: "Show a session's current usage, level, and cooldown state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		eng, err := buildEngine(st, args[0])
		if err != nil {
			return err
		}

		status, err := eng.GetStatus()
		if err != nil {
			return err
		}

		fmt.Printf("session:          %s\n", status.SessionID)
		fmt.Printf("tokens:           %d / %d (%.1f%%)\n", status.CurrentTokens, status.MaxTokens, status.UsageRatio*100)
		fmt.Printf("level:            %s\n", status.Level)
		fmt.Printf("can auto-compact: %v\n", status.CanAutoCompact)
		if status.LastCompaction != nil {
			fmt.Printf("last compaction:  %s at %s (freed %d tokens)\n", status.LastCompaction.Level, status.LastCompaction.CreatedAt.Format("2006-01-02T15:04:05Z"), status.LastCompaction.TokensFreed)
		} else {
			fmt.Println("last compaction:  none")
		}
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats [session-id]",
	Short: "Show a session's aggregate compaction statistics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		eng, err := buildEngine(st, args[0])
		if err != nil {
			return err
		}

		stats, err := eng.GetStats()
		if err != nil {
			return err
		}

		fmt.Printf("total compactions:   %d\n", stats.TotalCompactions)
		fmt.Printf("total tokens freed:  %d\n", stats.TotalTokensFreed)
		for level, n := range stats.ByLevel {
			fmt.Printf("  %s: %d\n", level, n)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd, statsCmd)
}
