package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var compactCmd = &cobra.Command{
	Use:   "compact [session-id]",
	Short: "Force a compaction pass on a session, bypassing the cooldown",
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

		res, err := eng.ForceCompact(context.Background())
		if err != nil {
			return err
		}
		if res == nil {
			fmt.Println("no compaction performed")
			return nil
		}
		fmt.Printf("level=%s tokens_before=%d tokens_after=%d freed=%d messages_affected=%d\n",
			res.Level, res.TokensBefore, res.TokensAfter, res.TokensFreed, res.MessagesAffected)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(compactCmd)
}
