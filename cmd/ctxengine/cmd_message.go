package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var addMessageCmd = &cobra.Command{
	Use:   "add [session-id] [role] [content]",
	Short: "Append a message to a session, triggering auto-compaction if thresholds are crossed",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, role, content := args[0], args[1], args[2]

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		eng, err := buildEngine(st, sessionID)
		if err != nil {
			return err
		}

		msg, res, err := eng.AddMessage(context.Background(), role, content)
		if err != nil {
			return err
		}

		fmt.Printf("message_id=%d tokens=%d\n", msg.ID, msg.Tokens)
		if res != nil {
			fmt.Printf("auto-compacted: level=%s freed=%d messages_affected=%d\n",
				res.Level, res.TokensFreed, res.MessagesAffected)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(addMessageCmd)
}
