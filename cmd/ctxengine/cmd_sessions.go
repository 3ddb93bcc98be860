package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage context engine sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions, most recently used first",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		sessions, err := st.ListSessions(limit)
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			fmt.Println("no sessions")
			return nil
		}
		for _, s := range sessions {
			fmt.Printf("%s\tmodel=%s\tlast_used=%s\tmax_tokens=%d\n", s.SessionID, s.ModelName, s.LastUsed.Format("2006-01-02T15:04:05Z"), s.MaxContextTokens)
		}
		return nil
	},
}

var sessionsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new session",
	RunE: func(cmd *cobra.Command, args []string) error {
		model, _ := cmd.Flags().GetString("model")
		systemPrompt, _ := cmd.Flags().GetString("system-prompt")
		maxTokens, _ := cmd.Flags().GetInt("max-tokens")
		if maxTokens <= 0 {
			maxTokens = cfg.Engine.MaxContextTokens
		}

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		sessionID := uuid.NewString()
		sess, err := st.CreateSession(sessionID, model, systemPrompt, maxTokens)
		if err != nil {
			return err
		}
		fmt.Println(sess.SessionID)
		return nil
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete [session-id]",
	Short: "Delete a session and all of its messages, files, and compaction history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		return st.DeleteSession(args[0])
	},
}

var sessionsPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete sessions inactive for longer than the configured retention period",
	RunE: func(cmd *cobra.Command, args []string) error {
		days, _ := cmd.Flags().GetInt("days")
		if days <= 0 {
			days = cfg.Store.PurgeAfterDays
		}

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		n, err := st.PurgeSessions(days)
		if err != nil {
			return err
		}
		fmt.Printf("purged %d sessions older than %d days\n", n, days)
		return nil
	},
}

func init() {
	sessionsListCmd.Flags().Int("limit", 0, "maximum number of sessions to list (0 = all)")
	sessionsCreateCmd.Flags().String("model", "", "model name associated with this session")
	sessionsCreateCmd.Flags().String("system-prompt", "", "system prompt associated with this session")
	sessionsCreateCmd.Flags().Int("max-tokens", 0, "override the session's max context tokens")
	sessionsPurgeCmd.Flags().Int("days", 0, "purge sessions inactive for more than this many days (default: config store.purge_after_days)")

	sessionsCmd.AddCommand(sessionsListCmd, sessionsCreateCmd, sessionsDeleteCmd, sessionsPurgeCmd)
	rootCmd.AddCommand(sessionsCmd)
}
