package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/opencode/internal/sessions"
)

// buildSessionsCmd creates the "sessions" command group.
func buildSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage conversation sessions",
	}
	cmd.AddCommand(buildSessionsListCmd(), buildSessionsDeleteCmd(), buildSessionsShareCmd())
	return cmd
}

func buildSessionsListCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := sessions.NewStore()
			list, err := store.List()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(out, "No sessions found.")
				return nil
			}
			if limit > 0 && len(list) > limit {
				list = list[:limit]
			}
			fmt.Fprintln(out, "Sessions:")
			for _, s := range list {
				title := s.Title
				if title == "" {
					title = "(untitled)"
				}
				fmt.Fprintf(out, "  %s  %s  %d messages  %s\n",
					s.ID, s.Updated.Format("2006-01-02 15:04"), s.MessageCount, title)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Max number of sessions to show")
	return cmd
}

func buildSessionsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [session-id]",
		Short: "Delete a session and its messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := sessions.NewStore()
			if err := store.Delete(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted session %s\n", args[0])
			return nil
		},
	}
}

func buildSessionsShareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "share [session-id]",
		Short: "Get a share link for a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := sessions.NewStore()
			url, err := store.Share(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), url)
			return nil
		},
	}
}
