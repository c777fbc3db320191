package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

type SessionRow struct {
	ID          string `json:"id"`
	Token       string `json:"token"`
	WorkspaceID string `json:"workspace_id"`
	UserID      string `json:"user_id"`
	ExpiresAt   string `json:"expires_at"`
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Session management commands",
}

var sessCreateCmd = &cobra.Command{
	Use:   "create <workspace-id>",
	Short: "Create an access session for a workspace",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := NewClient(apiURL, userID)

		var sess SessionRow
		err := client.Post("/v1/sessions", map[string]string{"workspace_id": args[0]}, &sess)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		printResult(sess)
	},
}

var sessHeartbeatCmd = &cobra.Command{
	Use:   "heartbeat <token>",
	Short: "Record activity on a session",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := NewClient(apiURL, userID)

		if err := client.Post("/v1/sessions/"+args[0]+"/heartbeat", nil, nil); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Heartbeat recorded.")
	},
}

var sessTerminateCmd = &cobra.Command{
	Use:   "terminate <token>",
	Short: "Terminate a session",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := NewClient(apiURL, userID)

		if err := client.Delete("/v1/sessions/"+args[0], nil); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Session terminated.")
	},
}

func init() {
	sessionCmd.AddCommand(sessCreateCmd, sessHeartbeatCmd, sessTerminateCmd)
	rootCmd.AddCommand(sessionCmd)
}
