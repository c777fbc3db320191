package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

type WorkspaceRow struct {
	ID           string `json:"id"`
	OwnerID      string `json:"owner_id"`
	Type         string `json:"type"`
	Name         string `json:"name"`
	Status       string `json:"status"`
	AccessURL    string `json:"access_url"`
	CPULimit     string `json:"cpu_limit"`
	MemoryLimit  string `json:"memory_limit"`
	ErrorMessage string `json:"error_message,omitempty"`
	CreatedAt    string `json:"created_at"`
	ExpiresAt    string `json:"expires_at"`
}

type WorkspaceListResponse struct {
	Workspaces []WorkspaceRow `json:"workspaces"`
	NextCursor string         `json:"next_cursor"`
}

var (
	wsType        string
	wsCPULimit    string
	wsMemoryLimit string
	wsExpiryHours int
)

var workspaceCmd = &cobra.Command{
	Use:     "workspace",
	Aliases: []string{"ws"},
	Short:   "Workspace management commands",
}

var wsCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Provision a new workspace",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := NewClient(apiURL, userID)

		req := map[string]interface{}{
			"type": wsType,
			"name": args[0],
		}
		if wsCPULimit != "" {
			req["cpu_limit"] = wsCPULimit
		}
		if wsMemoryLimit != "" {
			req["memory_limit"] = wsMemoryLimit
		}
		if wsExpiryHours > 0 {
			req["expiry_hours"] = wsExpiryHours
		}

		var ws WorkspaceRow
		if err := client.Post("/v1/workspaces", req, &ws); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Workspace %s provisioning (%s).\n", ws.ID, ws.Status)
		fmt.Printf("Access URL: %s\n", ws.AccessURL)
		fmt.Printf("Expires at: %s\n", ws.ExpiresAt)
		fmt.Printf("Check status: wsmctl workspace get %s\n", ws.ID)
	},
}

var wsGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Get workspace details",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := NewClient(apiURL, userID)

		var ws WorkspaceRow
		if err := client.Get("/v1/workspaces/"+args[0], &ws); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		printResult(ws)
	},
}

var wsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List workspaces",
	Run: func(cmd *cobra.Command, args []string) {
		client := NewClient(apiURL, userID)

		var resp WorkspaceListResponse
		if err := client.Get("/v1/workspaces", &resp); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		printResult(resp.Workspaces)
	},
}

var wsExpiringCmd = &cobra.Command{
	Use:   "expiring",
	Short: "List workspaces expiring within the next hour",
	Run: func(cmd *cobra.Command, args []string) {
		client := NewClient(apiURL, userID)

		var resp WorkspaceListResponse
		if err := client.Get("/v1/workspaces/expiring", &resp); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		printResult(resp.Workspaces)
	},
}

var wsTerminateCmd = &cobra.Command{
	Use:   "terminate <id>",
	Short: "Terminate a workspace",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := NewClient(apiURL, userID)

		if err := client.Delete("/v1/workspaces/"+args[0], nil); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Workspace %s terminated.\n", args[0])
	},
}

var wsExtendCmd = &cobra.Command{
	Use:   "extend <id> <hours>",
	Short: "Extend a workspace's expiry",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		client := NewClient(apiURL, userID)

		var hours int
		if _, err := fmt.Sscanf(args[1], "%d", &hours); err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid hours %q\n", args[1])
			os.Exit(1)
		}

		var resp struct {
			ExpiresAt string `json:"expires_at"`
		}
		err := client.Post("/v1/workspaces/"+args[0]+"/extend",
			map[string]int{"additional_hours": hours}, &resp)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Workspace %s now expires at %s.\n", args[0], resp.ExpiresAt)
	},
}

var wsShareCmd = &cobra.Command{
	Use:   "share <id> <target-user>",
	Short: "Share a workspace with another user",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		client := NewClient(apiURL, userID)

		var sess SessionRow
		err := client.Post("/v1/workspaces/"+args[0]+"/share",
			map[string]string{"user_id": args[1]}, &sess)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Workspace shared with %s.\n", args[1])
		fmt.Printf("Session token: %s\n", sess.Token)
	},
}

var wsRevokeCmd = &cobra.Command{
	Use:   "revoke <id> <target-user>",
	Short: "Revoke a user's access to a workspace",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		client := NewClient(apiURL, userID)

		if err := client.Delete("/v1/workspaces/"+args[0]+"/share/"+args[1], nil); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Sharing with %s revoked.\n", args[1])
	},
}

func init() {
	wsCreateCmd.Flags().StringVarP(&wsType, "type", "t", "desktop", "Workspace type (editor, browser, desktop, proxy, c2client)")
	wsCreateCmd.Flags().StringVar(&wsCPULimit, "cpu", "", "CPU limit (e.g. 2)")
	wsCreateCmd.Flags().StringVar(&wsMemoryLimit, "memory", "", "Memory limit (e.g. 4096M)")
	wsCreateCmd.Flags().IntVar(&wsExpiryHours, "expiry-hours", 0, "Hours until expiry (default 24)")

	workspaceCmd.AddCommand(wsCreateCmd, wsGetCmd, wsListCmd, wsExpiringCmd,
		wsTerminateCmd, wsExtendCmd, wsShareCmd, wsRevokeCmd)
	rootCmd.AddCommand(workspaceCmd)
}
