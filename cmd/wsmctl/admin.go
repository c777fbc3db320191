package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

type UsageResponse struct {
	WorkspaceCount   int     `json:"workspace_count"`
	TotalCPU         float64 `json:"total_cpu"`
	TotalMemoryBytes int64   `json:"total_memory_bytes"`
	Quota            struct {
		MaxWorkspacesPerUser  int     `json:"max_workspaces_per_user"`
		MaxTotalCPUPerUser    float64 `json:"max_total_cpu_per_user"`
		MaxTotalMemoryPerUser int64   `json:"max_total_memory_per_user_bytes"`
	} `json:"quota"`
}

var usageCmd = &cobra.Command{
	Use:   "usage <user-id>",
	Short: "Show a user's resource usage against quota",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := NewClient(apiURL, userID)

		var usage UsageResponse
		if err := client.Get("/v1/users/"+args[0]+"/usage", &usage); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		printResult(usage)
	},
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup <workspaces|sessions>",
	Short: "Trigger an expiry sweep immediately",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		kind := args[0]
		if kind != "workspaces" && kind != "sessions" {
			fmt.Fprintf(os.Stderr, "Error: unknown sweep kind %q\n", kind)
			os.Exit(1)
		}
		client := NewClient(apiURL, userID)

		var resp struct {
			Reclaimed int `json:"reclaimed"`
		}
		if err := client.Post("/v1/admin/cleanup/"+kind, nil, &resp); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Reclaimed %d %s.\n", resp.Reclaimed, kind)
	},
}

func init() {
	rootCmd.AddCommand(usageCmd, cleanupCmd)
}
