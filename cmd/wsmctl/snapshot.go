package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

type SnapshotRow struct {
	Name      string `json:"name"`
	SizeBytes int64  `json:"size_bytes"`
	CreatedAt string `json:"created_at"`
}

type SnapshotListResponse struct {
	Snapshots []SnapshotRow `json:"snapshots"`
}

var snapshotCmd = &cobra.Command{
	Use:     "snapshot",
	Aliases: []string{"snap"},
	Short:   "Snapshot management commands",
}

var snapCreateCmd = &cobra.Command{
	Use:   "create <workspace-id> <name>",
	Short: "Create a snapshot of a workspace",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		client := NewClient(apiURL, userID)

		var snap SnapshotRow
		err := client.Post("/v1/workspaces/"+args[0]+"/snapshots",
			map[string]string{"name": args[1]}, &snap)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Snapshot %s created (%d bytes).\n", snap.Name, snap.SizeBytes)
	},
}

var snapListCmd = &cobra.Command{
	Use:   "list <workspace-id>",
	Short: "List snapshots of a workspace",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := NewClient(apiURL, userID)

		var resp SnapshotListResponse
		if err := client.Get("/v1/workspaces/"+args[0]+"/snapshots", &resp); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		printResult(resp.Snapshots)
	},
}

var snapRestoreCmd = &cobra.Command{
	Use:   "restore <workspace-id> <name>",
	Short: "Restore a workspace from a snapshot",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		client := NewClient(apiURL, userID)

		err := client.Post("/v1/workspaces/"+args[0]+"/snapshots/"+args[1]+"/restore", nil, nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Workspace %s restored from %s.\n", args[0], args[1])
	},
}

func init() {
	snapshotCmd.AddCommand(snapCreateCmd, snapListCmd, snapRestoreCmd)
	rootCmd.AddCommand(snapshotCmd)
}
