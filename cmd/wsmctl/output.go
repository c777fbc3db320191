package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
)

func printResult(v interface{}) {
	if output == "json" {
		json.NewEncoder(os.Stdout).Encode(v)
		return
	}
	printTable(v)
}

func printTable(v interface{}) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	switch data := v.(type) {
	case []WorkspaceRow:
		if len(data) == 0 {
			fmt.Println("No workspaces found.")
			return
		}
		fmt.Fprintln(w, "ID\tTYPE\tNAME\tSTATUS\tOWNER\tEXPIRES")
		for _, ws := range data {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				ws.ID, ws.Type, truncate(ws.Name, 24), ws.Status, ws.OwnerID, ws.ExpiresAt)
		}
	case WorkspaceRow:
		fmt.Fprintf(w, "ID:\t%s\n", data.ID)
		fmt.Fprintf(w, "Type:\t%s\n", data.Type)
		fmt.Fprintf(w, "Name:\t%s\n", data.Name)
		fmt.Fprintf(w, "Status:\t%s\n", data.Status)
		fmt.Fprintf(w, "Owner:\t%s\n", data.OwnerID)
		fmt.Fprintf(w, "Access URL:\t%s\n", data.AccessURL)
		fmt.Fprintf(w, "CPU:\t%s\n", data.CPULimit)
		fmt.Fprintf(w, "Memory:\t%s\n", data.MemoryLimit)
		fmt.Fprintf(w, "Created:\t%s\n", data.CreatedAt)
		fmt.Fprintf(w, "Expires:\t%s\n", data.ExpiresAt)
		if data.ErrorMessage != "" {
			fmt.Fprintf(w, "Error:\t%s\n", data.ErrorMessage)
		}
	case []SnapshotRow:
		if len(data) == 0 {
			fmt.Println("No snapshots found.")
			return
		}
		fmt.Fprintln(w, "NAME\tSIZE\tCREATED")
		for _, s := range data {
			fmt.Fprintf(w, "%s\t%d\t%s\n", s.Name, s.SizeBytes, s.CreatedAt)
		}
	case SessionRow:
		fmt.Fprintf(w, "ID:\t%s\n", data.ID)
		fmt.Fprintf(w, "Token:\t%s\n", data.Token)
		fmt.Fprintf(w, "Workspace:\t%s\n", data.WorkspaceID)
		fmt.Fprintf(w, "User:\t%s\n", data.UserID)
		fmt.Fprintf(w, "Expires:\t%s\n", data.ExpiresAt)
	default:
		json.NewEncoder(os.Stdout).Encode(v)
	}
	w.Flush()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
