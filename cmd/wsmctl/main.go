package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	apiURL string
	userID string
	output string
)

var rootCmd = &cobra.Command{
	Use:   "wsmctl",
	Short: "WSM CLI - workspace lifecycle service command line tool",
	Long:  `wsmctl is a command line interface for the workspace lifecycle service (WSM).`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&apiURL, "api-url", "a", "http://localhost:8080", "WSM API URL")
	rootCmd.PersistentFlags().StringVarP(&userID, "user", "u", "", "User id to act as (sent as X-User-ID)")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "Output format (table, json)")
}
