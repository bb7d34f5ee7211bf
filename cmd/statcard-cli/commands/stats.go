package commands

import (
	"encoding/json"
	"fmt"

	"statcard-backend/lib/serviceutil"

	"github.com/spf13/cobra"
)

var (
	baseUrl        *string
	timeoutSeconds *int
)

func init() {
	baseUrl = rootCmd.PersistentFlags().String("base-url", "https://faceitanalyser.com", "The stats site to scrape.")
	timeoutSeconds = rootCmd.PersistentFlags().Int("timeout", 30, "Navigation + readiness budget in seconds.")
	rootCmd.AddCommand(statsCmd)
}

var statsCmd = &cobra.Command{
	Use:   "stats <nickname>",
	Short: "Fetches a player's stats and prints the extracted record as JSON.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		record := fetchRecord(cmd.Context(), args[0])

		out, err := json.MarshalIndent(record, "", "  ")
		if err != nil {
			serviceutil.Fatal("failed to encode record", err)
		}
		fmt.Println(string(out))
	},
}
