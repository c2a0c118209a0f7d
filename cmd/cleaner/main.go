package main

import (
	"fmt"
	"os"

	"github.com/hellausefulsoftware/cleaner/internal/logging"
	"github.com/spf13/cobra"
)

func main() {
	logging.Initialize(nil)

	var logLevel string
	var logJSON bool

	rootCmd := &cobra.Command{
		Use:   "cleaner",
		Short: "GitHub App that triages new issues",
		Long: `cleaner receives GitHub issue webhooks, classifies each issue with a fixed
set of rules and closes, labels or comments on it. Without a subcommand it
starts the webhook server.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Set logging level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Output logs in JSON format")

	// Logs go to stderr so that sign and classify output can be piped
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		logging.Initialize(&logging.Config{
			Level:      logging.ParseLevel(logLevel),
			Output:     os.Stderr,
			JSONFormat: logJSON,
		})
	}

	rootCmd.AddCommand(newServeCmd(), newSignCmd(), newClassifyCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
