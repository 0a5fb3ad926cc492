// Package cmd defines the atende CLI commands.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "atende",
	Short: "Atende - RAG chat backend for WhatsApp support",
	Long: `Atende is a retrieval-augmented chat backend. It ingests knowledge
base documents, answers incoming WhatsApp messages through the Evolution
API, and exposes an admin API for documents, settings and a test chat.

Run 'atende serve' to start the HTTP server.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(versionCmd)
}
