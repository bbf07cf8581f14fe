// Package commands implements the ipcpctl operator CLI commands.
package commands

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	apiAddr      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "ipcpctl",
	Short: "ipcpctl - operator CLI for an ipcpd daemon",
	Long: `ipcpctl talks to a running ipcpd daemon's read-only admin API to
inspect its RIB, routing table and active flows, and helps prepare the
configuration a new IPC Process needs to join a DIF.

Use "ipcpctl [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called once from main.main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiAddr, "api", "http://localhost:8080", "ipcpd admin API base URL")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "Output format (table|json|yaml)")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(ribCmd)
	rootCmd.AddCommand(routesCmd)
	rootCmd.AddCommand(falCmd)
	rootCmd.AddCommand(enrolCmd)
	rootCmd.AddCommand(configCmd)
}

// Exit prints an error and exits with code 1.
func Exit(format string, args ...any) {
	rootCmd.PrintErrf(format+"\n", args...)
	os.Exit(1)
}
