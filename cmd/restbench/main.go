package main

import (
	"fmt"
	"os"

	"github.com/restbench/restbench/internal/cli"
	"github.com/restbench/restbench/internal/config"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "restbench",
	Short: "restbench - HTTP request execution engine",
	Long: `restbench resolves templated HTTP requests, dispatches them with
timeout and cancellation control, and replays whole collections as
unattended batch runs.

Examples:
  restbench send get-user.yaml            # Execute a single request file
  restbench send api.json --timeout 5000  # 5s timeout override
  restbench run collection.yaml           # Run every request in order
  restbench run collection.yaml --json    # Machine-readable report
  restbench ping https://api.example.com  # Reachability probe`,
	Version: version,
}

var sendCmd = &cobra.Command{
	Use:   "send <file>",
	Short: "Execute a single request file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Initialize(); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}
		return cli.Send(args[0], opts)
	},
}

var runCmd = &cobra.Command{
	Use:   "run <collection-file>",
	Short: "Run every request of a collection sequentially",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Initialize(); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}
		return cli.Run(args[0], opts)
	},
}

var pingCmd = &cobra.Command{
	Use:   "ping <url>",
	Short: "Probe a host for reachability",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.Ping(args[0], opts.TimeoutMs)
	},
}

var opts cli.Options

func init() {
	rootCmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", "", "Load variables from a .env file")
	rootCmd.PersistentFlags().StringVar(&opts.Environments, "environments", "", "Environments file (defaults to the workspace one)")
	rootCmd.PersistentFlags().Int64Var(&opts.TimeoutMs, "timeout", 0, "Request timeout in milliseconds")
	rootCmd.PersistentFlags().BoolVar(&opts.OutputJSON, "json", false, "JSON output")
	rootCmd.PersistentFlags().BoolVar(&opts.NoHistory, "no-history", false, "Skip history recording")

	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(pingCmd)
}
