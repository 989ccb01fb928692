package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Somnusochi/auto-novel/cmd/sakura/commands"
	"github.com/Somnusochi/auto-novel/logger"
)

var rootCmd = &cobra.Command{
	Use:   "sakura",
	Short: "Sakura - distributed translation job scheduler",
	Long: `Sakura queues novel translation jobs and hands them to GPU workers.

Available commands:
  serve    - Run the scheduler HTTP server
  am       - Show or write the configuration ("I am")
  job      - Inspect the job queue
  catalog  - Import the novels tasks may refer to
  token    - Issue access tokens
  db       - Manage the database
  version  - Show build information

Examples:
  sakura serve -v                       # Run with info logging
  sakura am show --format yaml          # Show the merged configuration
  sakura catalog import works.toml      # Seed the novel catalog
  sakura token issue --user kaede --role maintainer`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		jsonLogs, _ := cmd.Flags().GetBool("json-logs")
		if err := logger.InitializeWithLevel(jsonLogs, logger.VerbosityToLevel(verbosity)); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().Bool("json-logs", false, "Emit logs as JSON")

	rootCmd.AddCommand(commands.ServeCmd)
	rootCmd.AddCommand(commands.AmCmd)
	rootCmd.AddCommand(commands.JobCmd)
	rootCmd.AddCommand(commands.CatalogCmd)
	rootCmd.AddCommand(commands.TokenCmd)
	rootCmd.AddCommand(commands.DbCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
