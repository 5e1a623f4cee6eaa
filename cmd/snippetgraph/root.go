package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/morganhiggin2/snippetbuilder/pkg/snippets"
)

var (
	logLevel    string
	catalogPath string
	logger      = snippets.DefaultLogger()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "snippetgraph",
	Short: "Build and check snippet graphs",
	Long: `snippetgraph loads snippet definitions from a catalog and snippet graphs from
project files. It checks that a project wires together without cycles, reports
inputs that nothing feeds, and exports the run order and port map an executor
needs.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := snippets.LogLevelFromString(logLevel)
		if err != nil {
			return fmt.Errorf("invalid --log-level %q: %w", logLevel, err)
		}
		logger = snippets.NewLogger(cmd.ErrOrStderr(), level)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&catalogPath, "catalog", "", "Catalog file (default: the catalog named by the project)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(newCatalogCommand())
	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newPlanCommand())
	rootCmd.AddCommand(newGraphCommand())
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  `Print the version number of snippetgraph`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "snippetgraph version %s (commit: %s, built: %s)\n", version, commit, date)
	},
}
