// Package cli wires the sqltune commands: optimize runs the model-driven
// optimization loop against a database, inspect prints its catalog.
package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"sqltune/internal/config"
)

var (
	cfgPath string
	verbose bool
	cfg     config.Config
)

var rootCmd = &cobra.Command{
	Use:   "sqltune",
	Short: "LLM-driven SQL query optimizer for SQLite",
	Long: `sqltune lets a language model investigate a SQLite database through a
fixed set of read-only tools and propose query rewrites, which are then
benchmarked locally. Only measured improvements are kept.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

		var err error
		cfg, err = config.Load(cfgPath)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default $SQLTUNE_CONFIG, then ~/.config/sqltune/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(optimizeCmd(), inspectCmd())
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
