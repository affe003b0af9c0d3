// Package main is the mathstream CLI: a terminal view of the live query
// event stream plus access to the local solved-problem history.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/calclabs/mathstream/pkg/mathstream/config"
)

// loadSettings resolves settings from the --config flag, falling back to
// the built-in defaults when no file is given.
func loadSettings(cmd *cobra.Command) (config.Settings, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Settings{}, err
	}
	if path == "" {
		return config.Default(), nil
	}
	return config.FromFile(path)
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "mathstream",
		Short: "Live analytics for the math query event stream",
		Long: `mathstream connects to the query event endpoint, maintains a bounded
deduplicated log of recent query events, and derives live statistics from it:
unique counts, topic and formula-type distributions, complexity classes,
hourly activity, and trending topics.`,
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "Config file (yaml or json)")

	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newHistoryCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
