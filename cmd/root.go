package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var flagConfig string

var rootCmd = &cobra.Command{
	Use:   "emarknews",
	Short: "News aggregation and ranking service",
	Long: "emarknews fetches articles from RSS, NewsAPI and Reddit sources, ranks them per " +
		"category and serves the result from a two-tier cache.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to the category catalog (overrides CONFIG_PATH)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(watchCmd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
