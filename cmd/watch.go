package cmd

import (
	"emarknews/demo/tui"

	"github.com/spf13/cobra"
)

var flagServerURL string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Browse categories of a running server in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		return tui.Run(flagServerURL)
	},
}

func init() {
	watchCmd.Flags().StringVar(&flagServerURL, "url", "http://localhost:8080", "base URL of the emarknews server")
}
