package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <category>",
	Short: "Run one full cycle for a category and print the result as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runFetch,
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	entry := a.orch.Refresh(ctx, args[0])

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(entry); err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	if !entry.Success {
		return fmt.Errorf("fetch %s: %s", args[0], entry.Error)
	}
	return nil
}
