// Package main is the entry point for the flash loan arbitrage executor.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

type rootOptions struct {
	configPath string
	tui        bool
}

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "flasharb",
		Short: "Atomic two-leg flash loan arbitrage executor",
		Long: `flasharb borrows a principal through a flash loan, buys on one pool,
sells back on another and repays in the same transaction. If the cycle does
not clear the configured margin, nothing is committed.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to configuration file")
	root.PersistentFlags().BoolVar(&opts.tui, "tui", false, "show the live cycle view instead of console output")

	root.AddCommand(
		newExecuteCmd(opts),
		newLegCmd(opts),
		newQuoteCmd(opts),
		newVersionCmd(),
	)
	return root
}
