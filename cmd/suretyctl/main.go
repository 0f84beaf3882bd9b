package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "suretyctl",
		Short:         "Operator tooling for the FlightSurety ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(keysCommand(), verifyCommand())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "suretyctl:", err)
		os.Exit(1)
	}
}
