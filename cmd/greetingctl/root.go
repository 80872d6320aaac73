package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	traceparent string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "greetingctl",
		Short:         "Greeting store: migrations, log generation worker and data access",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.traceparent == "" {
				return nil
			}
			ctx, err := contextWithTraceparent(cmd.Context(), opts.traceparent)
			if err != nil {
				return err
			}
			cmd.SetContext(ctx)
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&opts.traceparent, "traceparent", "", "W3C traceparent to continue (default: new trace)")

	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newStoreCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newMessageCmd())
	return cmd
}

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(exitCode(err))
	}
}
