package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMessageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "message",
		Short: "Read stored greetings",
	}
	cmd.AddCommand(newMessageGetCmd())
	return cmd
}

func newMessageGetCmd() *cobra.Command {
	var id int64

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Show a stored greeting by id",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.close()

			g, found, err := rt.service.FindMessage(cmd.Context(), id)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("message %d: %w", id, errNotFound)
			}
			return writeJSON(toMessageOutput(g))
		},
	}

	cmd.Flags().Int64Var(&id, "id", 0, "Message id (required)")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}
