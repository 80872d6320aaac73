package main

import (
	"github.com/spf13/cobra"

	"github.com/iota-uz/greeting-store/modules/greeting/domain/entities/logentry"
)

func newLogsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Read the greeting audit log",
	}
	cmd.AddCommand(newLogsListCmd())
	cmd.AddCommand(newLogsLastCmd())
	return cmd
}

func newLogsListCmd() *cobra.Command {
	var (
		offset    int64
		limit     int64
		direction string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List log entries from an inclusive id boundary",
		RunE: func(cmd *cobra.Command, args []string) error {
			cursor, err := logentry.NewCursor(offset, limit, direction)
			if err != nil {
				return err
			}

			rt, err := openRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.close()

			entries, err := rt.service.ListLogEntries(cmd.Context(), cursor.Offset, cursor.Limit, cursor.Direction.String())
			if err != nil {
				return err
			}
			return writeJSON(toLogPage(cursor, entries))
		},
	}

	cmd.Flags().Int64Var(&offset, "offset", 0, "Inclusive log id boundary")
	cmd.Flags().Int64Var(&limit, "limit", 50, "Page size")
	cmd.Flags().StringVar(&direction, "direction", logentry.Forward.String(), "forward or backward")
	return cmd
}

func toLogPage(cursor logentry.Cursor, entries []logentry.LogEntry) logPageOutput {
	page := logPageOutput{Entries: make([]logEntryOutput, 0, len(entries))}
	for _, e := range entries {
		page.Entries = append(page.Entries, toLogEntryOutput(e))
	}
	if int64(len(entries)) == cursor.Limit {
		if next, ok := cursor.Next(entries); ok {
			page.NextOffset = &next.Offset
		}
	}
	return page
}

func newLogsLastCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "last",
		Short: "Show the most recent log entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.close()

			entry, found, err := rt.service.LastLogEntry(cmd.Context())
			if err != nil {
				return err
			}
			if !found {
				return errNotFound
			}
			return writeJSON(toLogEntryOutput(entry))
		},
	}
}
