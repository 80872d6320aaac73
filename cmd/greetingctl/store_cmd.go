package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/iota-uz/greeting-store/modules/greeting/domain/aggregates/greeting"
)

type storeOutput struct {
	Command    string `json:"command"`
	DurationMS int64  `json:"duration_ms"`
	ID         int64  `json:"id"`
	MessageID  string `json:"message_id"`
}

func newStoreCmd() *cobra.Command {
	var (
		dto     greeting.CreateDTO
		created string
		events  []string
		file    string
	)

	cmd := &cobra.Command{
		Use:   "store",
		Short: "Store a greeting and its log entry in one transaction",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file != "" {
				loaded, err := readDTO(cmd.InOrStdin(), file)
				if err != nil {
					return err
				}
				dto = loaded
			} else {
				if created != "" {
					at, err := time.Parse(time.RFC3339Nano, created)
					if err != nil {
						return fmt.Errorf("invalid --created: %w", err)
					}
					dto.Created = at
				}
				parsed, err := parseEvents(events)
				if err != nil {
					return err
				}
				dto.EventsCreated = parsed
			}

			rt, err := openRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.close()

			start := time.Now()
			id, err := rt.service.Store(cmd.Context(), &dto)
			if err != nil {
				return err
			}
			return writeJSON(storeOutput{
				Command:    "store",
				DurationMS: time.Since(start).Milliseconds(),
				ID:         id,
				MessageID:  dto.MessageID,
			})
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Read the greeting as JSON from a file (- for stdin); other fields are ignored")
	cmd.Flags().StringVar(&dto.MessageID, "message-id", "", "Message UUID")
	cmd.Flags().StringVar(&dto.ExternalReference, "external-reference", "", "Caller correlation reference")
	cmd.Flags().StringVar(&dto.To, "to", "", "Recipient")
	cmd.Flags().StringVar(&dto.From, "from", "", "Sender")
	cmd.Flags().StringVar(&dto.Heading, "heading", "", "Heading")
	cmd.Flags().StringVar(&dto.Body, "body", "", "Message body")
	cmd.Flags().StringVar(&created, "created", "", "Creation time (RFC3339, default: server now())")
	cmd.Flags().StringArrayVar(&events, "event", nil, "Event as name=RFC3339 time (repeatable)")
	return cmd
}

func readDTO(stdin io.Reader, path string) (greeting.CreateDTO, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return greeting.CreateDTO{}, fmt.Errorf("open --file: %w", err)
		}
		defer f.Close()
		r = f
	}

	var dto greeting.CreateDTO
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&dto); err != nil {
		return greeting.CreateDTO{}, fmt.Errorf("decode --file: %w", err)
	}
	return dto, nil
}

func parseEvents(raw []string) (map[string]time.Time, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[string]time.Time, len(raw))
	for _, item := range raw {
		name, value, ok := strings.Cut(item, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --event %q (expected name=time)", item)
		}
		at, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("invalid --event %q: %w", item, err)
		}
		if _, dup := out[name]; dup {
			return nil, fmt.Errorf("invalid --event %q: %w", item, greeting.ErrEventAlreadyRecorded)
		}
		out[name] = at
	}
	return out, nil
}
