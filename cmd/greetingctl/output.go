package main

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/iota-uz/greeting-store/modules/greeting/domain/aggregates/greeting"
	"github.com/iota-uz/greeting-store/modules/greeting/domain/entities/logentry"
)

var stdout io.Writer = os.Stdout

func writeJSON(v any) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type logEntryOutput struct {
	ID         int64     `json:"id"`
	GreetingID int64     `json:"greeting_id"`
	MessageID  string    `json:"message_id"`
	Created    time.Time `json:"created"`
}

func toLogEntryOutput(e logentry.LogEntry) logEntryOutput {
	return logEntryOutput{
		ID:         e.ID,
		GreetingID: e.GreetingID,
		MessageID:  e.MessageID.String(),
		Created:    e.CreatedAt,
	}
}

type logPageOutput struct {
	Entries    []logEntryOutput `json:"entries"`
	NextOffset *int64           `json:"next_offset,omitempty"`
}

type messageOutput struct {
	ID                int64                `json:"id"`
	MessageID         string               `json:"message_id"`
	ExternalReference string               `json:"external_reference"`
	To                string               `json:"to"`
	From              string               `json:"from"`
	Heading           string               `json:"heading"`
	Body              string               `json:"body"`
	Created           time.Time            `json:"created"`
	EventsCreated     map[string]time.Time `json:"events_created"`
}

func toMessageOutput(g *greeting.Greeting) messageOutput {
	return messageOutput{
		ID:                g.ID(),
		MessageID:         g.MessageID(),
		ExternalReference: g.ExternalReference(),
		To:                g.To(),
		From:              g.From(),
		Heading:           g.Heading(),
		Body:              g.Body(),
		Created:           g.Created(),
		EventsCreated:     g.EventsCreated(),
	}
}
