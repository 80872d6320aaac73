package persistence

import (
	"encoding/json"
	"time"

	"github.com/go-faster/errors"

	"github.com/iota-uz/greeting-store/modules/greeting/domain/aggregates/greeting"
	"github.com/iota-uz/greeting-store/modules/greeting/domain/entities/logentry"
	"github.com/iota-uz/greeting-store/modules/greeting/infrastructure/persistence/models"
)

func toDBMessage(g *greeting.Greeting) (models.Message, error) {
	messageID, err := g.ParsedMessageID()
	if err != nil {
		return models.Message{}, err
	}
	events, err := json.Marshal(g.EventsCreated())
	if err != nil {
		return models.Message{}, errors.Wrap(err, "marshal events_created")
	}
	return models.Message{
		MessageID:         messageID,
		ExternalReference: g.ExternalReference(),
		To:                g.To(),
		From:              g.From(),
		Heading:           g.Heading(),
		Message:           g.Body(),
		EventsCreated:     events,
		Created:           g.Created(),
	}, nil
}

func toDomainGreeting(row models.Message) (*greeting.Greeting, error) {
	events := map[string]time.Time{}
	if len(row.EventsCreated) > 0 {
		if err := json.Unmarshal(row.EventsCreated, &events); err != nil {
			return nil, errors.Wrap(err, "unmarshal events_created")
		}
	}
	return greeting.Hydrate(
		row.ID,
		row.ExternalReference,
		row.MessageID.String(),
		row.To,
		row.From,
		row.Heading,
		row.Message,
		row.Created,
		events,
	), nil
}

func toDomainLogEntry(row models.Log) logentry.LogEntry {
	return logentry.LogEntry{
		ID:         row.ID,
		GreetingID: row.GreetingID,
		MessageID:  row.MessageID,
		CreatedAt:  row.Created,
	}
}
