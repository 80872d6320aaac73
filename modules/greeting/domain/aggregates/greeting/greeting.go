package greeting

import (
	"maps"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

var (
	ErrInvalidMessageID     = errors.New("message_id is not a valid UUID")
	ErrDuplicateMessageID   = errors.New("message_id already stored")
	ErrEventAlreadyRecorded = errors.New("event already recorded")
	ErrFrozen               = errors.New("greeting already stored")
)

// Greeting is a stored message. Events may be recorded until the greeting is
// persisted; a hydrated greeting is frozen.
type Greeting struct {
	id                int64
	externalReference string
	messageID         string
	to                string
	from              string
	heading           string
	body              string
	created           time.Time
	eventsCreated     map[string]time.Time
}

// Timestamps are kept at the microsecond precision Postgres stores.
const timePrecision = time.Microsecond

// New builds an unsaved greeting. A parseable message id is kept in canonical
// lowercase form; an unparseable one is kept as given and rejected on store.
func New(externalReference, messageID, to, from, heading, body string, created time.Time) *Greeting {
	return &Greeting{
		externalReference: strings.TrimSpace(externalReference),
		messageID:         canonicalMessageID(messageID),
		to:                to,
		from:              from,
		heading:           heading,
		body:              body,
		created:           created.Truncate(timePrecision),
		eventsCreated:     map[string]time.Time{},
	}
}

func Hydrate(
	id int64,
	externalReference string,
	messageID string,
	to string,
	from string,
	heading string,
	body string,
	created time.Time,
	eventsCreated map[string]time.Time,
) *Greeting {
	events := make(map[string]time.Time, len(eventsCreated))
	maps.Copy(events, eventsCreated)
	return &Greeting{
		id:                id,
		externalReference: externalReference,
		messageID:         messageID,
		to:                to,
		from:              from,
		heading:           heading,
		body:              body,
		created:           created,
		eventsCreated:     events,
	}
}

func (g *Greeting) ID() int64                 { return g.id }
func (g *Greeting) ExternalReference() string { return g.externalReference }
func (g *Greeting) MessageID() string         { return g.messageID }
func (g *Greeting) To() string                { return g.to }
func (g *Greeting) From() string              { return g.from }
func (g *Greeting) Heading() string           { return g.heading }
func (g *Greeting) Body() string              { return g.body }
func (g *Greeting) Created() time.Time        { return g.created }
func (g *Greeting) IsStored() bool            { return g.id != 0 }

// EventsCreated returns a copy.
func (g *Greeting) EventsCreated() map[string]time.Time {
	out := make(map[string]time.Time, len(g.eventsCreated))
	maps.Copy(out, g.eventsCreated)
	return out
}

// RecordEvent appends an event. Existing events are never overwritten.
func (g *Greeting) RecordEvent(name string, at time.Time) error {
	if g.IsStored() {
		return ErrFrozen
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("event name is required")
	}
	if _, ok := g.eventsCreated[name]; ok {
		return errors.Wrapf(ErrEventAlreadyRecorded, "%q", name)
	}
	if g.eventsCreated == nil {
		g.eventsCreated = map[string]time.Time{}
	}
	g.eventsCreated[name] = at.Truncate(timePrecision)
	return nil
}

// AssignID records the server-assigned id and freezes the greeting.
func (g *Greeting) AssignID(id int64) error {
	if g.IsStored() {
		return ErrFrozen
	}
	if id <= 0 {
		return errors.Errorf("invalid greeting id %d", id)
	}
	g.id = id
	return nil
}

// ParsedMessageID validates the message id. Callers must check it before touching
// the database.
func (g *Greeting) ParsedMessageID() (uuid.UUID, error) {
	id, err := uuid.Parse(g.messageID)
	if err != nil {
		return uuid.Nil, errors.Wrapf(ErrInvalidMessageID, "%q", g.messageID)
	}
	return id, nil
}

func canonicalMessageID(messageID string) string {
	messageID = strings.TrimSpace(messageID)
	if id, err := uuid.Parse(messageID); err == nil {
		return id.String()
	}
	return messageID
}
