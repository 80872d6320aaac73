package models

import (
	"time"

	"github.com/google/uuid"
)

type Message struct {
	ID                int64
	MessageID         uuid.UUID
	ExternalReference string
	To                string
	From              string
	Heading           string
	Message           string
	EventsCreated     []byte
	Created           time.Time
}

type Log struct {
	ID         int64
	GreetingID int64
	MessageID  uuid.UUID
	Created    time.Time
}
