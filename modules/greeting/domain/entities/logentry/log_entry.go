package logentry

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

var ErrInvalidLimit = errors.New("limit must be positive")

type LogEntry struct {
	ID         int64
	GreetingID int64
	MessageID  uuid.UUID
	CreatedAt  time.Time
}

// Cursor bounds one keyset read. Offset is an inclusive log id.
type Cursor struct {
	Offset    int64
	Limit     int64
	Direction Direction
}

func NewCursor(offset, limit int64, direction string) (Cursor, error) {
	d, err := ParseDirection(direction)
	if err != nil {
		return Cursor{}, err
	}
	c := Cursor{Offset: offset, Limit: limit, Direction: d}
	if err := c.Validate(); err != nil {
		return Cursor{}, err
	}
	return c, nil
}

func (c Cursor) Validate() error {
	if !c.Direction.Valid() {
		return errors.Wrapf(ErrInvalidDirection, "%d", int(c.Direction))
	}
	if c.Limit <= 0 {
		return errors.Wrapf(ErrInvalidLimit, "got %d", c.Limit)
	}
	return nil
}

// Next returns the cursor continuing after the last entry of a page read with c.
// It reports false when page is empty.
func (c Cursor) Next(page []LogEntry) (Cursor, bool) {
	if len(page) == 0 {
		return c, false
	}
	last := page[len(page)-1].ID
	next := c
	if c.Direction == Backward {
		next.Offset = last - 1
	} else {
		next.Offset = last + 1
	}
	return next, true
}
