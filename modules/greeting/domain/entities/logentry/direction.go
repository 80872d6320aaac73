package logentry

import (
	"strings"

	"github.com/go-faster/errors"
)

var ErrInvalidDirection = errors.New("invalid direction")

// Direction is the traversal direction of a keyset query over the log.
// Both directions include the boundary row.
type Direction int

const (
	Forward Direction = iota + 1
	Backward
)

func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "forward":
		return Forward, nil
	case "backward":
		return Backward, nil
	default:
		return 0, errors.Wrapf(ErrInvalidDirection, "%q (expected forward|backward)", s)
	}
}

func (d Direction) Valid() bool {
	return d == Forward || d == Backward
}

// Order is the ORDER BY keyword for log.id.
func (d Direction) Order() string {
	if d == Backward {
		return "DESC"
	}
	return "ASC"
}

// Operator compares log.id against the cursor offset.
func (d Direction) Operator() string {
	if d == Backward {
		return "<="
	}
	return ">="
}

func (d Direction) String() string {
	switch d {
	case Forward:
		return "forward"
	case Backward:
		return "backward"
	default:
		return "invalid"
	}
}
