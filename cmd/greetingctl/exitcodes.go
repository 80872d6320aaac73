package main

import (
	"errors"

	"github.com/iota-uz/greeting-store/modules/greeting/domain/aggregates/greeting"
	"github.com/iota-uz/greeting-store/modules/greeting/domain/entities/logentry"
	"github.com/iota-uz/greeting-store/modules/greeting/services"
	"github.com/iota-uz/greeting-store/pkg/pgtrace"
)

const (
	exitFailure  = 1
	exitUsage    = 2
	exitNotFound = 3
	exitConflict = 4
)

var errNotFound = errors.New("not found")

func exitCode(err error) int {
	switch {
	case errors.Is(err, errNotFound):
		return exitNotFound
	case errors.Is(err, greeting.ErrDuplicateMessageID):
		return exitConflict
	case errors.Is(err, services.ErrValidation),
		errors.Is(err, greeting.ErrInvalidMessageID),
		errors.Is(err, logentry.ErrInvalidDirection),
		errors.Is(err, logentry.ErrInvalidLimit),
		errors.Is(err, pgtrace.ErrInvalidTraceContext):
		return exitUsage
	default:
		return exitFailure
	}
}
