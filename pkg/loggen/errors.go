package loggen

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidConfig = errors.New("invalid log generation configuration")
	ErrCyclePanicked = errors.New("loggen: cycle panicked")
)

func invalidConfig(msg string, args ...any) error {
	return fmt.Errorf("%w: "+msg, append([]any{ErrInvalidConfig}, args...)...)
}
