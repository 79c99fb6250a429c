package destination

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidPort      = errors.New("invalid port")
	ErrUnresolvableHost = errors.New("unresolvable host")

	// ErrSuperseded is returned by an edit whose lookup finished after a
	// later edit had already been applied.
	ErrSuperseded = errors.New("superseded by a later edit")
)

// ConfigError reports a rejected host/port edit.
type ConfigError struct {
	Field string // "host" or "port"
	Input string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Field, e.Input, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
