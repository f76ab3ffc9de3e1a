package engine

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// logger returns the engine sub-logger. It is derived from the global logger
// on each call so it follows whatever main configured.
func logger() *zerolog.Logger {
	l := log.With().Str("module", "engine").Logger()
	return &l
}
