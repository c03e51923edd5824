// Package log builds the process logger of the nngraph command.
package log

import (
	"io"
	"os"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/zerologr"
	"github.com/rs/zerolog"
)

// New returns a logr.Logger backed by zerolog. Verbosity 0 logs info and
// above; every increment enables one more V level.
func New(verbosity int) logr.Logger {
	var output io.Writer
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		output = os.Stderr
	} else {
		output = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "2006-01-02T15:04:05.999Z07:00"}
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerologr.NameFieldName = "logger"
	zerologr.NameSeparator = "/"
	if verbosity > 1 {
		zerolog.SetGlobalLevel(zerolog.Level(1 - verbosity))
	}

	zl := zerolog.New(output).Level(zerolog.InfoLevel - zerolog.Level(verbosity)).With().Timestamp().Logger()
	return zerologr.New(&zl)
}
