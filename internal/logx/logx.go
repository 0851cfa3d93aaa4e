// Package logx configures the global zerolog logger.
package logx

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init configures the global logger. With pretty enabled output goes through
// the console writer, otherwise structured JSON is written to w (stdout when
// nil). Stdio transports pass io.Discard to keep the pipe clean.
func Init(debug, pretty bool, w io.Writer) {
	if w == nil {
		w = os.Stdout
	}

	if pretty {
		log.Logger = zerolog.New(zerolog.NewConsoleWriter(func(cw *zerolog.ConsoleWriter) {
			cw.Out = w
		})).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(w).With().Timestamp().Logger()
	}

	if debug {
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	} else {
		log.Logger = log.Logger.Level(zerolog.InfoLevel)
	}
}
