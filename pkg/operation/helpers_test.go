package operation

import (
	"io"

	"github.com/rs/zerolog"
)

// zerologTestLogger returns a logger that discards output, used by
// tests that need a Context but don't assert on log lines.
func zerologTestLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}
