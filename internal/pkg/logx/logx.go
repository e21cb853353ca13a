/*
Package logx owns the relay's process-wide zerolog logger.

main configures it once with InitGlobalLogger. Long-lived parts of the relay (hub,
registry, router, archiver, storage) take a child logger from Component and log with
zerolog's event API; request handlers use the key/value helpers below.
*/
package logx

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitGlobalLogger configures the process-wide logger. Development logs debug and
// above to a colored console on stderr; any other environment logs info and above
// as JSON on stdout. Entries carry a Unix timestamp and the calling line.
func InitGlobalLogger(isDevelopment bool) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	var out io.Writer = os.Stdout
	level := zerolog.InfoLevel
	if isDevelopment {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
		level = zerolog.DebugLevel
	}

	log.Logger = zerolog.New(out).Level(level).With().Timestamp().Caller().Logger()
}

// SetOutput redirects the global logger, keeping its level. Tests use it to silence
// or capture relay logs.
func SetOutput(w io.Writer) {
	log.Logger = log.Logger.Output(w)
}

// Logger returns the global logger.
func Logger() *zerolog.Logger {
	return &log.Logger
}

// Component returns a child of the global logger tagged with the given component name.
func Component(name string) zerolog.Logger {
	return Logger().With().Str("component", name).Logger()
}

// emit writes msg with alternating key/value fields. An odd field count would make
// zerolog drop the trailing key silently, so the fields are discarded with a warning.
// Callers are the exported helpers, hence two skipped frames.
func emit(ev *zerolog.Event, level, msg string, fields []any) {
	if len(fields)%2 != 0 {
		Logger().Warn().
			Int("fields_count", len(fields)).
			Str("log_level", level).
			Msgf("logx.%s received an odd number of fields: %v. Fields ignored.", level, fields)
		fields = nil
	}

	ev.Fields(fields).CallerSkipFrame(2).Msg(msg)
}

func Debug(msg string, fields ...any) {
	emit(Logger().Debug(), "Debug", msg, fields)
}

func Info(msg string, fields ...any) {
	emit(Logger().Info(), "Info", msg, fields)
}

func Warn(msg string, fields ...any) {
	emit(Logger().Warn(), "Warn", msg, fields)
}

// Error logs msg at error level with err attached.
func Error(err error, msg string, fields ...any) {
	emit(Logger().Error().Err(err), "Error", msg, fields)
}

// Fatal logs like Error and then exits the process with status 1.
func Fatal(err error, msg string, fields ...any) {
	emit(Logger().Fatal().Err(err), "Fatal", msg, fields)
}
