package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

var root = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}).
	With().Timestamp().Logger()

// SetGlobalLevel sets the minimum level emitted by every Log.
func SetGlobalLevel(level LogLevel) {
	switch level {
	case LogLevelDebug:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case LogLevelWarn:
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case LogLevelError:
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

type Log struct {
	l   zerolog.Logger
	err error
}

func New() *Log {
	return &Log{l: root}
}

func (l *Log) WithError(err error) *Log {
	return &Log{l: l.l, err: err}
}

// WithField attaches a key/value pair carried by every message.
func (l *Log) WithField(key string, value interface{}) *Log {
	return &Log{l: l.l.With().Interface(key, value).Logger(), err: l.err}
}

// WithDuration attaches an elapsed duration.
func (l *Log) WithDuration(d time.Duration) *Log {
	return &Log{l: l.l.With().Dur("elapsed", d).Logger(), err: l.err}
}

func (l *Log) Debug(msg string) {
	l.l.Debug().Err(l.err).Msg(msg)
}

func (l *Log) Info(msg string) {
	l.l.Info().Err(l.err).Msg(msg)
}

func (l *Log) Warn(msg string) {
	l.l.Warn().Err(l.err).Msg(msg)
}

func (l *Log) Error(msg string) {
	l.l.Error().Err(l.err).Msg(msg)
}
