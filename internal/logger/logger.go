package logger

import (
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type Level = zerolog.Level

const (
	DEBUG = zerolog.DebugLevel
	INFO  = zerolog.InfoLevel
	WARN  = zerolog.WarnLevel
	ERROR = zerolog.ErrorLevel
	FATAL = zerolog.FatalLevel
)

type Logger struct {
	zl zerolog.Logger
}

// New builds a service-tagged logger. LOG_LEVEL picks the minimum level,
// LOG_FORMAT=json switches from the console writer to JSON lines and
// LOG_COLORS=false disables ANSI colors on the console writer.
func New(service string) *Logger {
	var out io.Writer = os.Stdout
	if !strings.EqualFold(os.Getenv("LOG_FORMAT"), "json") {
		out = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "15:04:05",
			NoColor:    os.Getenv("LOG_COLORS") == "false",
		}
	}
	return NewWithWriter(service, out, ParseLevel(os.Getenv("LOG_LEVEL")))
}

// NewWithWriter is New with an explicit sink and level.
func NewWithWriter(service string, out io.Writer, level Level) *Logger {
	zl := zerolog.New(out).Level(level).With().Timestamp().Logger()
	if service != "" {
		zl = zl.With().Str("service", service).Logger()
	}
	return &Logger{zl: zl}
}

// Nop discards everything.
func Nop() *Logger {
	return NewWithWriter("", io.Discard, zerolog.Disabled)
}

func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return DEBUG
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	case "FATAL":
		return FATAL
	default:
		return INFO
	}
}

// With returns a child logger that adds key=value to every line.
func (l *Logger) With(key string, value interface{}) *Logger {
	return &Logger{zl: l.zl.With().Interface(key, value).Logger()}
}

// Zerolog exposes the underlying logger for structured call sites such as the
// HTTP access log.
func (l *Logger) Zerolog() *zerolog.Logger {
	return &l.zl
}

func (l *Logger) Debug(format string, args ...interface{}) {
	l.zl.Debug().Msgf(format, args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.zl.Info().Msgf(format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.zl.Warn().Msgf(format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.zl.Error().Msgf(format, args...)
}

// Fatal logs and exits with status 1.
func (l *Logger) Fatal(format string, args ...interface{}) {
	l.zl.Fatal().Msgf(format, args...)
}

// SetStdLog redirects standard log package to use this logger
func (l *Logger) SetStdLog() {
	log.SetOutput(&stdLogWriter{logger: l})
	log.SetFlags(0)
}

type stdLogWriter struct {
	logger *Logger
}

func (w *stdLogWriter) Write(p []byte) (n int, err error) {
	msg := strings.TrimSpace(string(p))
	w.logger.Info("%s", msg)
	return len(p), nil
}

func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
