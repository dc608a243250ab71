package logger

import (
	"io"
	"os"
	"regexp"

	"github.com/sirupsen/logrus"
)

var (
	emailRegex  = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	tokenRegex  = regexp.MustCompile(`eyJ[^\s"]+`)
	userIDRegex = regexp.MustCompile(`\buser_id\s*=\s*[\w-]+`)
)

// Logger is a centralized structured logger
type Logger struct {
	out *logrus.Logger
}

// std backs every Logger returned by New. Package-level loggers are built
// before configuration is loaded, so the level is applied later via SetLevel.
var std = newLogrus(os.Stdout, os.Getenv("LOG_LEVEL"))

// New returns a Logger writing JSON lines to stdout through the shared
// instance.
func New() *Logger {
	return &Logger{out: std}
}

// SetLevel changes the level of every Logger returned by New.
// Unknown values fall back to info.
func SetLevel(level string) {
	std.SetLevel(parseLevel(level))
}

// NewWithOutput creates a standalone Logger writing to w at the given level.
func NewWithOutput(w io.Writer, level string) *Logger {
	return &Logger{out: newLogrus(w, level)}
}

func newLogrus(w io.Writer, level string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.JSONFormatter{})
	l.SetLevel(parseLevel(level))
	return l
}

func parseLevel(level string) logrus.Level {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// Anonymize replaces sensitive information in logs (emails, tokens, IDs)
func Anonymize(s string) string {
	s = emailRegex.ReplaceAllString(s, "[REDACTED_EMAIL]")
	s = tokenRegex.ReplaceAllString(s, "[REDACTED_TOKEN]")
	s = userIDRegex.ReplaceAllString(s, "user_id=[USER_ID]")
	return s
}

func (l *Logger) entry(module string, err error) *logrus.Entry {
	e := l.out.WithField("module", module)
	if err != nil {
		e = e.WithField(logrus.ErrorKey, Anonymize(err.Error()))
	}
	return e
}

// --- Convenient methods ---
func (l *Logger) Info(module, msg string) {
	l.entry(module, nil).Info(Anonymize(msg))
}

func (l *Logger) Debug(module, msg string) {
	l.entry(module, nil).Debug(Anonymize(msg))
}

func (l *Logger) Warn(module, msg string) {
	l.entry(module, nil).Warn(Anonymize(msg))
}

func (l *Logger) Error(module, msg string, err error) {
	l.entry(module, err).Error(Anonymize(msg))
}
