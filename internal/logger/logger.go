package logger

import (
	"github.com/Momen-Elshamy/mvrouter-sub000/internal/config"

	"github.com/sirupsen/logrus"
)

// Logger wraps logrus.Logger with additional functionality
type Logger struct {
	*logrus.Logger
}

// NewLogger creates a new structured logger instance
func NewLogger(cfg *config.Config) *Logger {
	log := logrus.New()

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Logging.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return &Logger{Logger: log}
}

// WithRequest adds request context to log entries
func (l *Logger) WithRequest(requestID string) *logrus.Entry {
	return l.WithField("request_id", requestID)
}

// WithProvider adds provider context to log entries
func (l *Logger) WithProvider(slug string) *logrus.Entry {
	return l.WithField("provider", slug)
}

// WithCaller adds caller identity to log entries
func (l *Logger) WithCaller(callerID string) *logrus.Entry {
	return l.WithField("caller_id", callerID)
}

// WithEndpoint adds provider endpoint context to log entries
func (l *Logger) WithEndpoint(name string) *logrus.Entry {
	return l.WithField("endpoint", name)
}
