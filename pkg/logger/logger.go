// Package logger wraps logrus with the formatting/output conventions used
// across this runtime: text or JSON, stdout or stdout+file, one leveled
// logger shared by every component.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger wraps logrus.Logger so call sites depend on this package, not logrus
// directly.
type Logger struct {
	*logrus.Logger
}

// Config controls level, format and output destination.
type Config struct {
	Level      string `json:"level" yaml:"level"`
	Format     string `json:"format" yaml:"format"`
	Output     string `json:"output" yaml:"output"`
	FilePrefix string `json:"file_prefix" yaml:"file_prefix"`
}

// New builds a Logger from Config, falling back to sane defaults for any
// field left unset or unparsable.
func New(cfg Config) *Logger {
	log := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	switch strings.ToLower(cfg.Format) {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	default:
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	switch strings.ToLower(cfg.Output) {
	case "file":
		prefix := cfg.FilePrefix
		if prefix == "" {
			prefix = "nanoserve"
		}
		if err := os.MkdirAll("logs", 0o755); err != nil {
			log.Errorf("failed to create logs directory: %v", err)
			break
		}
		path := filepath.Join("logs", prefix+".log")
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.Errorf("failed to open log file: %v", err)
			break
		}
		log.SetOutput(io.MultiWriter(os.Stdout, file))
	default:
		log.SetOutput(os.Stdout)
	}

	return &Logger{Logger: log}
}

// NewDefault returns a text/info/stdout logger. The component name is not
// attached to the logger or to its entries.
func NewDefault(component string) *Logger {
	l := New(Config{Level: "info", Format: "text", Output: "stdout"})
	if component != "" {
		return &Logger{Logger: l.Logger}
	}
	return l
}

// WithField returns a log entry carrying one extra field.
func (l *Logger) WithField(key string, value interface{}) *logrus.Entry {
	return l.Logger.WithField(key, value)
}

// WithFields returns a log entry carrying several extra fields.
func (l *Logger) WithFields(fields logrus.Fields) *logrus.Entry {
	return l.Logger.WithFields(fields)
}

// Tenant scopes a logger to a hostname; the HTTP front end uses it to tag
// its per-tenant error lines.
func (l *Logger) Tenant(hostname string) *logrus.Entry {
	return l.Logger.WithField("tenant", hostname)
}
