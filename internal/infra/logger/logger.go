package logger

import (
	"os"

	"course_expiry_notifier/internal/infra/config"

	"github.com/sirupsen/logrus"
)

// Log is the process-wide logger. Packages never log through it directly;
// they receive a component entry from Component.
var Log = logrus.New()

// Init applies the configured level and picks a formatter for the environment:
// JSON for production and staging, coloured text elsewhere.
func Init(cfg *config.AppConfig) {
	Log.SetOutput(os.Stdout)
	Log.SetFormatter(formatterFor(cfg.Environment))

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
		Log.WithField("log_level", cfg.LogLevel).Warn("Unknown log level, using info")
	}
	Log.SetLevel(level)
	Log.WithFields(logrus.Fields{
		"level":       level.String(),
		"environment": cfg.Environment,
	}).Debug("Logger initialized")
}

func formatterFor(environment string) logrus.Formatter {
	switch environment {
	case "production", "staging":
		return &logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"}
	default:
		return &logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05", ForceColors: true}
	}
}

// Component returns an entry tagged with the component name.
func Component(name string) *logrus.Entry {
	return Log.WithField("component", name)
}
