package logger

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

var (
	// Log is the global logger instance. It is usable before Initialize so
	// packages can log from tests without extra setup.
	Log = logrus.New()
)

// Initialize sets up the logger with the given level and output format.
// format is "text" or "json".
func Initialize(level, format string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("parsing log level %q: %w", level, err)
	}

	l := logrus.New()
	l.SetOutput(os.Stdout)
	switch format {
	case "", "text":
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("unknown log format %q", format)
	}
	l.SetLevel(lvl)

	Log = l
	return nil
}

// Fields are attached to an entry as structured key/value pairs. A nil
// Fields logs the bare message.
type Fields logrus.Fields

func entry(fields Fields) *logrus.Entry {
	return Log.WithFields(logrus.Fields(fields))
}

func Error(msg string, fields Fields) { entry(fields).Error(msg) }

func Info(msg string, fields Fields) { entry(fields).Info(msg) }

func Warn(msg string, fields Fields) { entry(fields).Warn(msg) }

func Debug(msg string, fields Fields) { entry(fields).Debug(msg) }

// Fatal logs at fatal level and exits the process with status 1.
func Fatal(msg string, fields Fields) { entry(fields).Fatal(msg) }
