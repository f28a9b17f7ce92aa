package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Log is the process-wide structured logger. It is usable before Init with
// logrus defaults so packages can log from tests without setup.
var Log = logrus.New()

// Init configures the shared logger for the given environment. Development
// gets human readable text output, everything else gets JSON.
func Init(env, level string) {
	Log.Out = os.Stdout

	if env == "development" {
		Log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	} else {
		Log.SetFormatter(&logrus.JSONFormatter{})
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Log.SetLevel(lvl)
}

// WithComponent returns an entry tagged with the component name.
func WithComponent(name string) *logrus.Entry {
	return Log.WithField("component", name)
}
