package mqpayload

import (
	"io"

	"github.com/sirupsen/logrus"
)

func defaultLogger() logrus.FieldLogger {
	return logrus.StandardLogger().WithField("component", "mqpayload")
}

// NewLogger returns a JSON logrus logger writing to out at the named level.
// Unknown levels fall back to info.
func NewLogger(out io.Writer, level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetFormatter(&logrus.JSONFormatter{})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)

	return logger
}
