package logger

import (
	"fmt"
	"io"
	"path"
	"runtime"

	log "github.com/sirupsen/logrus"
)

const (
	FormatJSON = "json"
	FormatText = "text"

	timestampFormat = "2006-01-02 15:04:05.000"
)

// SetupLogger configures the standard logrus logger used across the service.
func SetupLogger(level, format string) {
	configure(log.StandardLogger(), level, format)
}

// New builds an independent logger writing to out, configured the same way
// as the standard one.
func New(level, format string, out io.Writer) *log.Logger {
	l := log.New()
	l.SetOutput(out)
	configure(l, level, format)
	return l
}

func configure(l *log.Logger, level, format string) {
	l.SetReportCaller(true)

	prettyCaller := func(frame *runtime.Frame) (function string, file string) {
		return "", fmt.Sprintf("%s:%d", path.Base(frame.File), frame.Line)
	}

	if format == FormatText {
		l.SetFormatter(&log.TextFormatter{
			FullTimestamp:    true,
			TimestampFormat:  timestampFormat,
			CallerPrettyfier: prettyCaller,
		})
	} else {
		l.SetFormatter(&log.JSONFormatter{
			CallerPrettyfier: prettyCaller,
			TimestampFormat:  timestampFormat,
		})
	}

	loggerLevel, err := log.ParseLevel(level)
	if err != nil {
		l.Infof("Level setup default INFO, err: %v", err)
		l.SetLevel(log.InfoLevel)
		return
	}
	l.SetLevel(loggerLevel)
}
