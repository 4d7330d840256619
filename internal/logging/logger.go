// Package logging builds the service logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/mudra/internal/config"
)

// NewLogger creates a logrus.Logger from cfg writing to w. A nil w writes to
// stdout. Unknown levels fall back to info.
func NewLogger(cfg config.LogConfig, w io.Writer) *logrus.Logger {
	logger := logrus.New()

	level := logrus.InfoLevel
	if cfg.Level != "" {
		if lv, err := logrus.ParseLevel(strings.ToLower(cfg.Level)); err == nil {
			level = lv
		}
	}
	logger.SetLevel(level)

	if w == nil {
		w = os.Stdout
	}
	logger.SetOutput(w)

	var underlying logrus.Formatter
	switch strings.ToLower(cfg.Format) {
	case "json":
		underlying = &logrus.JSONFormatter{
			CallerPrettyfier: func(*runtime.Frame) (string, string) { return "", "" },
		}
	default:
		underlying = &logrus.TextFormatter{
			FullTimestamp:    true,
			CallerPrettyfier: func(*runtime.Frame) (string, string) { return "", "" },
		}
	}
	logger.SetFormatter(&SourceFormatter{Underlying: underlying})
	logger.SetReportCaller(cfg.ReportCaller)

	return logger
}

// SourceFormatter adds a short file:line field when caller reporting is on.
type SourceFormatter struct {
	Underlying logrus.Formatter
}

// Format renders a single log entry.
func (f *SourceFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	if entry.HasCaller() {
		entry.Data["source"] = fmt.Sprintf("%s:%d", filepath.Base(entry.Caller.File), entry.Caller.Line)
	}
	return f.Underlying.Format(entry)
}
