package cli

import (
	"bytes"
	"context"
	"io"
	"regexp"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestLoggerLevels(t *testing.T) {
	tests := []struct {
		level log.Level
		emit  func(*log.Logger)
		want  bool
	}{
		{log.InfoLevel, func(l *log.Logger) { l.Info("laid out", "measures", 2) }, true},
		{log.InfoLevel, func(l *log.Logger) { l.Debug("cache miss", "key", "layout:abc") }, false},
		{log.DebugLevel, func(l *log.Logger) { l.Debug("cache miss", "key", "layout:abc") }, true},
		{log.WarnLevel, func(l *log.Logger) { l.Info("laid out") }, false},
	}

	for _, tt := range tests {
		var buf bytes.Buffer
		tt.emit(newLogger(&buf, tt.level))
		if got := buf.Len() > 0; got != tt.want {
			t.Errorf("level %v: logged = %v, want %v (%q)", tt.level, got, tt.want, buf.String())
		}
	}
}

func TestSetLogLevel(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf, LogInfo)
	c.Logger.Debug("hidden")
	c.SetLogLevel(LogDebug)
	c.Logger.Debug("shown")

	if got := buf.String(); strings.Contains(got, "hidden") || !strings.Contains(got, "shown") {
		t.Errorf("log = %q, want only the message after raising the level", got)
	}
}

func TestProgressDone(t *testing.T) {
	var buf bytes.Buffer
	newProgress(newLogger(&buf, log.InfoLevel)).done("Laid out 2 measures in 1 rows")

	if !regexp.MustCompile(`Laid out 2 measures in 1 rows \(\d+(\.\d+)?[mµn]?s\)`).MatchString(buf.String()) {
		t.Errorf("progress = %q, want message with elapsed time", buf.String())
	}
}

func TestLoggerFromContext(t *testing.T) {
	if loggerFromContext(context.Background()) != log.Default() {
		t.Error("bare context: want log.Default()")
	}

	l := newLogger(io.Discard, log.InfoLevel)
	if got := loggerFromContext(withLogger(context.Background(), l)); got != l {
		t.Error("loggerFromContext did not return the attached logger")
	}
}
