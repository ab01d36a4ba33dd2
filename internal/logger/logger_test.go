package logger

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestSetLevel(t *testing.T) {
	defer Logger.SetLevel(log.InfoLevel)

	SetLevel("debug")
	if Logger.GetLevel() != log.DebugLevel {
		t.Errorf("level = %v, want debug", Logger.GetLevel())
	}
	SetLevel("ERROR")
	if Logger.GetLevel() != log.ErrorLevel {
		t.Errorf("level = %v, want error", Logger.GetLevel())
	}
}

func TestSinkReceivesLines(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)
	defer SetSink(nil)

	var gotLevel, gotMessage string
	SetSink(func(level, message string) {
		gotLevel, gotMessage = level, message
	})

	Infof("session %s started", "/s/1")

	if gotLevel != "INFO" {
		t.Errorf("sink level = %q", gotLevel)
	}
	if gotMessage != "session /s/1 started" {
		t.Errorf("sink message = %q", gotMessage)
	}
	if !strings.Contains(buf.String(), "session /s/1 started") {
		t.Errorf("output = %q", buf.String())
	}
}
