package log

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Writer: &buf, Level: LevelWarn})

	l.Info("hidden")
	l.Warn("shown", "repo", "octo/hello")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("Expected INFO line to be filtered, got: %s", out)
	}
	if !strings.Contains(out, "[WARN] shown repo=octo/hello") {
		t.Errorf("Expected WARN line with key/value, got: %s", out)
	}
}

func TestLoggerErrorQuotesValues(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Writer: &buf, Level: LevelDebug})

	l.Error("commit failed", errors.New("quota exceeded"), "id", "c1")

	out := buf.String()
	if !strings.Contains(out, `err="quota exceeded" id=c1`) {
		t.Errorf("Expected quoted error value, got: %s", out)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		"WARNING": LevelWarn,
		"error":   LevelError,
		"":        LevelInfo,
		"chatty":  LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q): expected %v, got %v", in, want, got)
		}
	}
}
