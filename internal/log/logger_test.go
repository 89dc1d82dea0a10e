// SPDX-License-Identifier: MIT
package log

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
		ok   bool
	}{
		{"debug", LevelDebug, true},
		{"INFO", LevelInfo, true},
		{" warning ", LevelWarn, true},
		{"Error", LevelError, true},
		{"fatal", LevelFatal, true},
		{"loud", LevelInfo, false},
	}
	for _, tt := range tests {
		got, ok := ParseLevel(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseLevel(%q) = %s, %v; want %s, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		SetLevel(LevelInfo)
	})

	if err := Configure("warn", false); err != nil {
		t.Fatal(err)
	}
	Debugf("debug %d", 1)
	Infof("info %d", 2)
	Warnf("warn %d", 3)
	Errorf("error %d", 4)

	out := buf.String()
	if strings.Contains(out, "debug 1") || strings.Contains(out, "info 2") {
		t.Errorf("messages below WARN were logged: %q", out)
	}
	if !strings.Contains(out, "[WARN ] warn 3") || !strings.Contains(out, "[ERROR] error 4") {
		t.Errorf("expected warn and error lines, got %q", out)
	}

	if err := Configure("warn", true); err != nil || GetLevel() != LevelDebug {
		t.Errorf("verbose should force DEBUG, got %s (%v)", GetLevel(), err)
	}
	if err := Configure("loud", false); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestLevelString(t *testing.T) {
	if LevelError.String() != "ERROR" || LogLevel(42).String() != "UNKNOWN" {
		t.Error("unexpected level names")
	}
}
