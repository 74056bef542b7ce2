package monitoring

import (
	"testing"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) {
		called = true
	})
	Logf("test message")
	if !called {
		t.Error("Custom logger was not called")
	}

	called = false
	SetLogger(nil)
	Logf("test")
	if called {
		t.Error("No-op logger should not have triggered callback")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warn", LevelWarn, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"loud", LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestDebugfRespectsLevel(t *testing.T) {
	originalLogf := Logf
	originalLevel := Level(level.Load())
	defer func() {
		Logf = originalLogf
		SetLevel(originalLevel)
	}()

	var lines []string
	SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, format)
	})

	SetLevel(LevelInfo)
	Debugf("hidden")
	Warnf("shown")
	if len(lines) != 1 || lines[0] != "warning: shown" {
		t.Fatalf("lines = %v, want only the warning", lines)
	}

	SetLevel(LevelDebug)
	Debugf("visible")
	if len(lines) != 2 || lines[1] != "visible" {
		t.Fatalf("lines = %v, want debug line appended", lines)
	}

	SetLevel(LevelError)
	Warnf("dropped")
	if len(lines) != 2 {
		t.Fatalf("warning should be dropped at error level, got %v", lines)
	}
}

func TestLevelString(t *testing.T) {
	if LevelWarn.String() != "WARNING" {
		t.Errorf("LevelWarn.String() = %q", LevelWarn.String())
	}
	if Level(42).String() != "LEVEL(42)" {
		t.Errorf("Level(42).String() = %q", Level(42).String())
	}
}
