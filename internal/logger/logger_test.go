package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestLevelValidate(t *testing.T) {
	tests := []struct {
		level   Level
		wantErr bool
	}{
		{LevelDebug, false},
		{LevelInfo, false},
		{LevelWarn, false},
		{LevelError, false},
		{Level("verbose"), true},
		{Level(""), true},
	}
	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			if err := tt.level.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestToSlogLevel(t *testing.T) {
	if got := LevelDebug.ToSlogLevel(); got != slog.LevelDebug {
		t.Errorf("debug -> %v", got)
	}
	if got := Level("bogus").ToSlogLevel(); got != slog.LevelWarn {
		t.Errorf("unknown -> %v, want warn", got)
	}
}

func TestConfigFinalize(t *testing.T) {
	t.Setenv("TEST_LOG_LEVEL", "debug")
	t.Setenv("TEST_LOG_FORMAT", "")

	cfg := &Config{}
	if err := cfg.Finalize(&Env{Level: "TEST_LOG_LEVEL", Format: "TEST_LOG_FORMAT"}); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
	if cfg.Level != LevelDebug {
		t.Errorf("Level = %q, want debug", cfg.Level)
	}
	if cfg.Format != FormatText {
		t.Errorf("Format = %q, want text", cfg.Format)
	}

	bad := &Config{Format: "xml"}
	if err := bad.Finalize(nil); err == nil {
		t.Error("Finalize() accepted format xml")
	}
}

func TestNewWithWriter(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&Config{Level: LevelInfo, Format: FormatJSON}, &buf)
	log.Debug("hidden")
	log.Info("shown", "component", "store")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("debug record written at info level")
	}
	if !strings.Contains(out, `"component":"store"`) {
		t.Errorf("output = %q, want JSON with component attribute", out)
	}
}
