package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestMapLevelToZapLevel(t *testing.T) {
	tests := []struct {
		name     string
		level    LogLevel
		expected string
		known    bool
	}{
		{"debug level", LevelDebug, "debug", true},
		{"info level", LevelInfo, "info", true},
		{"progress level", LevelProgress, "info", true},
		{"minimal level", LevelMinimal, "warn", true},
		{"warn level", LevelWarn, "warn", true},
		{"error level", LevelError, "error", true},
		{"unknown level defaults to info", LogLevel("unknown"), "info", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			zapLevel, known := mapLevelToZapLevel(tt.level)
			if zapLevel.String() != tt.expected {
				t.Errorf("mapLevelToZapLevel() = %v, want %v", zapLevel.String(), tt.expected)
			}
			if known != tt.known {
				t.Errorf("mapLevelToZapLevel() known = %v, want %v", known, tt.known)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	if lvl, err := ParseLevel(""); err != nil || lvl != LevelProgress {
		t.Errorf("ParseLevel(\"\") = %v, %v; want progress, nil", lvl, err)
	}
	if lvl, err := ParseLevel(" DEBUG "); err != nil || lvl != LevelDebug {
		t.Errorf("ParseLevel(DEBUG) = %v, %v; want debug, nil", lvl, err)
	}
	if _, err := ParseLevel("chatty"); err == nil {
		t.Error("ParseLevel(chatty) expected error")
	}
}

func TestInitRejectsUnknownFormat(t *testing.T) {
	Reset()
	defer Reset()

	if err := Init(Config{Level: LevelInfo, Format: "xml"}); err == nil {
		t.Error("Init() with xml format expected error")
	}
}

func TestJSONOutput(t *testing.T) {
	Reset()
	defer Reset()

	var buf bytes.Buffer
	if err := Init(Config{Level: LevelDebug, Format: FormatJSON, Output: &buf}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	Info("stage completed", "stage", "fetch", "commits", 2)
	Debug("debug line")
	_ = Sync()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d: %q", len(lines), buf.String())
	}

	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["msg"] != "stage completed" {
		t.Errorf("msg = %v, want %q", entry["msg"], "stage completed")
	}
	if entry["stage"] != "fetch" {
		t.Errorf("stage = %v, want fetch", entry["stage"])
	}
	if entry["level"] != "info" {
		t.Errorf("level = %v, want info", entry["level"])
	}
}

func TestLevelFiltering(t *testing.T) {
	Reset()
	defer Reset()

	var buf bytes.Buffer
	if err := Init(Config{Level: LevelWarn, Format: FormatJSON, Output: &buf}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	Info("hidden")
	Warn("shown")
	_ = Sync()

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message should be filtered at warn level: %q", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("warn message missing: %q", out)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Level != LevelProgress {
		t.Errorf("DefaultConfig().Level = %v, want %v", cfg.Level, LevelProgress)
	}
	if cfg.Format != FormatConsole {
		t.Errorf("DefaultConfig().Format = %v, want %v", cfg.Format, FormatConsole)
	}
}

func TestGetInitializesDefaultLogger(t *testing.T) {
	Reset()
	defer Reset()

	logger := Get()
	if logger == nil {
		t.Fatal("Get() returned nil logger")
	}
	if logger != Get() {
		t.Error("Get() returned different logger instances")
	}
}

func TestWith(t *testing.T) {
	Reset()
	defer Reset()

	var buf bytes.Buffer
	if err := Init(Config{Level: LevelDebug, Format: FormatJSON, Output: &buf}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	With("repository", "acme/api").Infow("scoped")
	_ = Sync()

	if !strings.Contains(buf.String(), `"repository":"acme/api"`) {
		t.Errorf("With() fields missing from output: %q", buf.String())
	}
}

func TestRedact(t *testing.T) {
	Reset()
	defer Reset()

	var buf bytes.Buffer
	redact := func(s string) string { return strings.ReplaceAll(s, "ghp_secret", "[REDACTED]") }
	if err := Init(Config{Level: LevelInfo, Format: FormatConsole, Output: &buf, Redact: redact}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	Error("request failed", "error", "401 for token ghp_secret")
	_ = Sync()

	out := buf.String()
	if strings.Contains(out, "ghp_secret") {
		t.Errorf("secret leaked into log output: %q", out)
	}
	if !strings.Contains(out, "[REDACTED]") {
		t.Errorf("redaction marker missing: %q", out)
	}
}
