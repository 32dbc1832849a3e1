package logger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestNewDefault(t *testing.T) {
	l := NewDefault("test-svc")
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
	if l.service != "test-svc" {
		t.Errorf("expected service 'test-svc', got %q", l.service)
	}
}

func TestNewInvalidLevel(t *testing.T) {
	cfg := &Config{
		Level:  "invalid-level",
		Format: "json",
	}
	var buf bytes.Buffer
	l := NewWithWriter(cfg, "test", &buf)
	l.Debug("hidden")
	l.Info("shown")
	if strings.Contains(buf.String(), "hidden") {
		t.Error("invalid level should fall back to info and drop debug messages")
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Error("expected info message to be written")
	}
}

func TestNewWithWriter_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&Config{Level: "debug", Format: "json"}, "loop", &buf)

	l.WithComponent("parallel").Debug("worker exited", Fields(FieldWorker, 2, FieldReason, "drained"))

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected a single JSON line, got %q: %v", buf.String(), err)
	}
	if entry["message"] != "worker exited" {
		t.Errorf("expected message 'worker exited', got %v", entry["message"])
	}
	if entry[FieldComponent] != "parallel" {
		t.Errorf("expected component 'parallel', got %v", entry[FieldComponent])
	}
	if entry[FieldWorker] != float64(2) {
		t.Errorf("expected worker 2, got %v", entry[FieldWorker])
	}
	if entry[FieldReason] != "drained" {
		t.Errorf("expected reason 'drained', got %v", entry[FieldReason])
	}
}

func TestNewWithWriter_Console(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&Config{Level: "info", Format: "console", NoColor: true}, "loop", &buf)
	l.Warn("clamped")
	out := buf.String()
	if !strings.Contains(out, "[LOO][WAR]") {
		t.Errorf("expected service and level tags, got %q", out)
	}
	if !strings.Contains(out, "clamped") {
		t.Errorf("expected message in output, got %q", out)
	}
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Error("discarded", Fields("k", "v"))
	l.WithComponent("x").WithError(fmt.Errorf("boom")).Warn("also discarded")
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&Config{Level: "info", Format: "json"}, "test", &buf)
	l.WithFields(map[string]interface{}{FieldRunID: "abc"}).Info("started")
	if !strings.Contains(buf.String(), `"run_id":"abc"`) {
		t.Errorf("expected run_id field, got %q", buf.String())
	}
}

func TestWithError(t *testing.T) {
	l := NewDefault("test")
	el := l.WithError(nil)
	if el == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestInit(t *testing.T) {
	Init(Config{Level: "info", Format: "console", Output: "stdout"})
	if GetGlobalLogger() == nil {
		t.Fatal("expected global logger to be set after Init")
	}
}

func TestGetGlobalLoggerDefault(t *testing.T) {
	globalLogger = nil
	if GetGlobalLogger() == nil {
		t.Fatal("expected default global logger to be created")
	}
}

func TestSetGlobalLogger(t *testing.T) {
	l := NewDefault("custom")
	SetGlobalLogger(l)
	if GetGlobalLogger() != l {
		t.Error("expected SetGlobalLogger to set the global logger")
	}
}

func TestPackageLevelFunctions(t *testing.T) {
	SetGlobalLogger(Nop())
	defer SetGlobalLogger(nil)
	// These should not panic
	Debug("debug msg")
	Info("info msg")
	Warn("warn msg")
	Error("error msg")
	_ = WithComponent("pkg")
}

func TestConfigApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.Level != "info" {
		t.Errorf("expected level 'info', got %q", cfg.Level)
	}
	if cfg.Format != "console" {
		t.Errorf("expected format 'console', got %q", cfg.Format)
	}
	if cfg.Output != "stderr" {
		t.Errorf("expected output 'stderr', got %q", cfg.Output)
	}
	if !cfg.Timestamp {
		t.Error("expected Timestamp to be true")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{Level: "info", Format: "json"}, false},
		{"valid console", Config{Level: "debug", Format: "console"}, false},
		{"valid disabled", Config{Level: "disabled", Format: "pretty"}, false},
		{"invalid level", Config{Level: "bad", Format: "json"}, true},
		{"invalid format", Config{Level: "info", Format: "xml"}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestRegisterAndGet(t *testing.T) {
	l := NewDefault("custom-component")
	Register("my-component", l)

	if Get("my-component") != l {
		t.Error("expected Get to return the registered logger")
	}
}

func TestGetUnregistered(t *testing.T) {
	if Get("unregistered-component") == nil {
		t.Fatal("expected non-nil logger for unregistered component")
	}
}

func TestRegisterDefaults(t *testing.T) {
	RegisterDefaults("parallel", "async")
	for _, name := range []string{"parallel", "async"} {
		if Get(name) == nil {
			t.Errorf("expected non-nil logger for %q", name)
		}
	}
}

func TestFields(t *testing.T) {
	tests := []struct {
		name     string
		input    []interface{}
		expected map[string]interface{}
	}{
		{
			"key-value pairs",
			[]interface{}{FieldWorker, 1, FieldReason, "abandoned"},
			map[string]interface{}{FieldWorker: 1, FieldReason: "abandoned"},
		},
		{
			"odd number of args",
			[]interface{}{FieldSent, 3, "trailing"},
			map[string]interface{}{FieldSent: 3},
		},
		{
			"empty",
			[]interface{}{},
			map[string]interface{}{},
		},
		{
			"non-string key skipped",
			[]interface{}{123, "value", "key", "val"},
			map[string]interface{}{"key": "val"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := Fields(tc.input...)
			if len(result) != len(tc.expected) {
				t.Errorf("expected %d fields, got %d", len(tc.expected), len(result))
			}
			for k, v := range tc.expected {
				if result[k] != v {
					t.Errorf("Fields[%q] = %v, expected %v", k, result[k], v)
				}
			}
		})
	}
}

func TestErrorFields(t *testing.T) {
	fields := ErrorFields("abandoned", fmt.Errorf("queue closed"))

	if fields[FieldReason] != "abandoned" {
		t.Errorf("expected reason 'abandoned', got %v", fields[FieldReason])
	}
	if fields[FieldError] != "queue closed" {
		t.Errorf("expected error 'queue closed', got %v", fields[FieldError])
	}
}

func TestDurationFields(t *testing.T) {
	fields := DurationFields("drained", 150*time.Millisecond)

	if fields[FieldReason] != "drained" {
		t.Errorf("expected reason 'drained', got %v", fields[FieldReason])
	}
	if fields[FieldDuration] != int64(150) {
		t.Errorf("expected duration 150, got %v", fields[FieldDuration])
	}
}
