// Copyright 2026 The mltrack Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("MLTRACK_DEBUG", "")
	t.Setenv("MLTRACK_LOG_LEVEL", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_FORMAT", "")
	t.Setenv("LOG_SOURCE", "")

	cfg := FromEnv()
	if cfg.Level != "info" {
		t.Errorf("expected level info, got %s", cfg.Level)
	}
	if cfg.Format != FormatText {
		t.Errorf("expected text format, got %s", cfg.Format)
	}
	if cfg.AddSource {
		t.Error("expected AddSource false by default")
	}
}

func TestFromEnv_DebugTakesPrecedence(t *testing.T) {
	t.Setenv("MLTRACK_DEBUG", "1")
	t.Setenv("MLTRACK_LOG_LEVEL", "error")

	cfg := FromEnv()
	if cfg.Level != "debug" {
		t.Errorf("expected debug level, got %s", cfg.Level)
	}
	if !cfg.AddSource {
		t.Error("expected AddSource enabled in debug mode")
	}
}

func TestFromEnv_LevelPrecedence(t *testing.T) {
	t.Setenv("MLTRACK_DEBUG", "")
	t.Setenv("MLTRACK_LOG_LEVEL", "warn")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := FromEnv()
	if cfg.Level != "warn" {
		t.Errorf("expected MLTRACK_LOG_LEVEL to win, got %s", cfg.Level)
	}
}

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&Config{Level: "info", Format: FormatJSON, Output: &buf})

	logger.Info("hello", slog.String(RunIDKey, "abc123"))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "hello" {
		t.Errorf("unexpected msg: %v", entry["msg"])
	}
	if entry[RunIDKey] != "abc123" {
		t.Errorf("unexpected run_id: %v", entry[RunIDKey])
	}
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&Config{Level: "warn", Format: FormatText, Output: &buf})

	logger.Info("should not appear")
	logger.Warn("should appear")

	out := buf.String()
	if strings.Contains(out, "should not appear") {
		t.Error("info entry leaked through warn level")
	}
	if !strings.Contains(out, "should appear") {
		t.Error("warn entry missing")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"trace", LevelTrace},
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestDuration_AppendsUnitSuffix(t *testing.T) {
	attr := Duration("duration", 42)
	if attr.Key != DurationKey {
		t.Errorf("Duration(\"duration\") key = %q, want %q", attr.Key, DurationKey)
	}
	if got := attr.Value.Int64(); got != 42 {
		t.Errorf("unexpected value: %d", got)
	}
}

func TestSanitizeToken(t *testing.T) {
	if got := SanitizeToken("supersecrettoken"); got != "...oken" {
		t.Errorf("unexpected masked token: %q", got)
	}
	if got := SanitizeToken("abc"); got != "[REDACTED]" {
		t.Errorf("short token should be fully redacted, got %q", got)
	}
}
