package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNew_JSONOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := New(Config{Level: "info", Format: "json", Writer: buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Info("request denied", "organization", "org-1", "reason", "rate limit")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected JSON output, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "request denied" {
		t.Errorf("Expected message in output, got %v", entry["msg"])
	}
	if entry["organization"] != "org-1" {
		t.Errorf("Expected organization field, got %v", entry["organization"])
	}
}

func TestNew_LevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := New(Config{Level: "warn", Format: "text", Writer: buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Info("should be dropped")
	logger.Warn("should appear")

	out := buf.String()
	if strings.Contains(out, "should be dropped") {
		t.Error("Info message should be filtered at warn level")
	}
	if !strings.Contains(out, "should appear") {
		t.Error("Warn message should be logged")
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	if _, err := New(Config{Level: "loud"}); err == nil {
		t.Error("Expected error for unknown level")
	}
}

func TestWith_CarriesFields(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := New(Config{Level: "info", Format: "json", Writer: buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.With("organization", "org-2").Info("check complete")

	if !strings.Contains(buf.String(), "org-2") {
		t.Errorf("Expected carried field in output: %s", buf.String())
	}
}
