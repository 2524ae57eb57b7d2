package logger

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestNew_JSONWithServiceAndComponent(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "debug", Format: JSON, Output: &buf, Service: "booking"})

	log.Component("session_sweeper").Debug("swept", "expired", 3)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON log line, got %q: %v", buf.String(), err)
	}
	if entry[SERVICE] != "booking" {
		t.Errorf("expected service attr, got %v", entry[SERVICE])
	}
	if entry[COMPONENT] != "session_sweeper" {
		t.Errorf("expected component attr, got %v", entry[COMPONENT])
	}
	if entry["expired"] != float64(3) {
		t.Errorf("expected expired=3, got %v", entry["expired"])
	}
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "WARN", Format: TEXT, Output: &buf})

	log.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("expected info to be filtered at warn level, got %q", buf.String())
	}

	log.Warn("shown")
	if buf.Len() == 0 {
		t.Error("expected warn to be written")
	}
}
