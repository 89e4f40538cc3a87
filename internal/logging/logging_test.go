package logging

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := New("debug", "json", &buf)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	pl := Component(l, "player")
	pl.Info().Str("track", "Song1").Msg("now playing")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if entry["component"] != "player" || entry["track"] != "Song1" || entry["message"] != "now playing" {
		t.Fatalf("entry = %v", entry)
	}
}

func TestNewLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l, err := New("warn", "json", &buf)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	l.Info().Msg("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info logged at warn level: %q", buf.String())
	}
}

func TestNewRejectsBadInput(t *testing.T) {
	if _, err := New("loud", "json", nil); err == nil {
		t.Fatal("New() accepted an unknown level")
	}
	if _, err := New("info", "xml", nil); err == nil {
		t.Fatal("New() accepted an unknown format")
	}
}
