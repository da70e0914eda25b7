package worker

import (
	"testing"
	"time"
)

func TestDecodePlayEvent_Valid(t *testing.T) {
	data := []byte(`{"event_id":"e1","user_id":"u1","content_id":"c1","progress":42.5,"played_at":"2025-06-15T10:30:00Z"}`)
	ev, err := decodePlayEvent(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.UserID != "u1" || ev.ContentID != "c1" || ev.Progress != 42.5 {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestDecodePlayEvent_BadJSON(t *testing.T) {
	if _, err := decodePlayEvent([]byte(`{not json`)); err == nil {
		t.Fatal("expected error for malformed payload")
	}
}

func TestDecodePlayEvent_MissingFields(t *testing.T) {
	if _, err := decodePlayEvent([]byte(`{"event_id":"e1","progress":1}`)); err == nil {
		t.Fatal("expected error for missing user and content ids")
	}
}

func TestDecodePlayEvent_DefaultsPlayedAt(t *testing.T) {
	before := time.Now()
	ev, err := decodePlayEvent([]byte(`{"user_id":"u1","content_id":"c1"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.PlayedAt.Before(before) {
		t.Fatal("expected played_at defaulted to now")
	}
}

func TestEnvInt(t *testing.T) {
	t.Setenv("WORKER_BATCH_SIZE", "250")
	if got := envInt("WORKER_BATCH_SIZE", 100); got != 250 {
		t.Fatalf("expected 250, got %d", got)
	}
	t.Setenv("WORKER_BATCH_SIZE", "-1")
	if got := envInt("WORKER_BATCH_SIZE", 100); got != 100 {
		t.Fatalf("expected fallback for invalid value, got %d", got)
	}
	t.Setenv("WORKER_BATCH_SIZE", "")
	if got := envInt("WORKER_BATCH_SIZE", 100); got != 100 {
		t.Fatalf("expected fallback for empty value, got %d", got)
	}
}
