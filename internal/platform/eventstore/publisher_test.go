package eventstore

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/EventStore/EventStore-Client-Go/v4/esdb"
	"github.com/google/uuid"
)

func TestStreamName(t *testing.T) {
	c := &Client{prefix: "alzcare-timeline"}
	if got := c.StreamName("abc"); got != "alzcare-timeline-abc" {
		t.Errorf("unexpected stream name %q", got)
	}
}

func TestNewClient_EmptyURL(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Error("expected error for empty connection string")
	}
}

func TestNewClient_BadURL(t *testing.T) {
	if _, err := NewClient(Config{URL: "http://not-esdb"}); err == nil {
		t.Error("expected error for a non esdb scheme")
	}
}

func TestToEventData(t *testing.T) {
	id := uuid.New()
	at := time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)
	ev := Event{
		ID:         id,
		Aggregate:  "rec-1",
		Type:       "RISK_FACTOR_ADDED",
		OccurredAt: at,
		Data:       map[string]interface{}{"factor_type": "DIABETES"},
		Metadata:   map[string]string{"tenant_id": "default"},
	}

	data, err := toEventData(ev)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if data.EventID != id || data.EventType != "RISK_FACTOR_ADDED" {
		t.Errorf("unexpected event header %v %s", data.EventID, data.EventType)
	}
	if data.ContentType != esdb.ContentTypeJson {
		t.Error("expected JSON content type")
	}

	var body map[string]string
	json.Unmarshal(data.Data, &body)
	if body["factor_type"] != "DIABETES" {
		t.Errorf("unexpected data %s", data.Data)
	}
	var meta map[string]string
	json.Unmarshal(data.Metadata, &meta)
	if meta["tenant_id"] != "default" || meta["occurred_at"] != "2024-05-02T10:00:00Z" {
		t.Errorf("unexpected metadata %v", meta)
	}
	if _, ok := ev.Metadata["occurred_at"]; ok {
		t.Error("caller metadata must not be mutated")
	}
}

func TestToEventData_GeneratesID(t *testing.T) {
	data, err := toEventData(Event{Type: "X", Data: struct{}{}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if data.EventID == uuid.Nil {
		t.Error("expected a generated event id")
	}
}

func TestToEventData_RequiresType(t *testing.T) {
	if _, err := toEventData(Event{Data: 1}); err == nil {
		t.Error("expected error for missing type")
	}
}

func TestToEventData_UnmarshalableData(t *testing.T) {
	if _, err := toEventData(Event{Type: "X", Data: make(chan int)}); err == nil {
		t.Error("expected marshal error")
	}
}

func TestFromRecorded(t *testing.T) {
	id := uuid.New()
	at := time.Now().UTC()
	rec := fromRecorded(&esdb.RecordedEvent{
		EventID:      id,
		EventType:    "ACTION_COMPLETED",
		StreamID:     "alzcare-rec-1",
		EventNumber:  4,
		CreatedDate:  at,
		Data:         []byte(`{"x":1}`),
		UserMetadata: []byte(`{"tenant_id":"t1"}`),
	})
	if rec.ID != id || rec.Number != 4 || rec.Stream != "alzcare-rec-1" {
		t.Errorf("unexpected recorded event %+v", rec)
	}
	if rec.Metadata["tenant_id"] != "t1" {
		t.Errorf("expected metadata to be decoded, got %v", rec.Metadata)
	}
	if string(rec.Data) != `{"x":1}` {
		t.Errorf("unexpected data %s", rec.Data)
	}
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	if err := p.Publish(context.Background(), Event{Type: "X"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
