package eventstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/EventStore/EventStore-Client-Go/v4/esdb"
	"github.com/google/uuid"
)

// Event is a domain event bound for an aggregate stream.
type Event struct {
	ID         uuid.UUID
	Aggregate  string
	Type       string
	OccurredAt time.Time
	Data       interface{}
	Metadata   map[string]string
}

// RecordedEvent is an event read back from a stream.
type RecordedEvent struct {
	ID         uuid.UUID         `json:"id"`
	Stream     string            `json:"stream"`
	Number     uint64            `json:"number"`
	Type       string            `json:"type"`
	RecordedAt time.Time         `json:"recorded_at"`
	Data       json.RawMessage   `json:"data"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Publisher appends events to their aggregate stream.
type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
}

// Publish appends events in order. Events for different aggregates go to
// different streams.
func (c *Client) Publish(ctx context.Context, events ...Event) error {
	for _, ev := range events {
		data, err := toEventData(ev)
		if err != nil {
			return err
		}
		_, err = c.db.AppendToStream(ctx, c.StreamName(ev.Aggregate), esdb.AppendToStreamOptions{
			ExpectedRevision: esdb.Any{},
		}, data)
		if err != nil {
			return fmt.Errorf("append %s to %s: %w", ev.Type, c.StreamName(ev.Aggregate), err)
		}
	}
	return nil
}

func toEventData(ev Event) (esdb.EventData, error) {
	if ev.Type == "" {
		return esdb.EventData{}, errors.New("event type is required")
	}
	id := ev.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	data, err := json.Marshal(ev.Data)
	if err != nil {
		return esdb.EventData{}, fmt.Errorf("marshal %s data: %w", ev.Type, err)
	}
	meta := map[string]string{}
	for k, v := range ev.Metadata {
		meta[k] = v
	}
	if !ev.OccurredAt.IsZero() {
		meta["occurred_at"] = ev.OccurredAt.UTC().Format(time.RFC3339Nano)
	}
	metadata, err := json.Marshal(meta)
	if err != nil {
		return esdb.EventData{}, fmt.Errorf("marshal %s metadata: %w", ev.Type, err)
	}
	return esdb.EventData{
		EventID:     id,
		EventType:   ev.Type,
		ContentType: esdb.ContentTypeJson,
		Data:        data,
		Metadata:    metadata,
	}, nil
}

// ReadLatest returns up to max events of an aggregate's stream, newest first.
// A missing stream yields no events.
func (c *Client) ReadLatest(ctx context.Context, aggregate string, max uint64) ([]RecordedEvent, error) {
	stream, err := c.db.ReadStream(ctx, c.StreamName(aggregate), esdb.ReadStreamOptions{
		From:      esdb.End{},
		Direction: esdb.Backwards,
	}, max)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read stream %s: %w", c.StreamName(aggregate), err)
	}
	defer stream.Close()

	var out []RecordedEvent
	for {
		resolved, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if isNotFound(err) {
				return nil, nil
			}
			return nil, fmt.Errorf("read stream %s: %w", c.StreamName(aggregate), err)
		}
		out = append(out, fromRecorded(resolved.Event))
	}
	return out, nil
}

func fromRecorded(e *esdb.RecordedEvent) RecordedEvent {
	rec := RecordedEvent{
		ID:         e.EventID,
		Stream:     e.StreamID,
		Number:     e.EventNumber,
		Type:       e.EventType,
		RecordedAt: e.CreatedDate,
		Data:       json.RawMessage(e.Data),
	}
	if len(e.UserMetadata) > 0 {
		_ = json.Unmarshal(e.UserMetadata, &rec.Metadata)
	}
	return rec
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, ...Event) error { return nil }
