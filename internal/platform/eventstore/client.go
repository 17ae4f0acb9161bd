// Package eventstore publishes domain events to EventStoreDB streams.
package eventstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/EventStore/EventStore-Client-Go/v4/esdb"
)

type Config struct {
	// URL is an esdb:// connection string.
	URL          string
	StreamPrefix string
}

// Client wraps the EventStoreDB client.
type Client struct {
	db     *esdb.Client
	prefix string
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("eventstore: connection string is empty")
	}
	settings, err := esdb.ParseConnectionString(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse eventstore connection string: %w", err)
	}
	db, err := esdb.NewClient(settings)
	if err != nil {
		return nil, fmt.Errorf("create eventstore client: %w", err)
	}
	prefix := cfg.StreamPrefix
	if prefix == "" {
		prefix = "alzcare"
	}
	return &Client{db: db, prefix: prefix}, nil
}

// StreamName returns the stream holding events for one aggregate.
func (c *Client) StreamName(aggregate string) string {
	return streamName(c.prefix, aggregate)
}

func streamName(prefix, aggregate string) string {
	return fmt.Sprintf("%s-%s", prefix, aggregate)
}

// HealthCheck verifies the connection is alive.
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	stream, err := c.db.ReadStream(ctx, "$streams", esdb.ReadStreamOptions{
		From:      esdb.Start{},
		Direction: esdb.Forwards,
	}, 1)
	if err != nil {
		return fmt.Errorf("eventstore health check: %w", err)
	}
	stream.Close()
	return nil
}

func (c *Client) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

func isNotFound(err error) bool {
	if esdbErr, ok := esdb.FromError(err); !ok {
		return esdbErr.Code() == esdb.ErrorCodeResourceNotFound
	}
	return false
}
