package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"
)

type Config struct {
	URL           string
	Name          string
	MaxReconnects int
	ReconnectWait time.Duration
}

// Client wraps a NATS connection with JetStream.
type Client struct {
	conn   *nats.Conn
	js     jetstream.JetStream
	logger *zap.SugaredLogger
}

func Connect(cfg Config, logger *zap.SugaredLogger) (*Client, error) {
	if cfg.Name == "" {
		cfg.Name = "pasal"
	}
	if cfg.MaxReconnects == 0 {
		cfg.MaxReconnects = 10
	}
	if cfg.ReconnectWait == 0 {
		cfg.ReconnectWait = 2 * time.Second
	}

	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warnw("nats disconnected", "err", err)
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Infow("nats reconnected", "url", c.ConnectedUrl())
		}),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("creating jetstream context: %w", err)
	}

	logger.Infow("nats connection established", "url", conn.ConnectedUrl())
	return &Client{conn: conn, js: js, logger: logger}, nil
}

func (c *Client) Close() {
	c.conn.Close()
}

// EnsureStream creates or updates the stream that captures subjects.
func (c *Client) EnsureStream(ctx context.Context, name string, subjects []string) error {
	_, err := c.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      name,
		Subjects:  subjects,
		MaxAge:    7 * 24 * time.Hour,
		Retention: jetstream.LimitsPolicy,
		Storage:   jetstream.FileStorage,
	})
	if err != nil {
		return fmt.Errorf("creating/updating stream %s: %w", name, err)
	}
	c.logger.Infow("stream ensured", "name", name, "subjects", subjects)
	return nil
}

func (c *Client) HealthCheck() error {
	if !c.conn.IsConnected() {
		return fmt.Errorf("nats not connected")
	}
	return nil
}

// Publisher publishes enveloped events to JetStream.
type Publisher struct {
	js     jetstream.JetStream
	logger *zap.SugaredLogger
}

func NewPublisher(c *Client, logger *zap.SugaredLogger) *Publisher {
	return &Publisher{js: c.js, logger: logger}
}

// Publish wraps v in an Envelope of type subject. The envelope id doubles as the
// JetStream message id so broker-side dedup drops retries.
func (p *Publisher) Publish(ctx context.Context, subject string, v any) error {
	env, err := NewEnvelope(subject, v)
	if err != nil {
		return fmt.Errorf("building event: %w", err)
	}

	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}

	if _, err := p.js.Publish(ctx, subject, data, jetstream.WithMsgID(env.ID)); err != nil {
		return fmt.Errorf("publishing event: %w", err)
	}

	p.logger.Debugw("event published", "event_id", env.ID, "subject", subject, "aggregate_id", env.AggregateID)
	return nil
}

// Nop drops every event. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, string, any) error { return nil }
