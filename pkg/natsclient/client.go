// Package natsclient wraps a NATS connection used to announce booking
// events to downstream consumers (notifications, mailers, reporting).
package natsclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"hotelapi/pkg/logger"
)

type Config struct {
	// URL of the NATS server, e.g. nats://localhost:4222.
	URL string
	// Name identifies this client in NATS (optional).
	Name string
	// SubjectPrefix is prepended to every subject ("hotel" -> "hotel.booking.status").
	SubjectPrefix string
}

// Envelope is the JSON body of every published message.
type Envelope struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data"`
}

type Client struct {
	conn   *nats.Conn
	prefix string
}

func New(cfg Config) (*Client, error) {
	opts := []nats.Option{
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			logger.Log.Error("NATS async error", zap.Error(err))
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Log.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Log.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			logger.Log.Info("NATS connection closed")
		}),
	}
	if cfg.Name != "" {
		opts = append(opts, nats.Name(cfg.Name))
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logger.Log.Info("NATS connected",
		zap.String("url", conn.ConnectedUrl()),
		zap.String("name", cfg.Name),
	)
	return &Client{conn: conn, prefix: cfg.SubjectPrefix}, nil
}

// Publish wraps data in an Envelope and publishes it on prefix.subject.
func (c *Client) Publish(_ context.Context, subject, eventType string, data any) error {
	b, err := json.Marshal(Envelope{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	})
	if err != nil {
		return fmt.Errorf("marshal %s: %w", eventType, err)
	}
	full := Subject(c.prefix, subject)
	if err := c.conn.Publish(full, b); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", full, err)
	}
	return nil
}

func (c *Client) Close() {
	if c.conn != nil {
		_ = c.conn.Drain()
	}
}

func Subject(prefix, subject string) string {
	if prefix == "" {
		return subject
	}
	return prefix + "." + subject
}

// Nop discards every message; used when NATS_URL is not configured.
type Nop struct{}

func (Nop) Publish(context.Context, string, string, any) error { return nil }
