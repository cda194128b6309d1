package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	teamerrors "github.com/randalmurphal/teamlead/internal/errors"
)

// Connection bundles a NATS connection and its JetStream context.
type Connection struct {
	NC *nats.Conn
	JS jetstream.JetStream
}

// Connect dials url and makes sure the stream capturing subjects exists.
func Connect(ctx context.Context, url, stream string, subjects []string, logger *slog.Logger) (*Connection, error) {
	if logger == nil {
		logger = slog.Default()
	}
	nc, err := nats.Connect(url,
		nats.Name("teamlead"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, teamerrors.ErrEventsUnavailable(url, err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("get jetstream: %w", err)
	}

	if _, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     stream,
		Subjects: subjects,
	}); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure stream %s: %w", stream, err)
	}

	return &Connection{NC: nc, JS: js}, nil
}

// Close drains the connection.
func (c *Connection) Close() {
	if c == nil || c.NC == nil {
		return
	}
	if err := c.NC.Drain(); err != nil {
		c.NC.Close()
	}
}

// NATSPublisher publishes events as JSON on teamlead.task.<type>.
type NATSPublisher struct {
	js     jetstream.JetStream
	logger *slog.Logger
}

// NewNATSPublisher creates a JetStream publisher.
func NewNATSPublisher(js jetstream.JetStream, logger *slog.Logger) *NATSPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &NATSPublisher{js: js, logger: logger}
}

// Publish sends event and waits for the stream acknowledgement.
func (p *NATSPublisher) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	subject := Subject(event.Type)
	var opts []jetstream.PublishOpt
	if event.ID != "" {
		opts = append(opts, jetstream.WithMsgID(event.ID))
	}
	if _, err := p.js.Publish(ctx, subject, data, opts...); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	p.logger.Debug("event published", "subject", subject, "task", event.TaskID)
	return nil
}

// Close is a no-op; the Connection owns the socket.
func (p *NATSPublisher) Close() {}
