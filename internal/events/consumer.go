package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	teamerrors "github.com/randalmurphal/teamlead/internal/errors"
	"github.com/randalmurphal/teamlead/internal/lifecycle"
	"github.com/randalmurphal/teamlead/internal/task"
)

// TaskStore is the subset of the store the consumer needs.
type TaskStore interface {
	GetTask(ctx context.Context, id string) (*task.Task, error)
	UpdateTask(ctx context.Context, t *task.Task) error
}

// Handler receives decoded task events. *lifecycle.Executor implements it.
type Handler interface {
	HandleTaskCompletion(ctx context.Context, t *task.Task, result task.Result, workspaceID string) lifecycle.Report
	HandleFailure(ctx context.Context, f lifecycle.Failure) (string, error)
}

// Msg is the part of jetstream.Msg the consumer uses.
type Msg interface {
	Data() []byte
	Ack() error
	Nak() error
	Term() error
}

// Disposition is what happens to a message after handling.
type Disposition string

const (
	Ack  Disposition = "ack"
	Nak  Disposition = "nak"
	Term Disposition = "term"
)

// Consumer feeds JetStream task events to the lifecycle.
type Consumer struct {
	store   TaskStore
	handler Handler
	logger  *slog.Logger
	now     func() time.Time
}

// NewConsumer creates a consumer. A nil logger uses slog.Default().
func NewConsumer(store TaskStore, handler Handler, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{store: store, handler: handler, logger: logger, now: time.Now}
}

// Start creates (or updates) the durable consumer and begins consuming.
// Call Stop on the returned ConsumeContext to end consumption.
func (c *Consumer) Start(ctx context.Context, js jetstream.JetStream, stream, durable string) (jetstream.ConsumeContext, error) {
	cons, err := js.CreateOrUpdateConsumer(ctx, stream, jetstream.ConsumerConfig{
		Durable:        durable,
		FilterSubjects: []string{Subject(EventCompleted), Subject(EventFailed)},
		AckPolicy:      jetstream.AckExplicitPolicy,
		AckWait:        60 * time.Second,
		MaxDeliver:     5,
	})
	if err != nil {
		return nil, fmt.Errorf("create consumer %s: %w", durable, err)
	}

	cc, err := cons.Consume(func(msg jetstream.Msg) {
		c.HandleMsg(ctx, msg)
	})
	if err != nil {
		return nil, fmt.Errorf("start consuming %s: %w", durable, err)
	}
	c.logger.Info("event consumer started", "stream", stream, "consumer", durable)
	return cc, nil
}

// HandleMsg handles one message and settles it.
func (c *Consumer) HandleMsg(ctx context.Context, msg Msg) {
	var err error
	switch c.Handle(ctx, msg.Data()) {
	case Ack:
		err = msg.Ack()
	case Nak:
		err = msg.Nak()
	default:
		err = msg.Term()
	}
	if err != nil {
		c.logger.Warn("failed to settle message", "error", err)
	}
}

// Handle dispatches one payload and reports how to settle it. Undecodable
// payloads and unknown tasks are terminated; store failures are retried.
func (c *Consumer) Handle(ctx context.Context, data []byte) Disposition {
	ev, err := Decode(data)
	if err != nil {
		c.logger.Error("dropping malformed event", "error", err)
		return Term
	}

	switch ev.Type {
	case EventCompleted:
		return c.handleCompleted(ctx, ev)
	case EventFailed:
		return c.handleFailed(ctx, ev)
	default:
		return Ack
	}
}

func (c *Consumer) handleCompleted(ctx context.Context, ev Event) Disposition {
	t, err := c.store.GetTask(ctx, ev.TaskID)
	if err != nil {
		c.logger.Warn("load completed task failed, will retry", "task", ev.TaskID, "error", err)
		return Nak
	}
	if t == nil {
		c.logger.Error("completed event for unknown task", "task", ev.TaskID)
		return Term
	}

	result := task.Result{Status: string(task.StatusCompleted)}
	switch {
	case ev.Result != nil:
		result = *ev.Result
	case t.Result != nil:
		result = *t.Result
	}

	if t.Status != task.StatusCompleted {
		t.Status = task.StatusCompleted
		t.Result = &result
		t.UpdatedAt = c.now().UTC()
		if err := c.store.UpdateTask(ctx, t); err != nil {
			c.logger.Warn("mark task completed failed, will retry", "task", t.ID, "error", err)
			return Nak
		}
	}

	workspaceID := ev.WorkspaceID
	if workspaceID == "" {
		workspaceID = t.WorkspaceID
	}
	rep := c.handler.HandleTaskCompletion(ctx, t, result, workspaceID)
	c.logger.Info("completion handled",
		"task", t.ID,
		"branch", rep.Branch,
		"decision", rep.Decision,
		"created", len(rep.CreatedTaskIDs))
	return Ack
}

func (c *Consumer) handleFailed(ctx context.Context, ev Event) Disposition {
	workspaceID := ev.WorkspaceID
	if workspaceID == "" {
		t, err := c.store.GetTask(ctx, ev.TaskID)
		if err != nil {
			return Nak
		}
		if t == nil {
			c.logger.Error("failed event for unknown task", "task", ev.TaskID)
			return Term
		}
		workspaceID = t.WorkspaceID
	}

	id, err := c.handler.HandleFailure(ctx, lifecycle.Failure{
		TaskID:      ev.TaskID,
		WorkspaceID: workspaceID,
		Error:       ev.Error,
		ReportID:    ev.ReportID(),
	})
	if err != nil {
		// Not-found and no-manager errors will not heal on redelivery.
		if teamerrors.AsTeamError(err) != nil {
			c.logger.Error("failure not handled", "task", ev.TaskID, "error", err)
			return Term
		}
		c.logger.Warn("failure handling failed, will retry", "task", ev.TaskID, "error", err)
		return Nak
	}
	c.logger.Info("failure handled", "task", ev.TaskID, "next", id)
	return Ack
}
