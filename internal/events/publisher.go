package events

import (
	"context"
	"sync"
	"time"

	"github.com/randalmurphal/teamlead/internal/task"
)

// GlobalWorkspaceID subscribes to events of every workspace.
const GlobalWorkspaceID = "*"

// Publisher sends events to interested parties.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close()
}

// Announcer adapts a Publisher to the lifecycle's task observer hook.
type Announcer struct {
	pub Publisher
	now func() time.Time
}

// NewAnnouncer returns an observer that publishes EventCreated for every task.
func NewAnnouncer(pub Publisher) *Announcer {
	return &Announcer{pub: pub, now: time.Now}
}

// TaskCreated publishes the new task.
func (a *Announcer) TaskCreated(ctx context.Context, t *task.Task) error {
	return a.pub.Publish(ctx, Event{
		Type:        EventCreated,
		WorkspaceID: t.WorkspaceID,
		TaskID:      t.ID,
		Task:        t,
		Time:        a.now().UTC(),
	})
}

// MemoryPublisher is an in-memory implementation of Publisher keyed by
// workspace.
type MemoryPublisher struct {
	subscribers map[string][]chan Event
	mu          sync.RWMutex
	bufferSize  int
	closed      bool
}

// PublisherOption configures a MemoryPublisher.
type PublisherOption func(*MemoryPublisher)

// WithBufferSize sets the channel buffer size for subscribers.
func WithBufferSize(size int) PublisherOption {
	return func(p *MemoryPublisher) {
		p.bufferSize = size
	}
}

// NewMemoryPublisher creates a new in-memory publisher.
func NewMemoryPublisher(opts ...PublisherOption) *MemoryPublisher {
	p := &MemoryPublisher{
		subscribers: make(map[string][]chan Event),
		bufferSize:  100,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish delivers event to the workspace's subscribers and to global
// subscribers. Subscribers with full buffers are skipped.
func (p *MemoryPublisher) Publish(_ context.Context, event Event) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return nil
	}

	send := func(subs []chan Event) {
		for _, ch := range subs {
			select {
			case ch <- event:
			default:
			}
		}
	}
	send(p.subscribers[event.WorkspaceID])
	if event.WorkspaceID != GlobalWorkspaceID {
		send(p.subscribers[GlobalWorkspaceID])
	}
	return nil
}

// Subscribe returns a channel of events for workspaceID, or for every
// workspace with GlobalWorkspaceID.
func (p *MemoryPublisher) Subscribe(workspaceID string) <-chan Event {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, p.bufferSize)
	p.subscribers[workspaceID] = append(p.subscribers[workspaceID], ch)
	return ch
}

// Unsubscribe removes and closes a subscription channel.
func (p *MemoryPublisher) Unsubscribe(workspaceID string, ch <-chan Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	subs := p.subscribers[workspaceID]
	for i, sub := range subs {
		if sub == ch {
			p.subscribers[workspaceID] = append(subs[:i], subs[i+1:]...)
			close(sub)
			break
		}
	}
	if len(p.subscribers[workspaceID]) == 0 {
		delete(p.subscribers, workspaceID)
	}
}

// Close closes every subscription channel.
func (p *MemoryPublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true
	for id, subs := range p.subscribers {
		for _, ch := range subs {
			close(ch)
		}
		delete(p.subscribers, id)
	}
}

// SubscriberCount returns the number of subscribers for a workspace.
func (p *MemoryPublisher) SubscriberCount(workspaceID string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.subscribers[workspaceID])
}
