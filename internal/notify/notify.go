package notify

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

type Severity string

const (
	SeverityDefault     Severity = "default"
	SeverityDestructive Severity = "destructive"
)

// Notification is a short, transient message for the user.
type Notification struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
}

// Notifier shows a notification. It is fire-and-forget.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// Flash queues notifications until the next page render drains them.
type Flash struct {
	mu    sync.Mutex
	items []Notification
}

func NewFlash(pending []Notification) *Flash {
	return &Flash{items: append([]Notification(nil), pending...)}
}

func (f *Flash) Notify(_ context.Context, n Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, n)
}

// Pending returns the queued notifications without removing them.
func (f *Flash) Pending() []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Notification(nil), f.items...)
}

// Drain returns and clears the queue.
func (f *Flash) Drain() []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.items
	f.items = nil
	return out
}

// Log writes notifications to a zap logger.
type Log struct {
	Logger *zap.Logger
}

func (l Log) Notify(_ context.Context, n Notification) {
	fields := []zap.Field{
		zap.String("title", n.Title),
		zap.String("description", n.Description),
	}
	if n.Severity == SeverityDestructive {
		l.Logger.Warn("notification", fields...)
		return
	}
	l.Logger.Info("notification", fields...)
}

// Multi fans a notification out to several notifiers.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notification) {
	for _, x := range m {
		if x != nil {
			x.Notify(ctx, n)
		}
	}
}
