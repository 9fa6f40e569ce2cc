package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindWarning Kind = "warning"
	KindInfo    Kind = "info"
)

// Default auto-dismiss delays per kind.
var defaultTimeouts = map[Kind]time.Duration{
	KindSuccess: 3 * time.Second,
	KindError:   5 * time.Second,
	KindWarning: 4 * time.Second,
	KindInfo:    3 * time.Second,
}

type Notification struct {
	ID        string
	Kind      Kind
	Message   string
	Timeout   time.Duration
	CreatedAt time.Time
}

// Center holds transient user notifications and dismisses them on a timer.
type Center struct {
	logger *zap.Logger

	mu     sync.Mutex
	items  []Notification
	timers map[string]*time.Timer
}

func New(logger *zap.Logger) *Center {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Center{logger: logger.Named("notify"), timers: make(map[string]*time.Timer)}
}

func (c *Center) Success(msg string) string { return c.Add(KindSuccess, msg, 0) }
func (c *Center) Error(msg string) string   { return c.Add(KindError, msg, 0) }
func (c *Center) Warning(msg string) string { return c.Add(KindWarning, msg, 0) }
func (c *Center) Info(msg string) string    { return c.Add(KindInfo, msg, 0) }

// Add queues a notification and returns its id. A zero timeout uses the kind
// default; a negative one disables auto-dismiss.
func (c *Center) Add(kind Kind, msg string, timeout time.Duration) string {
	if timeout == 0 {
		timeout = defaultTimeouts[kind]
	}
	n := Notification{
		ID:        uuid.NewString(),
		Kind:      kind,
		Message:   msg,
		Timeout:   timeout,
		CreatedAt: time.Now(),
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, n)
	if timeout > 0 {
		c.timers[n.ID] = time.AfterFunc(timeout, func() { c.Remove(n.ID) })
	}
	c.logger.Debug("notification", zap.String("kind", string(kind)), zap.String("message", msg))
	return n.ID
}

func (c *Center) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.timers[id]; ok {
		t.Stop()
		delete(c.timers, id)
	}
	for i, n := range c.items {
		if n.ID == id {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return
		}
	}
}

// List returns pending notifications, oldest first.
func (c *Center) List() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Notification(nil), c.items...)
}

// Close cancels every pending dismissal.
func (c *Center) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, t := range c.timers {
		t.Stop()
		delete(c.timers, id)
	}
}
