// Package notify keeps the user-facing notifications (toasts) raised by data
// source failures and chat errors.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const DefaultCapacity = 50

type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

type Notification struct {
	ID          string    `json:"id"`
	Level       Level     `json:"level"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Publisher receives every new notification; the live feed hub implements it.
type Publisher interface {
	Publish(msgType string, payload any)
}

// Notifier is the narrow interface producers depend on.
type Notifier interface {
	Notify(level Level, title, description string) Notification
}

// Center keeps the most recent notifications, oldest evicted first.
type Center struct {
	mu       sync.RWMutex
	items    []Notification
	capacity int
	pub      Publisher
	nowFn    func() time.Time
}

func NewCenter(capacity int, pub Publisher) *Center {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Center{
		items:    make([]Notification, 0, capacity),
		capacity: capacity,
		pub:      pub,
		nowFn:    time.Now,
	}
}

// Notify records a notification and publishes it.
func (c *Center) Notify(level Level, title, description string) Notification {
	n := Notification{
		ID:          uuid.NewString(),
		Level:       level,
		Title:       title,
		Description: description,
		CreatedAt:   c.nowFn().UTC(),
	}

	c.mu.Lock()
	if len(c.items) >= c.capacity {
		c.items = c.items[1:]
	}
	c.items = append(c.items, n)
	pub := c.pub
	c.mu.Unlock()

	if pub != nil {
		pub.Publish("notification", n)
	}
	return n
}

// List returns the notifications newest first.
func (c *Center) List() []Notification {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Notification, len(c.items))
	for i, n := range c.items {
		out[len(c.items)-1-i] = n
	}
	return out
}

// Dismiss removes a notification. It reports whether id was present.
func (c *Center) Dismiss(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, n := range c.items {
		if n.ID == id {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return true
		}
	}
	return false
}

// Nop discards notifications.
type Nop struct{}

func (Nop) Notify(level Level, title, description string) Notification {
	return Notification{Level: level, Title: title, Description: description}
}
