// AngelaMos | 2026
// bus.go

package events

import (
	"fmt"
	"log/slog"

	"github.com/asaskevich/EventBus"
)

const (
	TopicFriendRequested   = "friend:requested"
	TopicFriendAccepted    = "friend:accepted"
	TopicNudged            = "friend:nudged"
	TopicJarvisTaskCreated = "jarvis:task_created"
	TopicPlanChanged       = "billing:plan_changed"
)

type FriendRequested struct {
	RequestID  string
	FromUserID string
	ToUserID   string
}

type FriendAccepted struct {
	RequesterID string
	AccepterID  string
}

type Nudged struct {
	FromUserID string
	ToUserID   string
	Message    string
}

type JarvisTaskCreated struct {
	UserID string
	TaskID string
	Title  string
}

type PlanChanged struct {
	UserID string
	Plan   string
}

// Bus fans domain events out to in-process subscribers. Handlers run on
// their own goroutine so a slow subscriber never holds up the request that
// published.
type Bus struct {
	bus    EventBus.Bus
	logger *slog.Logger
}

func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		bus:    EventBus.New(),
		logger: logger,
	}
}

// Publish is safe on a nil Bus so optional publishers need no guard.
func (b *Bus) Publish(topic string, event any) {
	if b == nil {
		return
	}
	b.bus.Publish(topic, event)
}

// Wait blocks until every async handler already started has returned.
func (b *Bus) Wait() {
	if b == nil {
		return
	}
	b.bus.WaitAsync()
}

// Subscribe registers fn for topic. Payloads of another type are dropped
// with a warning and handler panics are logged instead of crashing the
// process.
func Subscribe[T any](b *Bus, topic string, fn func(T)) error {
	handler := func(event any) {
		defer func() {
			if rec := recover(); rec != nil {
				b.logger.Error("event handler panicked",
					"topic", topic,
					"panic", rec,
				)
			}
		}()

		payload, ok := event.(T)
		if !ok {
			b.logger.Warn("unexpected event payload",
				"topic", topic,
				"type", fmt.Sprintf("%T", event),
			)
			return
		}
		fn(payload)
	}

	if err := b.bus.SubscribeAsync(topic, handler, false); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	return nil
}
