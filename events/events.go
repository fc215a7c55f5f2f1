// Package events publishes session lifecycle notifications over a watermill
// publisher so downstream consumers (cache invalidation, notification fanout)
// can react to logins, rotations, and logouts. Publishing is best effort: a
// failed publish never fails the request that triggered it.
package events

import (
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

const (
	// TopicLogin is emitted after a successful login.
	TopicLogin = "session.login"
	// TopicRefreshed is emitted after a successful rotation.
	TopicRefreshed = "session.refreshed"
	// TopicLogout is emitted after a session is terminated.
	TopicLogout = "session.logout"
)

// SessionEvent is the payload published on every session topic.
type SessionEvent struct {
	UserID string    `json:"user_id"`
	Email  string    `json:"email,omitempty"`
	At     time.Time `json:"at"`
}

// Emitter wraps a watermill publisher with the session event schema.
type Emitter struct {
	publisher message.Publisher
}

// NewEmitter creates an Emitter. A nil publisher yields a no-op Emitter, which
// keeps call sites unconditional.
func NewEmitter(publisher message.Publisher) *Emitter {
	return &Emitter{publisher: publisher}
}

// Emit publishes one event to the topic. Marshal or transport failures are
// returned for logging but carry no other consequence.
func (e *Emitter) Emit(topic string, ev SessionEvent) error {
	if e == nil || e.publisher == nil {
		return nil
	}

	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	return e.publisher.Publish(topic, message.NewMessage(watermill.NewUUID(), payload))
}

// Close closes the underlying publisher.
func (e *Emitter) Close() error {
	if e == nil || e.publisher == nil {
		return nil
	}
	return e.publisher.Close()
}
