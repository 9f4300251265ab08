// Package events announces record changes to other services.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Type names what happened. It doubles as the AMQP routing key.
type Type string

const (
	UserCreated    Type = "user.created"
	UserUpdated    Type = "user.updated"
	UserDeleted    Type = "user.deleted"
	IncomeCreated  Type = "income.created"
	IncomeUpdated  Type = "income.updated"
	IncomeDeleted  Type = "income.deleted"
	ExpenseCreated Type = "expense.created"
	ExpenseUpdated Type = "expense.updated"
	ExpenseDeleted Type = "expense.deleted"
)

// Event is a lightweight change notice. Consumers fetch the record itself if
// they need it.
type Event struct {
	Type     Type      `json:"type"`
	UserID   int64     `json:"user_id"`
	EntityID int64     `json:"entity_id"`
	At       time.Time `json:"at"`
}

// New stamps an event with the current time.
func New(t Type, userID, entityID int64) Event {
	return Event{Type: t, UserID: userID, EntityID: entityID, At: time.Now().UTC()}
}

// Marshal encodes e as JSON.
func (e Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Unmarshal decodes an event published by Marshal.
func Unmarshal(data []byte) (Event, error) {
	var e Event
	err := json.Unmarshal(data, &e)
	return e, err
}

// Publisher sends events somewhere.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Nop discards events. It is used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	// Err, when set, is returned from every Publish after recording.
	Err error
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.Err
}

func (r *Recorder) Close() error { return nil }

// Events returns a copy of what has been published so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Types lists the types of the recorded events in order.
func (r *Recorder) Types() []Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]Type, len(r.events))
	for i, e := range r.events {
		types[i] = e.Type
	}
	return types
}
