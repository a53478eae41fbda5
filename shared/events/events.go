package events

import (
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"
)

// Event types
const (
	UserCreated = "user.created"
	UserUpdated = "user.updated"
	UserDeleted = "user.deleted"
)

// Stream names
const (
	UserEventsStream = "user.events"
)

// Base event structure. ID is a ULID, so ids sort in publish order.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

func NewEvent(eventType string, data any) Event {
	return Event{
		ID:        ulid.Make().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// UnmarshalJSON keeps Data as the raw payload bytes; DecodeData turns them
// into a typed event without a float64 round trip for numeric ids.
func (e *Event) UnmarshalJSON(b []byte) error {
	var wire struct {
		ID        string          `json:"id"`
		Type      string          `json:"type"`
		Timestamp time.Time       `json:"timestamp"`
		Data      json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(b, &wire); err != nil {
		return err
	}
	e.ID = wire.ID
	e.Type = wire.Type
	e.Timestamp = wire.Timestamp
	e.Data = wire.Data
	return nil
}

// DecodeData decodes the payload into v. Data is either raw JSON from the
// stream or a typed value set by the publisher.
func (e Event) DecodeData(v any) error {
	if raw, ok := e.Data.(json.RawMessage); ok {
		return json.Unmarshal(raw, v)
	}
	raw, err := json.Marshal(e.Data)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// User events
type UserCreatedEvent struct {
	UserID int64  `json:"userId"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}

type UserUpdatedEvent struct {
	UserID int64  `json:"userId"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}

type UserDeletedEvent struct {
	UserID int64 `json:"userId"`
}
