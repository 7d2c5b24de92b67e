package event

import (
	"reflect"
	"time"

	"github.com/luntra/eventflow/internal/runtime/ids"
)

// Event is the behaviour shared by every integration event. Concrete events
// embed Base and gain it for free.
type Event interface {
	EventID() string
	OccurredAt() time.Time
}

// Namer is optionally implemented by events that want a wire name other than
// their Go struct name.
type Namer interface {
	EventName() string
}

// Base carries the identity of an integration event. Embed it as the first
// field of a concrete event struct.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// NewBase returns a Base with a fresh ULID and the current UTC time.
func NewBase() Base {
	return Base{
		ID:        ids.NewID(),
		CreatedAt: time.Now().UTC(),
	}
}

func (b Base) EventID() string       { return b.ID }
func (b Base) OccurredAt() time.Time { return b.CreatedAt }

// TypeName derives the wire name of an event. Events implementing Namer
// choose their own name; everything else gets the Go struct name with
// pointers dereferenced. The result is computed once at registration time,
// never on the hot path.
func TypeName(evt any) string {
	if n, ok := evt.(Namer); ok {
		return n.EventName()
	}
	t := reflect.TypeOf(evt)
	if t == nil {
		return ""
	}
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
