package registry

import (
	"context"
	"sync"

	errspkg "github.com/luntra/eventflow/internal/runtime/errors"
)

// Registration binds one event type name to its decode and invoke functions.
// Both closures are built once at registration time so dispatch never touches
// reflection.
type Registration struct {
	// EventType is the wire name the registration answers to.
	EventType string
	// NewEvent returns a fresh pointer to the concrete event type, ready to
	// be unmarshalled into.
	NewEvent func() any
	// Invoke runs the typed handler against a value produced by NewEvent.
	Invoke func(ctx context.Context, evt any) error
}

// Registry maps event type names to their registrations. It is mutable while
// the service is being assembled and frozen once the service starts, after
// which lookups are lock-free reads of an immutable map.
type Registry struct {
	mu     sync.Mutex
	frozen bool
	items  map[string]Registration
}

// New returns an empty, unfrozen registry.
func New() *Registry {
	return &Registry{items: make(map[string]Registration)}
}

// Register adds a registration. It fails after Freeze and on duplicate event
// type names.
func (r *Registry) Register(reg Registration) error {
	if reg.EventType == "" {
		return errspkg.ErrEventTypeRequired
	}
	if reg.Invoke == nil {
		return errspkg.ErrHandlerRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return errspkg.ErrRegistryFrozen
	}
	if _, exists := r.items[reg.EventType]; exists {
		return errspkg.ErrDuplicateHandler
	}
	r.items[reg.EventType] = reg
	return nil
}

// Freeze seals the registry. Further Register calls fail. Freeze is
// idempotent.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// Lookup returns the registration for the given event type name.
func (r *Registry) Lookup(eventType string) (Registration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.items[eventType]
	return reg, ok
}

// EventTypes returns the registered type names in no particular order.
func (r *Registry) EventTypes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.items))
	for name := range r.items {
		names = append(names, name)
	}
	return names
}

// Len returns the number of registrations.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}
