package queue

import "sync"

// Registry lazily creates and looks up one Queue per device id.
// Queues are created on the first For call for a device and otherwise kept
// for the lifetime of the process.
type Registry struct {
	mu       sync.Mutex
	queues   map[string]*Queue
	capacity int
}

// NewRegistry constructs a registry whose queues share capacity. A
// capacity of 0 uses DefaultCapacity.
func NewRegistry(capacity int) *Registry {
	return &Registry{
		queues:   make(map[string]*Queue),
		capacity: capacity,
	}
}

// For returns the queue for deviceID, creating it on first use.
func (r *Registry) For(deviceID string) *Queue {
	r.mu.Lock()
	defer r.mu.Unlock()

	q, ok := r.queues[deviceID]
	if !ok {
		q = New(r.capacity)
		r.queues[deviceID] = q
	}
	return q
}

// Devices returns the ids of every device with a queue, including
// empty ones.
func (r *Registry) Devices() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.queues))
	for id := range r.queues {
		ids = append(ids, id)
	}
	return ids
}
