package dispatcher

import "sync"

// Registry is the shared index of live connection handles, keyed by
// connection id.
type Registry struct {
	mu      sync.RWMutex
	handles map[uint]*Handle
}

func NewRegistry() *Registry {
	return &Registry{handles: make(map[uint]*Handle)}
}

// Register stores the handle. Registering the same id again replaces the
// previous handle and closes it.
func (r *Registry) Register(h *Handle) {
	r.mu.Lock()
	previous := r.handles[h.connectionID]
	r.handles[h.connectionID] = h
	r.mu.Unlock()

	if previous != nil && previous != h {
		previous.Close()
	} else if previous == nil {
		registeredConnections.Inc()
	}
}

// Get returns the handle for the connection id, or nil when none exists.
func (r *Registry) Get(connectionID uint) *Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.handles[connectionID]
}

// Remove closes and drops the handle. Removing an unknown id is a no-op.
func (r *Registry) Remove(connectionID uint) {
	r.mu.Lock()
	h, ok := r.handles[connectionID]
	if ok {
		delete(r.handles, connectionID)
	}
	r.mu.Unlock()

	if ok {
		registeredConnections.Dec()
		if h != nil {
			h.Close()
		}
	}
}

// List returns a snapshot of the registered handles.
func (r *Registry) List() []*Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	handles := make([]*Handle, 0, len(r.handles))
	for _, h := range r.handles {
		handles = append(handles, h)
	}
	return handles
}

// Len reports the number of registered handles.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handles)
}

// CloseAll closes every handle and empties the registry.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	handles := r.handles
	r.handles = make(map[uint]*Handle)
	r.mu.Unlock()

	for _, h := range handles {
		h.Close()
		registeredConnections.Dec()
	}
}
