package registry

import (
	"sync"
	"sync/atomic"
)

// Holder publishes the latest snapshot to concurrent readers.
type Holder struct {
	value atomic.Pointer[Snapshot]

	mu        sync.Mutex
	listeners []func(*Snapshot)
}

func NewHolder() *Holder {
	return &Holder{}
}

// Get returns the current snapshot, or nil before the first build.
func (h *Holder) Get() *Snapshot {
	return h.value.Load()
}

// Set publishes s and notifies listeners registered with OnSet.
func (h *Holder) Set(s *Snapshot) {
	h.value.Store(s)

	h.mu.Lock()
	listeners := h.listeners
	h.mu.Unlock()
	for _, fn := range listeners {
		fn(s)
	}
}

// OnSet registers fn to be called after every Set.
func (h *Holder) OnSet(fn func(*Snapshot)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners = append(h.listeners[:len(h.listeners):len(h.listeners)], fn)
}

// Ready reports whether a snapshot has been published.
func (h *Holder) Ready() bool {
	return h.value.Load() != nil
}
