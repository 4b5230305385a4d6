package engine

import (
	"sync"

	srvErrors "github.com/querydeck/querydeck/pkg/errors"
)

// AddressRegistry tracks which persistent database paths currently have a
// live handle. It is the single-writer guard for the persistent scope: an
// acquire on an active path fails immediately instead of queueing. The
// registry is injected into the Manager so tests can run independent
// instances.
type AddressRegistry struct {
	mu     sync.Mutex
	active map[string]struct{}
}

func NewAddressRegistry() *AddressRegistry {
	return &AddressRegistry{active: make(map[string]struct{})}
}

// Acquire reserves a path. Returns a non-transient ContentionError when the
// path is already active; the caller must not enter its retry loop on this.
func (r *AddressRegistry) Acquire(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.active[path]; ok {
		return srvErrors.NewContentionError(path)
	}
	r.active[path] = struct{}{}
	return nil
}

// Release frees a path reservation. Releasing an unknown path is a no-op.
func (r *AddressRegistry) Release(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.active, path)
}

// IsActive reports whether a path currently has a reservation.
func (r *AddressRegistry) IsActive(path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.active[path]
	return ok
}
