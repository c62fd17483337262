package cdp

import (
	"sync"

	"github.com/chromedp/cdproto/target"
)

// Registry maps CDP target IDs to the surfaces driving them.
type Registry struct {
	surfaces map[target.ID]*Surface
	mu       sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{surfaces: make(map[target.ID]*Surface)}
}

func (r *Registry) Register(id target.ID, s *Surface) {
	r.mu.Lock()
	r.surfaces[id] = s
	r.mu.Unlock()
}

func (r *Registry) Get(id target.ID) (*Surface, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.surfaces[id]
	return s, ok
}

func (r *Registry) Remove(id target.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.surfaces, id)
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.surfaces)
}
