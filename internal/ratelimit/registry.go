package ratelimit

import (
	"sort"
	"sync"
)

// Registry owns the named limiters of a process. Components receive the
// limiter they need from it rather than reaching for globals.
type Registry struct {
	mu       sync.RWMutex
	limiters map[string]*Limiter
	opts     []Option
}

// NewRegistry creates an empty registry; opts apply to every limiter it
// creates.
func NewRegistry(opts ...Option) *Registry {
	return &Registry{
		limiters: make(map[string]*Limiter),
		opts:     opts,
	}
}

// GetOrCreate returns the limiter registered under name, creating it with
// requestsPerMinute if absent. An existing limiter keeps its original rate.
func (r *Registry) GetOrCreate(name string, requestsPerMinute int) *Limiter {
	r.mu.RLock()
	if l, ok := r.limiters[name]; ok {
		r.mu.RUnlock()
		return l
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.limiters[name]; ok {
		return l
	}
	l := New(name, requestsPerMinute, r.opts...)
	r.limiters[name] = l
	return l
}

func (r *Registry) Get(name string) (*Limiter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.limiters[name]
	return l, ok
}

// Stats returns a snapshot of every limiter, ordered by name.
func (r *Registry) Stats() []Stats {
	r.mu.RLock()
	limiters := make([]*Limiter, 0, len(r.limiters))
	for _, l := range r.limiters {
		limiters = append(limiters, l)
	}
	r.mu.RUnlock()

	stats := make([]Stats, 0, len(limiters))
	for _, l := range limiters {
		stats = append(stats, l.GetStats())
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Name < stats[j].Name })
	return stats
}
