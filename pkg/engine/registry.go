package engine

import (
	"fmt"
	"sync"
)

// KindWildcard registers a listener for every configured kind.
const KindWildcard = "*"

// listener is the registered form of a source hook. Exactly one of resync
// and stream is set; the variant is fixed at registration so dispatch never
// inspects the callable again.
type listener struct {
	name   string
	kind   string
	resync ResyncFn
	stream ResyncStreamFn
}

// Registry holds the listeners attached to the engine. Registration happens
// during setup; once a cycle is running the registry is only read, so the
// lock is uncontended on the hot path.
type Registry struct {
	mu        sync.RWMutex
	listeners []listener
	perKind   map[string]int
}

func NewRegistry() *Registry {
	return &Registry{perKind: map[string]int{}}
}

// OnResync attaches a single-shot listener to a kind. KindWildcard or an
// empty kind receives every kind. The returned name identifies the listener
// in recorded errors and logs.
func (r *Registry) OnResync(kind string, fn ResyncFn) string {
	return r.add(listener{kind: kind, resync: fn})
}

// OnResyncStream attaches a lazy producer to a kind. The engine drains its
// batches one at a time, committing each batch before the producer runs
// again.
func (r *Registry) OnResyncStream(kind string, fn ResyncStreamFn) string {
	return r.add(listener{kind: kind, stream: fn})
}

func (r *Registry) add(l listener) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if l.kind == "" {
		l.kind = KindWildcard
	}
	r.perKind[l.kind]++
	l.name = fmt.Sprintf("%s/%d", l.kind, r.perKind[l.kind])
	r.listeners = append(r.listeners, l)
	return l.name
}

// ListenersFor returns the listeners applicable to a kind: kind-specific
// ones first, wildcard ones after, each group in registration order.
func (r *Registry) ListenersFor(kind string) []listener {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []listener
	for _, l := range r.listeners {
		if l.kind == kind {
			matched = append(matched, l)
		}
	}
	for _, l := range r.listeners {
		if l.kind == KindWildcard {
			matched = append(matched, l)
		}
	}
	return matched
}

// Len returns the number of registered listeners across all kinds.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.listeners)
}
