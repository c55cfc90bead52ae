// Package engine reconciles external source inventories against the Port
// catalog. Sources attach listeners per resource kind; a full sync cycle
// fetches every kind, maps the records through the configured mappings,
// upserts the results and finally deletes owned entities the cycle did not
// see. Deletion is gated: any recorded error leaves the catalog untouched,
// since an incomplete inventory must never drive deletes.
package engine

import (
	"context"
	"sync"
)

type Engine struct {
	registry *Registry
	applier  Applier
	mapper   Mapper
	config   ConfigProvider

	mu             sync.Mutex
	abortCycle     context.CancelFunc
	runningCycleID string
}

func New(applier Applier, mapper Mapper, config ConfigProvider) *Engine {
	return &Engine{
		registry: NewRegistry(),
		applier:  applier,
		mapper:   mapper,
		config:   config,
	}
}

// OnResync attaches a single-shot listener to a kind, KindWildcard for all
// kinds. See Registry.OnResync.
func (e *Engine) OnResync(kind string, fn ResyncFn) string {
	return e.registry.OnResync(kind, fn)
}

// OnResyncStream attaches a lazy producer to a kind. See
// Registry.OnResyncStream.
func (e *Engine) OnResyncStream(kind string, fn ResyncStreamFn) string {
	return e.registry.OnResyncStream(kind, fn)
}

// Registry exposes the listener registry, mainly for setup-time inspection.
func (e *Engine) Registry() *Registry {
	return e.registry
}
