// Package worker applies single-record live events to the catalog through a
// rate-limited workqueue. It is the incremental counterpart of a full sync
// cycle: webhook-style triggers enqueue one raw record at a time and the
// worker pushes it through the same mapping and catalog path.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/port-labs/port-sync-engine/pkg/logger"
	"github.com/port-labs/port-sync-engine/pkg/port"

	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/util/workqueue"
)

type ActionType string

const (
	CreateAction   ActionType = "create"
	UpdateAction   ActionType = "update"
	DeleteAction   ActionType = "delete"
	MaxNumRequeues int        = 4
)

// Event is a single raw-record change delivery.
type Event struct {
	Kind   string
	Action ActionType
	Record port.RawRecord
}

// Engine is the subset of the sync engine the worker drives.
type Engine interface {
	RegisterRaw(ctx context.Context, kind string, records []port.RawRecord, userAgent port.UserAgentType) ([]port.Entity, error)
	MapRaw(ctx context.Context, kind string, records []port.RawRecord) ([]port.Entity, error)
	Unregister(ctx context.Context, entities []port.Entity, userAgent port.UserAgentType) error
}

// OwnershipChecker reports whether an entity is owned by this installation.
// Delete events only remove entities the checker approves, so a shared
// catalog is never stripped of another installation's records.
type OwnershipChecker func(ctx context.Context, entity *port.Entity) (bool, error)

type Worker struct {
	engine         Engine
	userAgent      port.UserAgentType
	checkOwnership OwnershipChecker
	queue          workqueue.RateLimitingInterface
}

// New builds a worker. A nil checker treats every mapped entity as owned.
func New(engine Engine, userAgent port.UserAgentType, checkOwnership OwnershipChecker) *Worker {
	return &Worker{
		engine:         engine,
		userAgent:      userAgent,
		checkOwnership: checkOwnership,
		queue:          workqueue.NewRateLimitingQueue(workqueue.DefaultControllerRateLimiter()),
	}
}

// Enqueue schedules an event for processing. Each call is an independent
// delivery with its own retry budget, so the queue is keyed by the event
// copy rather than by record identity.
func (w *Worker) Enqueue(event Event) {
	w.queue.Add(&event)
}

func (w *Worker) Shutdown() {
	logger.Info("Shutting down live event workers")
	w.queue.ShutDown()
}

// Run starts the given number of workers and returns. Workers stop when
// stopCh closes or the queue is shut down.
func (w *Worker) Run(workers int, stopCh <-chan struct{}) {
	defer utilruntime.HandleCrash()

	logger.Infof("Starting %d live event workers", workers)
	for i := 0; i < workers; i++ {
		go wait.Until(w.runWorker, time.Second, stopCh)
	}
}

func (w *Worker) runWorker() {
	for w.processNextItem() {
	}
}

func (w *Worker) processNextItem() bool {
	obj, shutdown := w.queue.Get()

	if shutdown {
		return false
	}

	err := func(obj interface{}) error {
		defer w.queue.Done(obj)

		event, ok := obj.(*Event)

		if !ok {
			w.queue.Forget(obj)
			utilruntime.HandleError(fmt.Errorf("expected live event in workqueue but got %#v", obj))
			return nil
		}

		if err := w.handleEvent(event); err != nil {
			if w.queue.NumRequeues(obj) >= MaxNumRequeues {
				w.queue.Forget(obj)
				utilruntime.HandleError(fmt.Errorf("error handling %s event for kind '%s': %s, give up after %d requeues", event.Action, event.Kind, err.Error(), MaxNumRequeues))
				return nil
			}

			w.queue.AddRateLimited(obj)
			return fmt.Errorf("error handling %s event for kind '%s': %s, requeuing", event.Action, event.Kind, err.Error())
		}

		w.queue.Forget(obj)
		return nil
	}(obj)

	if err != nil {
		utilruntime.HandleError(err)
		return true
	}

	return true
}

func (w *Worker) handleEvent(event *Event) error {
	ctx := context.Background()
	records := []port.RawRecord{event.Record}

	switch event.Action {
	case CreateAction, UpdateAction:
		if _, err := w.engine.RegisterRaw(ctx, event.Kind, records, w.userAgent); err != nil {
			return err
		}
		logger.Debugw("Applied live event", "kind", event.Kind, "action", string(event.Action))
	case DeleteAction:
		return w.handleDelete(ctx, event, records)
	default:
		return fmt.Errorf("unknown live event action '%s'", event.Action)
	}

	return nil
}

// handleDelete maps the record without writing and deletes only the mapped
// entities this installation owns.
func (w *Worker) handleDelete(ctx context.Context, event *Event, records []port.RawRecord) error {
	entities, err := w.engine.MapRaw(ctx, event.Kind, records)
	if err != nil {
		return err
	}

	owned := make([]port.Entity, 0, len(entities))
	for i := range entities {
		if w.checkOwnership != nil {
			ok, err := w.checkOwnership(ctx, &entities[i])
			if err != nil {
				return fmt.Errorf("error checking ownership of entity '%s' of blueprint '%s': %v", entities[i].Identifier, entities[i].Blueprint, err)
			}
			if !ok {
				logger.Warningf("Skipping delete of entity '%s' of blueprint '%s', it is not owned by this installation", entities[i].Identifier, entities[i].Blueprint)
				continue
			}
		}
		owned = append(owned, entities[i])
	}

	if len(owned) == 0 {
		return nil
	}
	if err := w.engine.Unregister(ctx, owned, w.userAgent); err != nil {
		return err
	}
	logger.Debugw("Deleted entities for live event", "kind", event.Kind, "count", len(owned))

	return nil
}
