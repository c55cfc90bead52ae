package engine

import (
	"context"
	"sync"
	"time"

	"github.com/port-labs/port-sync-engine/pkg/logger"
	"github.com/port-labs/port-sync-engine/pkg/metrics"
	"github.com/port-labs/port-sync-engine/pkg/port"
)

// reconcileResource runs one resource entry end to end: single-shot
// listeners are fetched concurrently and their batches committed first (the
// fast path), then every lazy producer is drained as its own task, one batch
// at a time. A failing listener or producer is recorded and never stops its
// siblings; only cycle cancellation stops the entry as a whole.
func (e *Engine) reconcileResource(ctx context.Context, resource port.Resource, userAgent port.UserAgentType) KindResult {
	start := time.Now()
	result := KindResult{Kind: resource.Kind}

	listeners := e.registry.ListenersFor(resource.Kind)
	if len(listeners) == 0 {
		logger.Warningf("No listeners registered for kind %q, nothing to reconcile", resource.Kind)
		return result
	}
	logger.Debugf("Reconciling kind %q with %d listeners", resource.Kind, len(listeners))

	fetched := fetchKind(ctx, listeners, resource.Kind)
	for _, err := range fetched.errors {
		logger.Errorf("Listener failed for kind %q: %v", resource.Kind, err)
	}
	result.Errors = append(result.Errors, fetched.errors...)

	for _, batch := range fetched.batches {
		metrics.AddObjectCount(resource.Kind, metrics.MetricRawExtractedResult, metrics.MetricPhaseExtract, float64(len(batch.records)))
		entities, errs := e.registerResourceBatch(ctx, resource, batch.records, userAgent)
		result.Entities = append(result.Entities, entities...)
		result.Errors = append(result.Errors, errs...)
	}

	// Producers run concurrently with each other; each drains its own
	// batches serially. Results land in per-producer slots merged after the
	// join, so nothing here needs a lock.
	type slot struct {
		entities []port.Entity
		errs     []error
	}
	slots := make([]slot, len(fetched.producers))
	var wg sync.WaitGroup
	for i, producer := range fetched.producers {
		wg.Add(1)
		go func(i int, producer listener) {
			defer wg.Done()
			entities, errs := e.drainProducer(ctx, producer, resource, userAgent)
			slots[i] = slot{entities: entities, errs: errs}
		}(i, producer)
	}
	wg.Wait()

	for i := range slots {
		result.Entities = append(result.Entities, slots[i].entities...)
		result.Errors = append(result.Errors, slots[i].errs...)
	}

	metrics.SetDuration(resource.Kind, metrics.MetricPhaseResync, time.Since(start).Seconds())
	metrics.SetSuccess(resource.Kind, metrics.MetricPhaseResync, len(result.Errors) == 0)
	return result
}

// drainProducer iterates one producer's batches, committing each batch to
// the catalog before the producer yields the next one. Records committed
// before a failure stay committed. Cycle cancellation surfaces through emit
// so a well-behaved producer stops on its next yield.
func (e *Engine) drainProducer(ctx context.Context, producer listener, resource port.Resource, userAgent port.UserAgentType) ([]port.Entity, []error) {
	var entities []port.Entity
	var errs []error
	batches := 0

	emit := func(batch []port.RawRecord) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		batches++
		metrics.AddObjectCount(resource.Kind, metrics.MetricRawExtractedResult, metrics.MetricPhaseExtract, float64(len(batch)))

		batchEntities, batchErrs := e.registerResourceBatch(ctx, resource, batch, userAgent)
		entities = append(entities, batchEntities...)
		errs = append(errs, batchErrs...)
		return nil
	}

	if err := safeStream(ctx, producer, resource.Kind, emit); err != nil {
		if isAbort(err) && ctx.Err() != nil {
			logger.Debugf("Producer %s for kind %q stopped by cycle cancellation after %d batches", producer.name, resource.Kind, batches)
		} else {
			logger.Errorf("Producer %s for kind %q failed after %d batches: %v", producer.name, resource.Kind, batches, err)
		}
		errs = append(errs, &ListenerError{Kind: resource.Kind, Listener: producer.name, Err: err})
	}
	return entities, errs
}
