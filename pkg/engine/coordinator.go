package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/port-labs/port-sync-engine/pkg/logger"
	"github.com/port-labs/port-sync-engine/pkg/metrics"
	"github.com/port-labs/port-sync-engine/pkg/port"
)

// RunFullSync executes one reconciliation cycle: snapshot the owned catalog
// entities, reconcile every configured resource entry concurrently, and
// delete whatever the snapshot holds that the cycle did not reproduce.
//
// The deletion phase is gated: if any listener, mapping or catalog error was
// recorded, deletion is skipped and the cycle ends ERRORED. With silent=true
// (the scheduler default) an errored cycle is logged and returns a nil
// error; with silent=false it returns a *CycleError carrying everything that
// was recorded. An aborted cycle ends ABORTED and always returns a nil
// error.
//
// The engine does not serialize cycles. Callers that cannot tolerate
// overlapping cycles for the same user agent must serialize themselves, the
// way the resync handler aborts the previous cycle before starting the next.
func (e *Engine) RunFullSync(ctx context.Context, trigger string, userAgent port.UserAgentType, silent bool) (*CycleSummary, error) {
	cycleCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	summary := &CycleSummary{
		ID:        uuid.New().String(),
		Trigger:   trigger,
		UserAgent: userAgent,
		State:     CyclePending,
		StartedAt: time.Now(),
	}
	defer func() {
		summary.FinishedAt = time.Now()
		metrics.SetDuration(metrics.MetricKindReconciliation, metrics.MetricPhaseResync, summary.FinishedAt.Sub(summary.StartedAt).Seconds())
		metrics.SetSuccess(metrics.MetricKindReconciliation, metrics.MetricPhaseResync, summary.State == CycleDone)
	}()

	e.mu.Lock()
	e.abortCycle = cancel
	e.runningCycleID = summary.ID
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		if e.runningCycleID == summary.ID {
			e.abortCycle = nil
			e.runningCycleID = ""
		}
		e.mu.Unlock()
	}()

	logger.Infow("Starting sync cycle", "cycle", summary.ID, "trigger", trigger, "userAgent", string(userAgent))

	// The snapshot is the before side of the eventual deletion diff. It is
	// taken once, before any kind work, and is read-only afterwards.
	summary.State = CycleSnapshotting
	snapshotStart := time.Now()
	snapshot, err := e.applier.Search(cycleCtx, userAgent)
	if err != nil {
		return e.failCycle(cycleCtx, summary, silent, &ApplierError{Op: "search", Err: err})
	}
	summary.EntitiesBefore = len(snapshot)
	metrics.SetDuration(metrics.MetricKindReconciliation, metrics.MetricPhaseSnapshot, time.Since(snapshotStart).Seconds())
	logger.Debugf("Snapshotted %d entities for user agent %q", len(snapshot), string(userAgent))

	resources, err := e.config.GetResourceConfigs(cycleCtx)
	if err != nil {
		return e.failCycle(cycleCtx, summary, silent, &ApplierError{Op: "configuration fetch", Err: err})
	}

	summary.State = CycleReconciling
	summary.Results = make([]KindResult, len(resources))
	var wg sync.WaitGroup
	for i := range resources {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			summary.Results[i] = e.reconcileResource(cycleCtx, resources[i], userAgent)
		}(i)
	}
	wg.Wait()

	for i := range summary.Results {
		summary.EntitiesUpserted += len(summary.Results[i].Entities)
		summary.Errors = append(summary.Errors, summary.Results[i].Errors...)
	}

	if cycleCtx.Err() != nil {
		summary.State = CycleAborted
		summary.DeletionSkipped = true
		logger.Infow("Sync cycle aborted, skipping deletion phase",
			"cycle", summary.ID, "trigger", trigger, "upserted", summary.EntitiesUpserted)
		return summary, nil
	}

	// Deletion gate: any recorded error means the inventory may be
	// incomplete, and an incomplete inventory must never drive deletes.
	if len(summary.Errors) > 0 {
		summary.State = CycleErrored
		summary.DeletionSkipped = true
		cycleErr := &CycleError{CycleID: summary.ID, Errs: summary.Errors}
		if silent {
			logger.Errorw("Sync cycle completed with errors, skipping deletion phase",
				"cycle", summary.ID, "trigger", trigger, "errors", len(summary.Errors), "firstError", summary.Errors[0].Error())
			return summary, nil
		}
		return summary, cycleErr
	}

	summary.State = CycleDeleting
	deleteErrs := e.applier.DeleteDiff(cycleCtx, port.EntityDiff{Before: snapshot, After: summary.UpsertedEntities()}, userAgent)
	for _, deleteErr := range deleteErrs {
		logger.Errorf("Deletion phase error: %v", deleteErr)
		summary.Errors = append(summary.Errors, &ApplierError{Op: "delete", Err: deleteErr})
	}

	summary.State = CycleDone
	logger.Infow("Sync cycle completed",
		"cycle", summary.ID, "trigger", trigger,
		"upserted", summary.EntitiesUpserted, "snapshot", summary.EntitiesBefore, "deleteErrors", len(deleteErrs))
	return summary, nil
}

// failCycle finalizes a cycle that failed before reconciliation started. A
// failure caused by cancellation ends ABORTED instead, which never surfaces
// as an error.
func (e *Engine) failCycle(ctx context.Context, summary *CycleSummary, silent bool, err error) (*CycleSummary, error) {
	summary.DeletionSkipped = true
	if ctx.Err() != nil {
		summary.State = CycleAborted
		logger.Infow("Sync cycle aborted", "cycle", summary.ID, "trigger", summary.Trigger)
		return summary, nil
	}

	summary.State = CycleErrored
	summary.Errors = append(summary.Errors, err)
	if silent {
		logger.Errorw("Sync cycle failed", "cycle", summary.ID, "trigger", summary.Trigger, "error", err.Error())
		return summary, nil
	}
	return summary, &CycleError{CycleID: summary.ID, Errs: summary.Errors}
}

// AbortCurrentCycle cancels the in-flight cycle, if any. Listeners observe
// the cancellation through their context and stop at their next suspension
// point; entities already upserted stay in the catalog and the deletion
// phase is skipped.
func (e *Engine) AbortCurrentCycle() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.abortCycle != nil {
		logger.Infof("Aborting sync cycle %s", e.runningCycleID)
		e.abortCycle()
	}
}
