package handlers

import (
	"context"
	"sync"

	"github.com/port-labs/port-sync-engine/pkg/engine"
	"github.com/port-labs/port-sync-engine/pkg/logger"
	"github.com/port-labs/port-sync-engine/pkg/port"
)

// CycleRunner runs one full sync cycle. *engine.Engine implements it.
type CycleRunner interface {
	RunFullSync(ctx context.Context, trigger string, userAgent port.UserAgentType, silent bool) (*engine.CycleSummary, error)
}

// SyncHandler owns a single full sync cycle end to end. Stopping the handler
// cancels the cycle context, which the engine records as an aborted cycle
// that skips the deletion phase.
type SyncHandler struct {
	runner    CycleRunner
	trigger   string
	userAgent port.UserAgentType

	ctx       context.Context
	cancelCtx context.CancelFunc
	done      chan struct{}

	mu        sync.Mutex
	isStopped bool
	summary   *engine.CycleSummary
}

func NewSyncHandler(runner CycleRunner, trigger string, userAgent port.UserAgentType) *SyncHandler {
	ctx, cancelCtx := context.WithCancel(context.Background())
	return &SyncHandler{
		runner:    runner,
		trigger:   trigger,
		userAgent: userAgent,
		ctx:       ctx,
		cancelCtx: cancelCtx,
		done:      make(chan struct{}),
	}
}

// Handle starts the cycle in the background and returns immediately. The
// cycle runs in silent mode: failures are logged and gate the deletion phase
// instead of crashing the daemon.
func (h *SyncHandler) Handle() {
	go func() {
		defer close(h.done)
		defer func() {
			if r := recover(); r != nil {
				logger.LogPanic(r)
			}
		}()

		summary, err := h.runner.RunFullSync(h.ctx, h.trigger, h.userAgent, true)
		if err != nil {
			logger.Errorw("Error running sync cycle", "trigger", h.trigger, "error", err.Error())
		}

		h.mu.Lock()
		h.summary = summary
		h.mu.Unlock()
	}()
}

// Done is closed when the cycle finishes, whether it completed, errored or
// was aborted.
func (h *SyncHandler) Done() <-chan struct{} {
	return h.done
}

// Summary returns the finished cycle summary, or nil while the cycle is
// still running.
func (h *SyncHandler) Summary() *engine.CycleSummary {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.summary
}

// Stop aborts the in-flight cycle. Safe to call more than once.
func (h *SyncHandler) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.isStopped {
		return
	}

	logger.Infof("Stopping sync handler for trigger '%s'", h.trigger)
	h.cancelCtx()
	h.isStopped = true
}

var (
	currentHandler   *SyncHandler
	currentHandlerMu sync.Mutex
)

// RunResync stops the previous sync handler, if any, and starts a new cycle
// for the given trigger. It returns the new handler without waiting for the
// cycle to finish; callers that need completion wait on Done.
func RunResync(runner CycleRunner, userAgent port.UserAgentType, trigger string) *SyncHandler {
	currentHandlerMu.Lock()
	defer currentHandlerMu.Unlock()

	if currentHandler != nil {
		currentHandler.Stop()
	}

	handler := NewSyncHandler(runner, trigger, userAgent)
	currentHandler = handler
	handler.Handle()

	return handler
}

// StopRunningHandler aborts the current in-flight cycle, if any. Used on
// daemon shutdown.
func StopRunningHandler() {
	currentHandlerMu.Lock()
	defer currentHandlerMu.Unlock()

	if currentHandler != nil {
		currentHandler.Stop()
	}
}
