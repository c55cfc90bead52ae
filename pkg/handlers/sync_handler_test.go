package handlers

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/port-labs/port-sync-engine/pkg/engine"
	"github.com/port-labs/port-sync-engine/pkg/port"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner counts cycles and can hold them open until released or aborted.
type fakeRunner struct {
	mu       sync.Mutex
	hold     chan struct{}
	triggers []string
	aborted  int
}

func (f *fakeRunner) RunFullSync(ctx context.Context, trigger string, _ port.UserAgentType, _ bool) (*engine.CycleSummary, error) {
	f.mu.Lock()
	f.triggers = append(f.triggers, trigger)
	hold := f.hold
	f.mu.Unlock()

	summary := &engine.CycleSummary{Trigger: trigger, State: engine.CycleDone}
	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			f.mu.Lock()
			f.aborted++
			f.mu.Unlock()
			summary.State = engine.CycleAborted
		}
	}
	return summary, nil
}

func (f *fakeRunner) abortedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.aborted
}

func (f *fakeRunner) triggerLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.triggers...)
}

// resetCurrentHandler isolates tests that go through the package-level
// handler tracking.
func resetCurrentHandler(t *testing.T) {
	t.Helper()
	currentHandlerMu.Lock()
	original := currentHandler
	currentHandler = nil
	currentHandlerMu.Unlock()

	t.Cleanup(func() {
		StopRunningHandler()
		currentHandlerMu.Lock()
		currentHandler = original
		currentHandlerMu.Unlock()
	})
}

func waitDone(t *testing.T, h *SyncHandler) {
	t.Helper()
	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("cycle did not finish in time")
	}
}

func TestSyncHandlerRunsCycleToCompletion(t *testing.T) {
	runner := &fakeRunner{}
	handler := NewSyncHandler(runner, engine.TriggerOnStart, port.ExporterUserAgent)

	assert.Nil(t, handler.Summary(), "Summary should be nil before the cycle finishes")

	handler.Handle()
	waitDone(t, handler)

	summary := handler.Summary()
	require.NotNil(t, summary)
	assert.Equal(t, engine.CycleDone, summary.State)
	assert.Equal(t, engine.TriggerOnStart, summary.Trigger)
	assert.Equal(t, []string{engine.TriggerOnStart}, runner.triggerLog())
}

func TestSyncHandlerStopAbortsCycle(t *testing.T) {
	runner := &fakeRunner{hold: make(chan struct{})}
	handler := NewSyncHandler(runner, engine.TriggerManual, port.ExporterUserAgent)
	handler.Handle()

	select {
	case <-handler.Done():
		t.Fatal("cycle should still be running")
	case <-time.After(50 * time.Millisecond):
	}

	handler.Stop()
	waitDone(t, handler)

	assert.Equal(t, 1, runner.abortedCount())
	require.NotNil(t, handler.Summary())
	assert.Equal(t, engine.CycleAborted, handler.Summary().State)
}

func TestSyncHandlerStopIsIdempotent(t *testing.T) {
	runner := &fakeRunner{hold: make(chan struct{})}
	handler := NewSyncHandler(runner, engine.TriggerManual, port.ExporterUserAgent)
	handler.Handle()

	assert.NotPanics(t, func() {
		handler.Stop()
		handler.Stop()
	})
	waitDone(t, handler)
	assert.Equal(t, 1, runner.abortedCount())
}

func TestRunResyncAbortsPreviousHandler(t *testing.T) {
	resetCurrentHandler(t)
	runner := &fakeRunner{hold: make(chan struct{})}
	defer close(runner.hold)

	first := RunResync(runner, port.ExporterUserAgent, engine.TriggerOnStart)
	second := RunResync(runner, port.ExporterUserAgent, engine.TriggerConfigChange)

	waitDone(t, first)
	assert.Equal(t, 1, runner.abortedCount(), "First handler should be aborted")

	select {
	case <-second.Done():
		t.Fatal("second handler should still be running")
	case <-time.After(50 * time.Millisecond):
	}

	assert.Equal(t, []string{engine.TriggerOnStart, engine.TriggerConfigChange}, runner.triggerLog())
}

func TestRapidResyncsLeaveOnlyLastRunning(t *testing.T) {
	resetCurrentHandler(t)
	runner := &fakeRunner{hold: make(chan struct{})}
	defer close(runner.hold)

	var last *SyncHandler
	for i := 0; i < 5; i++ {
		last = RunResync(runner, port.ExporterUserAgent, engine.TriggerConfigChange)
	}

	assert.Eventually(t, func() bool {
		return runner.abortedCount() == 4
	}, time.Second*2, time.Millisecond*10)

	select {
	case <-last.Done():
		t.Fatal("last handler should still be running")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestStopRunningHandlerStopsCurrent(t *testing.T) {
	resetCurrentHandler(t)
	runner := &fakeRunner{hold: make(chan struct{})}

	handler := RunResync(runner, port.ExporterUserAgent, engine.TriggerOnStart)
	StopRunningHandler()

	waitDone(t, handler)
	assert.Equal(t, 1, runner.abortedCount())
}

func TestStopRunningHandlerWithoutHandlerIsNoop(t *testing.T) {
	resetCurrentHandler(t)
	assert.NotPanics(t, StopRunningHandler)
}
