package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/port-labs/port-sync-engine/pkg/port"
)

func TestRunFullSyncDeletesOnlyStaleEntities(t *testing.T) {
	applier := &fakeApplier{searchResult: []port.Entity{
		{Identifier: "p1", Blueprint: "project"},
		{Identifier: "gone", Blueprint: "project"},
	}}
	e := newTestEngine(applier, resourceOfKind("project"), resourceOfKind("service"))
	e.OnResync("project", staticListener("p1", "p2"))
	e.OnResync("service", staticListener("s1"))

	summary, err := e.RunFullSync(context.Background(), TriggerManual, port.ExporterUserAgent, true)

	require.NoError(t, err)
	assert.Equal(t, CycleDone, summary.State)
	assert.False(t, summary.DeletionSkipped)
	assert.Equal(t, 2, summary.EntitiesBefore)
	assert.Equal(t, 3, summary.EntitiesUpserted)
	assert.ElementsMatch(t, []string{"p1", "p2", "s1"}, applier.upsertedIdentifiers())

	assert.Equal(t, 1, applier.deleteDiffCalls)
	assert.Equal(t, []string{"project;gone"}, applier.deletedKeys())
}

func TestRunFullSyncSkipsDeletionOnListenerFailure(t *testing.T) {
	// Kind "project" has two listeners; one returns an entity, the other
	// times out. The healthy listener's entity must still be written, but no
	// deletion may run off the incomplete inventory.
	applier := &fakeApplier{searchResult: []port.Entity{
		{Identifier: "gone", Blueprint: "project"},
	}}
	e := newTestEngine(applier, resourceOfKind("project"))
	e.OnResync("project", staticListener("p1"))
	e.OnResync("project", failingListener(fmt.Errorf("fetch projects: %w", context.DeadlineExceeded)))

	summary, err := e.RunFullSync(context.Background(), TriggerScheduled, port.ExporterUserAgent, true)

	require.NoError(t, err, "silent mode must not surface the aggregate")
	assert.Equal(t, CycleErrored, summary.State)
	assert.True(t, summary.DeletionSkipped)
	assert.Equal(t, 0, applier.deleteDiffCalls)
	assert.Empty(t, applier.deleted)

	assert.Equal(t, []string{"p1"}, applier.upsertedIdentifiers())
	require.Len(t, summary.Errors, 1)
	var listenerErr *ListenerError
	require.ErrorAs(t, summary.Errors[0], &listenerErr)
	assert.Equal(t, "project/2", listenerErr.Listener)
}

func TestRunFullSyncExplicitModeReturnsAggregate(t *testing.T) {
	applier := &fakeApplier{}
	e := newTestEngine(applier, resourceOfKind("project"))
	e.OnResync("project", failingListener(errors.New("boom")))

	summary, err := e.RunFullSync(context.Background(), TriggerManual, port.ExporterUserAgent, false)

	require.Error(t, err)
	var cycleErr *CycleError
	require.ErrorAs(t, err, &cycleErr)
	assert.Equal(t, summary.ID, cycleErr.CycleID)
	assert.Len(t, cycleErr.Errs, 1)
	assert.Equal(t, CycleErrored, summary.State)
	assert.Equal(t, 0, applier.deleteDiffCalls)
}

func TestAbortEndsCycleAbortedWithoutDeletion(t *testing.T) {
	applier := &fakeApplier{searchResult: []port.Entity{
		{Identifier: "gone", Blueprint: "project"},
	}}
	e := newTestEngine(applier, resourceOfKind("project"))

	started := make(chan struct{})
	e.OnResync("project", func(ctx context.Context, _ string) ([]port.RawRecord, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	})

	type outcome struct {
		summary *CycleSummary
		err     error
	}
	done := make(chan outcome, 1)
	go func() {
		summary, err := e.RunFullSync(context.Background(), TriggerManual, port.ExporterUserAgent, true)
		done <- outcome{summary, err}
	}()

	<-started
	e.AbortCurrentCycle()

	select {
	case result := <-done:
		require.NoError(t, result.err, "an aborted cycle is not an error")
		assert.Equal(t, CycleAborted, result.summary.State)
		assert.True(t, result.summary.DeletionSkipped)
		assert.Equal(t, 0, applier.deleteDiffCalls)
		assert.Empty(t, applier.deleted)
	case <-time.After(5 * time.Second):
		t.Fatal("aborted cycle did not terminate")
	}
}

func TestRunFullSyncIsIdempotent(t *testing.T) {
	// Snapshot already matches what the listener produces, so two runs in a
	// row must not delete anything.
	applier := &fakeApplier{searchResult: []port.Entity{
		{Identifier: "p1", Blueprint: "project"},
	}}
	e := newTestEngine(applier, resourceOfKind("project"))
	e.OnResync("project", staticListener("p1"))

	for run := 0; run < 2; run++ {
		summary, err := e.RunFullSync(context.Background(), TriggerScheduled, port.ExporterUserAgent, true)
		require.NoError(t, err)
		assert.Equal(t, CycleDone, summary.State)
	}
	assert.Empty(t, applier.deleted)
	assert.Equal(t, 2, applier.deleteDiffCalls)
}

func TestStreamProducerCommitsPagesBeforeFailing(t *testing.T) {
	// Three pages of ten records land in the catalog; the page-4 failure is
	// recorded and gates the deletion phase.
	applier := &fakeApplier{searchResult: []port.Entity{
		{Identifier: "gone", Blueprint: "issue"},
	}}
	e := newTestEngine(applier, resourceOfKind("issue"))
	e.OnResyncStream("issue", func(_ context.Context, _ string, emit EmitFn) error {
		for page := 0; page < 3; page++ {
			identifiers := make([]string, 10)
			for i := range identifiers {
				identifiers[i] = fmt.Sprintf("issue-%d", page*10+i)
			}
			if err := emit(records(identifiers...)); err != nil {
				return err
			}
		}
		return errors.New("page 4: upstream went away")
	})

	summary, err := e.RunFullSync(context.Background(), TriggerScheduled, port.ExporterUserAgent, true)

	require.NoError(t, err)
	assert.Equal(t, CycleErrored, summary.State)
	assert.Equal(t, 30, summary.EntitiesUpserted)
	assert.Equal(t, 3, applier.upsertCalls, "each page commits on its own")
	assert.Equal(t, 0, applier.deleteDiffCalls)

	require.Len(t, summary.Errors, 1)
	var listenerErr *ListenerError
	require.ErrorAs(t, summary.Errors[0], &listenerErr)
}

func TestEntriesSharingKindProduceIndependently(t *testing.T) {
	applier := &fakeApplier{}
	e := newTestEngine(applier,
		resourceWithBlueprint("repo", "service"),
		resourceWithBlueprint("repo", "library"),
	)
	e.OnResync("repo", staticListener("r1"))

	summary, err := e.RunFullSync(context.Background(), TriggerManual, port.ExporterUserAgent, true)

	require.NoError(t, err)
	assert.Equal(t, CycleDone, summary.State)
	assert.ElementsMatch(t, []string{"service;r1", "library;r1"}, func() []string {
		keys := make([]string, len(applier.upserted))
		for i := range applier.upserted {
			keys[i] = port.EntityIdentifierKey(&applier.upserted[i])
		}
		return keys
	}())
}

func TestWildcardListenerCoversEveryKind(t *testing.T) {
	applier := &fakeApplier{}
	e := newTestEngine(applier, resourceOfKind("project"), resourceOfKind("issue"))
	e.OnResync(KindWildcard, func(_ context.Context, kind string) ([]port.RawRecord, error) {
		return records(kind + "-1"), nil
	})

	summary, err := e.RunFullSync(context.Background(), TriggerManual, port.ExporterUserAgent, true)

	require.NoError(t, err)
	assert.Equal(t, CycleDone, summary.State)
	assert.ElementsMatch(t, []string{"project-1", "issue-1"}, applier.upsertedIdentifiers())
}

func TestKindWithoutListenersContributesNothing(t *testing.T) {
	// A configured kind nobody listens to produces an empty inventory, so
	// its previously synced entities are deleted by the healthy cycle.
	applier := &fakeApplier{searchResult: []port.Entity{
		{Identifier: "orphan", Blueprint: "ghost"},
	}}
	e := newTestEngine(applier, resourceOfKind("ghost"), resourceOfKind("project"))
	e.OnResync("project", staticListener("p1"))

	summary, err := e.RunFullSync(context.Background(), TriggerManual, port.ExporterUserAgent, true)

	require.NoError(t, err)
	assert.Equal(t, CycleDone, summary.State)
	assert.Equal(t, []string{"ghost;orphan"}, applier.deletedKeys())
}

func TestSnapshotFailureEndsErroredBeforeReconciling(t *testing.T) {
	applier := &fakeApplier{searchErr: errors.New("catalog unavailable")}
	e := newTestEngine(applier, resourceOfKind("project"))
	e.OnResync("project", staticListener("p1"))

	summary, err := e.RunFullSync(context.Background(), TriggerManual, port.ExporterUserAgent, false)

	require.Error(t, err)
	assert.Equal(t, CycleErrored, summary.State)
	assert.Equal(t, 0, applier.upsertCalls, "reconciliation must not start without a snapshot")

	var applierErr *ApplierError
	require.ErrorAs(t, err, &applierErr)
	assert.Equal(t, "search", applierErr.Op)
}

func TestMappingFailureGatesDeletionButKeepsSiblings(t *testing.T) {
	applier := &fakeApplier{searchResult: []port.Entity{
		{Identifier: "gone", Blueprint: "project"},
	}}
	e := newTestEngine(applier, resourceOfKind("project"))
	e.OnResync("project", func(context.Context, string) ([]port.RawRecord, error) {
		return []port.RawRecord{
			{"identifier": "good"},
			{"identifier": "bad", "fail": true},
		}, nil
	})

	summary, err := e.RunFullSync(context.Background(), TriggerScheduled, port.ExporterUserAgent, true)

	require.NoError(t, err)
	assert.Equal(t, CycleErrored, summary.State)
	assert.Equal(t, []string{"good"}, applier.upsertedIdentifiers())
	assert.Equal(t, 0, applier.deleteDiffCalls)

	require.Len(t, summary.Errors, 1)
	var mappingErr *MappingError
	require.ErrorAs(t, summary.Errors[0], &mappingErr)
	assert.Equal(t, "project", mappingErr.Kind)
}

func TestAbortCurrentCycleWithoutRunningCycleIsNoop(t *testing.T) {
	e := newTestEngine(&fakeApplier{})
	e.AbortCurrentCycle()
}
