package engine

import (
	"context"
	"time"

	"github.com/port-labs/port-sync-engine/pkg/port"
)

// ResyncFn is a single-shot listener: one call returns the full record set
// the source holds for the kind.
type ResyncFn func(ctx context.Context, kind string) ([]port.RawRecord, error)

// EmitFn hands one batch of records to the engine. It returns once the batch
// has been mapped and written to the catalog, so a producer that checks the
// returned error gets backpressure for free. A non-nil error means the cycle
// is shutting down and the producer should stop.
type EmitFn func(batch []port.RawRecord) error

// ResyncStreamFn is a lazy producer: it calls emit once per batch (page) and
// returns when the source is exhausted. Records already emitted stay
// committed even when a later emit fails.
type ResyncStreamFn func(ctx context.Context, kind string, emit EmitFn) error

// Applier writes entities to the catalog. Implemented by pkg/port/applier.
type Applier interface {
	Upsert(ctx context.Context, entities []port.Entity, userAgent port.UserAgentType) ([]port.Entity, []error)
	Delete(ctx context.Context, entities []port.Entity, userAgent port.UserAgentType) []error
	ApplyDiff(ctx context.Context, diff port.EntityDiff, userAgent port.UserAgentType) error
	DeleteDiff(ctx context.Context, diff port.EntityDiff, userAgent port.UserAgentType) []error
	Search(ctx context.Context, userAgent port.UserAgentType) ([]port.Entity, error)
}

// Mapper turns raw records into entities using one resource entry's
// mappings. Implemented by pkg/port/mapping.
type Mapper interface {
	MapRecords(ctx context.Context, resource port.Resource, records []port.RawRecord) ([]port.Entity, []error)
}

// ConfigProvider returns the resource entries a cycle should reconcile. It
// is consulted once per cycle and never cached beyond that, so mapping
// changes take effect on the next resync. Implemented by
// pkg/port/integration.
type ConfigProvider interface {
	GetResourceConfigs(ctx context.Context) ([]port.Resource, error)
}

// CycleState is the lifecycle phase of one reconciliation cycle.
type CycleState string

const (
	CyclePending      CycleState = "PENDING"
	CycleSnapshotting CycleState = "SNAPSHOTTING"
	CycleReconciling  CycleState = "RECONCILING"
	CycleDeleting     CycleState = "DELETING"
	CycleDone         CycleState = "DONE"
	CycleAborted      CycleState = "ABORTED"
	CycleErrored      CycleState = "ERRORED"
)

// Well-known cycle triggers. RunFullSync accepts any string; these cover the
// schedulers shipped with the engine.
const (
	TriggerOnStart       = "on start"
	TriggerScheduled     = "scheduled resync"
	TriggerConfigChange  = "configuration change"
	TriggerManual        = "manual"
	TriggerSourcesChange = "sources change"
)

// KindResult is the outcome of reconciling one resource entry. Entities
// holds everything the entry's listeners got upserted this cycle; Errors
// holds every recorded listener, mapping and applier failure.
type KindResult struct {
	Kind     string
	Entities []port.Entity
	Errors   []error
}

// CycleSummary describes one full reconciliation cycle.
type CycleSummary struct {
	ID         string
	Trigger    string
	UserAgent  port.UserAgentType
	State      CycleState
	StartedAt  time.Time
	FinishedAt time.Time

	// Results has one element per configured resource entry, in
	// configuration order. Entries sharing a kind stay separate.
	Results []KindResult

	// EntitiesBefore is the size of the ownership snapshot taken before
	// reconciliation; EntitiesUpserted counts everything written this cycle.
	EntitiesBefore   int
	EntitiesUpserted int

	// Errors flattens every recorded error across Results plus any
	// deletion-phase failures. Non-empty Errors after reconciliation means
	// the deletion phase was skipped.
	Errors []error

	DeletionSkipped bool
}

// HasErrors reports whether any error was recorded during the cycle.
func (s *CycleSummary) HasErrors() bool {
	return len(s.Errors) > 0
}

// UpsertedEntities flattens the entities written this cycle across all
// resource entries, preserving result order.
func (s *CycleSummary) UpsertedEntities() []port.Entity {
	entities := make([]port.Entity, 0, s.EntitiesUpserted)
	for i := range s.Results {
		entities = append(entities, s.Results[i].Entities...)
	}
	return entities
}
