package applier

import (
	"context"
	"fmt"
	"sync"

	"github.com/port-labs/port-sync-engine/pkg/goutils"
	"github.com/port-labs/port-sync-engine/pkg/logger"
	"github.com/port-labs/port-sync-engine/pkg/metrics"
	"github.com/port-labs/port-sync-engine/pkg/port"
	"github.com/port-labs/port-sync-engine/pkg/port/cli"
	"github.com/port-labs/port-sync-engine/pkg/port/mapping"
)

// DatasourcePrefix is the reporter component of the datasource stamp the API
// records for every write made by this binary.
const DatasourcePrefix = "port-sync-engine"

type Option func(*Applier)

// Applier carries mapped entities into the catalog. All writes and searches
// are scoped to one installation through its state key.
type Applier struct {
	portClient *cli.PortClient
	stateKey   string

	deleteDependents             bool
	createMissingRelatedEntities bool
	updateEntityOnlyOnDiff       bool
	maxEntitiesPerBatch          int

	// identity key -> entity hash of the last successful upsert, kept only
	// when updateEntityOnlyOnDiff is enabled.
	hashes sync.Map
}

func New(portClient *cli.PortClient, stateKey string, opts ...Option) *Applier {
	a := &Applier{
		portClient:          portClient,
		stateKey:            stateKey,
		maxEntitiesPerBatch: goutils.DefaultMaxBatchLength,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func WithDeleteDependents(deleteDependents bool) Option {
	return func(a *Applier) {
		a.deleteDependents = deleteDependents
	}
}

func WithCreateMissingRelatedEntities(createMissingRelatedEntities bool) Option {
	return func(a *Applier) {
		a.createMissingRelatedEntities = createMissingRelatedEntities
	}
}

func WithUpdateEntityOnlyOnDiff(updateEntityOnlyOnDiff bool) Option {
	return func(a *Applier) {
		a.updateEntityOnlyOnDiff = updateEntityOnlyOnDiff
	}
}

func WithMaxEntitiesPerBatch(maxEntitiesPerBatch int) Option {
	return func(a *Applier) {
		if maxEntitiesPerBatch > 0 {
			a.maxEntitiesPerBatch = maxEntitiesPerBatch
		}
	}
}

// Upsert writes entities grouped by blueprint in bulk batches. It returns
// the entities that made it into the catalog alongside per-entity errors;
// one failed entity never fails its batch siblings.
func (a *Applier) Upsert(ctx context.Context, entities []port.Entity, userAgent port.UserAgentType) ([]port.Entity, []error) {
	upserted := make([]port.Entity, 0, len(entities))
	var errs []error

	toWrite, unchanged := a.filterUnchanged(entities)
	upserted = append(upserted, unchanged...)
	if len(unchanged) > 0 {
		logger.Debugf("Skipping %d unchanged entities", len(unchanged))
		metrics.AddObjectCount(metrics.MetricKindReconciliation, metrics.MetricSkippedResult, metrics.MetricPhaseLoad, float64(len(unchanged)))
	}

	for blueprint, group := range groupByBlueprint(toWrite) {
		batchSize := min(a.maxEntitiesPerBatch, goutils.CalculateEntitiesBatchSize(group))
		for start := 0; start < len(group); start += batchSize {
			batch := group[start:min(start+batchSize, len(group))]

			if ctx.Err() != nil {
				errs = append(errs, ctx.Err())
				return upserted, errs
			}

			ok, batchErrs := a.upsertBatch(ctx, blueprint, batch)
			upserted = append(upserted, ok...)
			errs = append(errs, batchErrs...)
		}
	}

	metrics.AddObjectCount(metrics.MetricKindReconciliation, metrics.MetricLoadedResult, metrics.MetricPhaseLoad, float64(len(upserted)))
	metrics.AddObjectCount(metrics.MetricKindReconciliation, metrics.MetricFailedResult, metrics.MetricPhaseLoad, float64(len(errs)))
	return upserted, errs
}

// upsertBatch tries one bulk request and falls back to entity-by-entity
// writes when the bulk endpoint rejects the whole request, so a poisoned
// batch still gets its healthy entities through.
func (a *Applier) upsertBatch(ctx context.Context, blueprint string, batch []port.Entity) ([]port.Entity, []error) {
	resp, err := a.portClient.BulkUpsertEntities(ctx, blueprint, batch, "", a.createMissingRelatedEntities)
	if err != nil {
		logger.Warningf("Bulk upsert of %d entities for blueprint %s failed, falling back to single upserts: %v", len(batch), blueprint, err)
		return a.upsertIndividually(ctx, batch)
	}

	failed := make(map[string]string, len(resp.Errors))
	for _, bulkError := range resp.Errors {
		failed[bulkError.Identifier] = bulkError.Message
	}

	upserted := make([]port.Entity, 0, len(batch))
	var errs []error
	for _, entity := range batch {
		if message, ok := failed[entity.Identifier]; ok {
			errs = append(errs, fmt.Errorf("failed to upsert entity '%s' of blueprint '%s': %s", entity.Identifier, blueprint, message))
			continue
		}
		a.rememberHash(entity)
		upserted = append(upserted, entity)
	}
	return upserted, errs
}

func (a *Applier) upsertIndividually(ctx context.Context, batch []port.Entity) ([]port.Entity, []error) {
	upserted := make([]port.Entity, 0, len(batch))
	var errs []error
	for i := range batch {
		if _, err := a.portClient.CreateEntity(ctx, &batch[i], "", a.createMissingRelatedEntities); err != nil {
			errs = append(errs, fmt.Errorf("failed to upsert entity '%s' of blueprint '%s': %v", batch[i].Identifier, batch[i].Blueprint, err))
			continue
		}
		a.rememberHash(batch[i])
		upserted = append(upserted, batch[i])
	}
	return upserted, errs
}

// Delete removes the given entities. Failures are collected per entity.
func (a *Applier) Delete(ctx context.Context, entities []port.Entity, userAgent port.UserAgentType) []error {
	var errs []error
	deleted := 0
	for _, entity := range entities {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		if err := a.portClient.DeleteEntity(ctx, entity.Identifier, entity.Blueprint, a.deleteDependents); err != nil {
			errs = append(errs, fmt.Errorf("error deleting entity '%s' of blueprint '%s': %v", entity.Identifier, entity.Blueprint, err))
			continue
		}
		a.hashes.Delete(port.EntityIdentifierKey(&entity))
		deleted++
		logger.Infof("Successfully deleted entity '%s' of blueprint '%s'", entity.Identifier, entity.Blueprint)
	}

	metrics.AddObjectCount(metrics.MetricKindReconciliation, metrics.MetricDeletedResult, metrics.MetricPhaseDelete, float64(deleted))
	metrics.AddObjectCount(metrics.MetricKindReconciliation, metrics.MetricFailedResult, metrics.MetricPhaseDelete, float64(len(errs)))
	return errs
}

// ApplyDiff upserts the after-side entities that are new or changed relative
// to the before side, then deletes whatever the before side has that the
// after side does not. Identity is (blueprint, identifier); entities present
// and unchanged on both sides are left untouched.
func (a *Applier) ApplyDiff(ctx context.Context, diff port.EntityDiff, userAgent port.UserAgentType) error {
	_, upsertErrs := a.Upsert(ctx, port.NewOrChangedEntities(diff.Before, diff.After), userAgent)

	deleteErrs := a.DeleteDiff(ctx, diff, userAgent)

	if len(upsertErrs)+len(deleteErrs) > 0 {
		return fmt.Errorf("failed to apply diff: %d upsert errors, %d delete errors: %v", len(upsertErrs), len(deleteErrs), append(upsertErrs, deleteErrs...))
	}
	return nil
}

// DeleteDiff deletes the before-side entities that are absent from the after
// side. The full sync deletion phase calls it with the cycle's ownership
// snapshot as before and everything the cycle upserted as after.
func (a *Applier) DeleteDiff(ctx context.Context, diff port.EntityDiff, userAgent port.UserAgentType) []error {
	stale := port.StaleEntities(diff.Before, diff.After)
	if len(stale) == 0 {
		return nil
	}

	logger.Infof("Deleting %d stale entities", len(stale))
	return a.Delete(ctx, stale, userAgent)
}

// Search returns the entities this installation owns under the given user
// agent identity.
func (a *Applier) Search(ctx context.Context, userAgent port.UserAgentType) ([]port.Entity, error) {
	entities, err := a.portClient.SearchEntities(ctx, port.SearchBody{
		Rules: []port.Rule{
			{
				Property: "$datasource",
				Operator: "contains",
				Value:    fmt.Sprintf("%s/%s", DatasourcePrefix, userAgent),
			},
			{
				Property: "$datasource",
				Operator: "contains",
				Value:    fmt.Sprintf("(statekey/%s)", a.stateKey),
			},
		},
		Combinator: "and",
	})
	if err != nil {
		return nil, fmt.Errorf("error searching entities: %v", err)
	}
	return entities, nil
}

func (a *Applier) filterUnchanged(entities []port.Entity) (toWrite, unchanged []port.Entity) {
	if !a.updateEntityOnlyOnDiff {
		return entities, nil
	}

	toWrite = make([]port.Entity, 0, len(entities))
	for _, entity := range entities {
		hash, err := mapping.HashEntity(entity)
		if err != nil {
			toWrite = append(toWrite, entity)
			continue
		}
		if prev, ok := a.hashes.Load(port.EntityIdentifierKey(&entity)); ok && prev.(string) == hash {
			unchanged = append(unchanged, entity)
			continue
		}
		toWrite = append(toWrite, entity)
	}
	return toWrite, unchanged
}

func (a *Applier) rememberHash(entity port.Entity) {
	if !a.updateEntityOnlyOnDiff {
		return
	}
	if hash, err := mapping.HashEntity(entity); err == nil {
		a.hashes.Store(port.EntityIdentifierKey(&entity), hash)
	}
}

func groupByBlueprint(entities []port.Entity) map[string][]port.Entity {
	groups := make(map[string][]port.Entity)
	for _, entity := range entities {
		groups[entity.Blueprint] = append(groups[entity.Blueprint], entity)
	}
	return groups
}
