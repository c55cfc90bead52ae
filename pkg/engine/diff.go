package engine

import (
	"context"

	"github.com/port-labs/port-sync-engine/pkg/metrics"
	"github.com/port-labs/port-sync-engine/pkg/port"
)

// Every record set enters the catalog through this file: either as a plain
// register (an empty before side, the reconciliation fast path) or as a
// caller-scoped raw diff.

// mapResource runs one resource entry's mappings over a record set. Each
// record that fails to map becomes a MappingError; its siblings are
// unaffected and entity ordering follows record ordering.
func (e *Engine) mapResource(ctx context.Context, resource port.Resource, records []port.RawRecord) ([]port.Entity, []error) {
	entities, mapErrs := e.mapper.MapRecords(ctx, resource, records)

	var errs []error
	for _, err := range mapErrs {
		errs = append(errs, &MappingError{Kind: resource.Kind, Err: err})
	}

	metrics.AddObjectCount(resource.Kind, metrics.MetricTransformedResult, metrics.MetricPhaseTransform, float64(len(entities)))
	metrics.AddObjectCount(resource.Kind, metrics.MetricFailedResult, metrics.MetricPhaseTransform, float64(len(mapErrs)))
	return entities, errs
}

// computeDiff maps both sides of a raw diff for one resource entry. Order is
// preserved within each side. Entries sharing a kind are mapped independently
// by the caller and concatenated, never merged.
func (e *Engine) computeDiff(ctx context.Context, resource port.Resource, diff port.RawDiff) (port.EntityDiff, []error) {
	before, beforeErrs := e.mapResource(ctx, resource, diff.Before)
	after, afterErrs := e.mapResource(ctx, resource, diff.After)
	return port.EntityDiff{Before: before, After: after}, append(beforeErrs, afterErrs...)
}

// registerResourceBatch maps one batch and immediately upserts whatever
// mapped cleanly. This is the incremental commit used by both the fast path
// and producer drains, so partial progress survives a later failure.
func (e *Engine) registerResourceBatch(ctx context.Context, resource port.Resource, records []port.RawRecord, userAgent port.UserAgentType) ([]port.Entity, []error) {
	entities, errs := e.mapResource(ctx, resource, records)

	upserted, upsertErrs := e.applier.Upsert(ctx, entities, userAgent)
	for _, err := range upsertErrs {
		errs = append(errs, &ApplierError{Op: "upsert", Err: err})
	}
	return upserted, errs
}
