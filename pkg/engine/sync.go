package engine

import (
	"context"
	"fmt"

	"github.com/port-labs/port-sync-engine/pkg/port"
)

// The entity-level API serves single-shot external triggers, typically a
// live event reporting one changed record, without the cost of a full cycle.

// Register upserts the given entities under the user agent identity.
func (e *Engine) Register(ctx context.Context, entities []port.Entity, userAgent port.UserAgentType) error {
	_, errs := e.applier.Upsert(ctx, entities, userAgent)
	return joinErrors("registering entities", errs)
}

// Unregister deletes the given entities.
func (e *Engine) Unregister(ctx context.Context, entities []port.Entity, userAgent port.UserAgentType) error {
	errs := e.applier.Delete(ctx, entities, userAgent)
	return joinErrors("unregistering entities", errs)
}

// UpdateDiff applies a caller-scoped diff: after-side entities that are new
// or changed are upserted, before-side entities missing from the after side
// are deleted, and entities identical on both sides are untouched. The
// caller owns the completeness of both sets.
func (e *Engine) UpdateDiff(ctx context.Context, before, after []port.Entity, userAgent port.UserAgentType) error {
	return e.applier.ApplyDiff(ctx, port.EntityDiff{Before: before, After: after}, userAgent)
}

// Sync upserts the given entities and then deletes every owned entity absent
// from them. Unlike the full cycle there is no deletion gate here: the
// caller asserts the given set is the complete inventory, so deletion runs
// even when some upserts failed. Failed upserts still count as present, only
// entities missing from the given set are deleted. Handle with care; a
// partial set deletes everything it omits.
func (e *Engine) Sync(ctx context.Context, entities []port.Entity, userAgent port.UserAgentType) error {
	current, err := e.applier.Search(ctx, userAgent)
	if err != nil {
		return &ApplierError{Op: "search", Err: err}
	}

	_, upsertErrs := e.applier.Upsert(ctx, entities, userAgent)
	deleteErrs := e.applier.DeleteDiff(ctx, port.EntityDiff{Before: current, After: entities}, userAgent)
	return joinErrors("syncing entities", append(upsertErrs, deleteErrs...))
}

// RegisterRaw maps raw records through every resource entry configured for
// the kind and upserts the results. Entries sharing the kind each produce
// their own entities; the outputs are concatenated, never merged. Mapping
// failures are reported through the returned error while healthy siblings
// still go through.
func (e *Engine) RegisterRaw(ctx context.Context, kind string, records []port.RawRecord, userAgent port.UserAgentType) ([]port.Entity, error) {
	resources, err := e.resourcesForKind(ctx, kind)
	if err != nil {
		return nil, err
	}

	var entities []port.Entity
	var errs []error
	for _, resource := range resources {
		upserted, resourceErrs := e.registerResourceBatch(ctx, resource, records, userAgent)
		entities = append(entities, upserted...)
		errs = append(errs, resourceErrs...)
	}
	return entities, joinErrors(fmt.Sprintf("registering raw records for kind %q", kind), errs)
}

// MapRaw maps raw records through every resource entry configured for the
// kind without writing anything. Callers that need to inspect the mapped
// identities first, like an ownership check before a live delete, use this
// and then decide what to pass on.
func (e *Engine) MapRaw(ctx context.Context, kind string, records []port.RawRecord) ([]port.Entity, error) {
	resources, err := e.resourcesForKind(ctx, kind)
	if err != nil {
		return nil, err
	}

	var entities []port.Entity
	var errs []error
	for _, resource := range resources {
		mapped, mapErrs := e.mapResource(ctx, resource, records)
		entities = append(entities, mapped...)
		errs = append(errs, mapErrs...)
	}
	return entities, joinErrors(fmt.Sprintf("mapping raw records for kind %q", kind), errs)
}

// UnregisterRaw maps raw records for the kind and deletes the mapped
// entities. Records that fail to map are reported and skipped; they cannot
// be deleted without an identity.
func (e *Engine) UnregisterRaw(ctx context.Context, kind string, records []port.RawRecord, userAgent port.UserAgentType) error {
	resources, err := e.resourcesForKind(ctx, kind)
	if err != nil {
		return err
	}

	var entities []port.Entity
	var errs []error
	for _, resource := range resources {
		mapped, mapErrs := e.mapResource(ctx, resource, records)
		entities = append(entities, mapped...)
		errs = append(errs, mapErrs...)
	}
	errs = append(errs, e.applier.Delete(ctx, entities, userAgent)...)
	return joinErrors(fmt.Sprintf("unregistering raw records for kind %q", kind), errs)
}

// UpdateRawDiff maps both sides of a raw diff through every resource entry
// configured for the kind and applies the resulting entity diff. Any mapping
// failure aborts before anything is written: an incompletely mapped after
// side would otherwise delete entities that merely failed to map.
func (e *Engine) UpdateRawDiff(ctx context.Context, kind string, diff port.RawDiff, userAgent port.UserAgentType) error {
	resources, err := e.resourcesForKind(ctx, kind)
	if err != nil {
		return err
	}

	var before, after []port.Entity
	var errs []error
	for _, resource := range resources {
		entityDiff, diffErrs := e.computeDiff(ctx, resource, diff)
		errs = append(errs, diffErrs...)
		before = append(before, entityDiff.Before...)
		after = append(after, entityDiff.After...)
	}
	if len(errs) > 0 {
		return joinErrors(fmt.Sprintf("mapping raw diff for kind %q", kind), errs)
	}

	return e.applier.ApplyDiff(ctx, port.EntityDiff{Before: before, After: after}, userAgent)
}

// resourcesForKind returns the resource entries configured for a kind, in
// configuration order.
func (e *Engine) resourcesForKind(ctx context.Context, kind string) ([]port.Resource, error) {
	configs, err := e.config.GetResourceConfigs(ctx)
	if err != nil {
		return nil, &ApplierError{Op: "configuration fetch", Err: err}
	}

	var matched []port.Resource
	for _, resource := range configs {
		if resource.Kind == kind {
			matched = append(matched, resource)
		}
	}
	if len(matched) == 0 {
		return nil, fmt.Errorf("no resource configuration matches kind %q", kind)
	}
	return matched, nil
}

func joinErrors(op string, errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%s: %d errors, first error: %v", op, len(errs), errs[0])
}
