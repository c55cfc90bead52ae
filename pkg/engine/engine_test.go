package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/port-labs/port-sync-engine/pkg/port"
)

// fakeApplier records every catalog call. Its diff operations run the real
// identity math so diff-driven tests exercise the same staleness rules as
// production.
type fakeApplier struct {
	mu sync.Mutex

	searchResult []port.Entity
	searchErr    error
	upsertErrFor map[string]string

	upserted        []port.Entity
	deleted         []port.Entity
	upsertCalls     int
	deleteDiffCalls int
	applyDiffCalls  int
}

func (f *fakeApplier) Upsert(_ context.Context, entities []port.Entity, _ port.UserAgentType) ([]port.Entity, []error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.upsertCalls++
	var ok []port.Entity
	var errs []error
	for _, entity := range entities {
		if message, bad := f.upsertErrFor[entity.Identifier]; bad {
			errs = append(errs, fmt.Errorf("upsert %s: %s", entity.Identifier, message))
			continue
		}
		f.upserted = append(f.upserted, entity)
		ok = append(ok, entity)
	}
	return ok, errs
}

func (f *fakeApplier) Delete(_ context.Context, entities []port.Entity, _ port.UserAgentType) []error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, entities...)
	return nil
}

func (f *fakeApplier) ApplyDiff(ctx context.Context, diff port.EntityDiff, userAgent port.UserAgentType) error {
	f.mu.Lock()
	f.applyDiffCalls++
	f.mu.Unlock()

	_, upsertErrs := f.Upsert(ctx, port.NewOrChangedEntities(diff.Before, diff.After), userAgent)
	deleteErrs := f.DeleteDiff(ctx, diff, userAgent)
	if len(upsertErrs)+len(deleteErrs) > 0 {
		return fmt.Errorf("apply diff: %d upsert errors, %d delete errors", len(upsertErrs), len(deleteErrs))
	}
	return nil
}

func (f *fakeApplier) DeleteDiff(ctx context.Context, diff port.EntityDiff, userAgent port.UserAgentType) []error {
	f.mu.Lock()
	f.deleteDiffCalls++
	f.mu.Unlock()
	return f.Delete(ctx, port.StaleEntities(diff.Before, diff.After), userAgent)
}

func (f *fakeApplier) Search(_ context.Context, _ port.UserAgentType) ([]port.Entity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.searchResult, f.searchErr
}

func (f *fakeApplier) upsertedIdentifiers() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.upserted))
	for i := range f.upserted {
		out[i] = f.upserted[i].Identifier
	}
	return out
}

func (f *fakeApplier) deletedKeys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.deleted))
	for i := range f.deleted {
		out[i] = port.EntityIdentifierKey(&f.deleted[i])
	}
	return out
}

// fakeMapper turns records of shape {"identifier": "..."} into entities. The
// blueprint comes from the entry's first mapping when set, else the kind, so
// multiple entries sharing a kind produce distinguishable outputs. A record
// carrying "fail": true maps to an error instead.
type fakeMapper struct{}

func (fakeMapper) MapRecords(_ context.Context, resource port.Resource, records []port.RawRecord) ([]port.Entity, []error) {
	blueprint := resource.Kind
	if mappings := resource.Port.Entity.Mappings; len(mappings) > 0 && mappings[0].Blueprint != "" {
		blueprint = mappings[0].Blueprint
	}

	var entities []port.Entity
	var errs []error
	for _, record := range records {
		if fail, _ := record["fail"].(bool); fail {
			errs = append(errs, fmt.Errorf("record refused to map"))
			continue
		}
		identifier, _ := record["identifier"].(string)
		entities = append(entities, port.Entity{Identifier: identifier, Blueprint: blueprint})
	}
	return entities, errs
}

type fakeConfig struct {
	resources []port.Resource
	err       error
}

func (f fakeConfig) GetResourceConfigs(context.Context) ([]port.Resource, error) {
	return f.resources, f.err
}

func resourceOfKind(kind string) port.Resource {
	return port.Resource{Kind: kind}
}

func resourceWithBlueprint(kind, blueprint string) port.Resource {
	return port.Resource{
		Kind: kind,
		Port: port.Port{Entity: port.EntityMappings{Mappings: []port.EntityMapping{{
			Identifier: ".identifier",
			Blueprint:  blueprint,
		}}}},
	}
}

func newTestEngine(applier *fakeApplier, resources ...port.Resource) *Engine {
	return New(applier, fakeMapper{}, fakeConfig{resources: resources})
}

func records(identifiers ...string) []port.RawRecord {
	out := make([]port.RawRecord, len(identifiers))
	for i, identifier := range identifiers {
		out[i] = port.RawRecord{"identifier": identifier}
	}
	return out
}

func staticListener(identifiers ...string) ResyncFn {
	return func(context.Context, string) ([]port.RawRecord, error) {
		return records(identifiers...), nil
	}
}

func failingListener(err error) ResyncFn {
	return func(context.Context, string) ([]port.RawRecord, error) {
		return nil, err
	}
}
