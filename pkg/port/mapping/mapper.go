package mapping

import (
	"context"
	"fmt"

	"github.com/port-labs/port-sync-engine/pkg/jq"
	"github.com/port-labs/port-sync-engine/pkg/logger"
	"github.com/port-labs/port-sync-engine/pkg/port"
)

// Mapper turns raw records into entities according to a resource's mapping
// rules.
type Mapper struct{}

func NewMapper() *Mapper {
	return &Mapper{}
}

// MapRecords maps every record through every mapping of the resource. A
// record that fails the selector or a mapping contributes an error and is
// skipped; the remaining records still produce entities. Entity order
// follows record order.
func (m *Mapper) MapRecords(ctx context.Context, resource port.Resource, records []port.RawRecord) ([]port.Entity, []error) {
	entities := make([]port.Entity, 0, len(records)*len(resource.Port.Entity.Mappings))
	var errs []error

	for _, record := range records {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			return entities, errs
		}

		recordEntities, err := m.recordEntities(map[string]interface{}(record), resource)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		entities = append(entities, recordEntities...)
	}

	return entities, errs
}

func (m *Mapper) recordEntities(obj map[string]interface{}, resource port.Resource) ([]port.Entity, error) {
	var structuredObj interface{} = obj

	var selectorResult = true
	var err error
	if resource.Selector.Query != "" {
		selectorResult, err = jq.ParseBool(resource.Selector.Query, structuredObj)
		if err != nil {
			return nil, fmt.Errorf("invalid selector query '%s': %v", resource.Selector.Query, err)
		}
	}
	if !selectorResult {
		logger.Debugw("Record filtered out by selector", "kind", resource.Kind, "selector", resource.Selector.Query)
		return nil, nil
	}

	entities := make([]port.Entity, 0, len(resource.Port.Entity.Mappings))
	for _, entityMapping := range resource.Port.Entity.Mappings {
		portEntity, err := NewEntity(structuredObj, entityMapping)
		if err != nil {
			return nil, fmt.Errorf("invalid entity mapping '%#v': %v", entityMapping, err)
		}
		entities = append(entities, *portEntity)
	}

	return entities, nil
}
