package mapping

import (
	"fmt"

	"github.com/port-labs/port-sync-engine/pkg/jq"
	"github.com/port-labs/port-sync-engine/pkg/logger"
	"github.com/port-labs/port-sync-engine/pkg/port"
)

// NewEntity evaluates one mapping against one raw record. Optional fields
// are only evaluated when their expression is present.
func NewEntity(obj interface{}, mapping port.EntityMapping) (*port.Entity, error) {
	var err error
	entity := &port.Entity{}

	entity.Identifier, err = jq.ParseString(mapping.Identifier, obj)
	if err != nil {
		logger.Errorw(fmt.Sprintf("error parsing identifier. Error: %s", err.Error()), "mapping", mapping.Identifier, "error", err)
		return nil, err
	}
	if mapping.Title != "" {
		entity.Title, err = jq.ParseString(mapping.Title, obj)
		if err != nil {
			logger.Errorw(fmt.Sprintf("error parsing title for entity %s. Error: %s", entity.Identifier, err.Error()), "mapping", mapping.Title, "entity", entity.Identifier, "error", err)
			return nil, err
		}
	}
	entity.Blueprint, err = jq.ParseString(mapping.Blueprint, obj)
	if err != nil {
		logger.Errorw(fmt.Sprintf("error parsing blueprint for entity %s. Error: %s", entity.Identifier, err.Error()), "mapping", mapping.Blueprint, "entity", entity.Identifier, "error", err)
		return nil, err
	}
	if mapping.Team != "" {
		entity.Team, err = jq.ParseInterface(mapping.Team, obj)
		if err != nil {
			logger.Errorw(fmt.Sprintf("error parsing team for entity %s. Error: %s", entity.Identifier, err.Error()), "mapping", mapping.Team, "entity", entity.Identifier, "error", err)
			return nil, err
		}
	}
	if mapping.Icon != "" {
		entity.Icon, err = jq.ParseString(mapping.Icon, obj)
		if err != nil {
			logger.Errorw(fmt.Sprintf("error parsing icon for entity %s. Error: %s", entity.Identifier, err.Error()), "mapping", mapping.Icon, "entity", entity.Identifier, "error", err)
			return nil, err
		}
	}
	entity.Properties, err = jq.ParseMapInterface(mapping.Properties, obj)
	if err != nil {
		logger.Errorw(fmt.Sprintf("error parsing properties for entity %s. Error: %s", entity.Identifier, err.Error()), "entity", entity.Identifier, "error", err)
		return nil, err
	}
	entity.Relations, err = jq.ParseMapRecursively(mapping.Relations, obj)
	if err != nil {
		logger.Errorw(fmt.Sprintf("error parsing relations for entity %s. Error: %s", entity.Identifier, err.Error()), "entity", entity.Identifier, "error", err)
		return nil, err
	}

	return entity, nil
}
