package mapping

import (
	"encoding/json"
	"hash/fnv"
	"strconv"

	"github.com/port-labs/port-sync-engine/pkg/port"
)

// HashEntity returns a stable digest of an entity's mapped fields, used to
// skip upserts for entities that did not change between cycles.
func HashEntity(entity port.Entity) (string, error) {
	h := fnv.New64a()
	entityBytes, err := json.Marshal(entity)
	if err != nil {
		return "", err
	}
	if _, err = h.Write(entityBytes); err != nil {
		return "", err
	}
	return strconv.FormatUint(h.Sum64(), 10), nil
}

func HashAllEntities(entities []port.Entity) (string, error) {
	h := fnv.New64a()
	for _, entity := range entities {
		entityBytes, err := json.Marshal(entity)
		if err != nil {
			return "", err
		}
		if _, err = h.Write(entityBytes); err != nil {
			return "", err
		}
	}
	return strconv.FormatUint(h.Sum64(), 10), nil
}
