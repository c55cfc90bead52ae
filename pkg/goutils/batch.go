package goutils

import (
	"encoding/json"
	"math"

	"github.com/port-labs/port-sync-engine/pkg/port"
)

const (
	DefaultMaxBatchLength = 20
	DefaultMaxBatchSize   = 1024 * 1024 // 1MB
	SampleSize            = 10
	SizeMultiplier        = 1.5
)

// CalculateEntitiesBatchSize determines how many entities fit in one bulk
// request, based on the average serialized size of a sample.
func CalculateEntitiesBatchSize(entities []port.Entity) int {
	if len(entities) == 0 {
		return 1
	}

	sampleSize := min(SampleSize, len(entities))
	sampleEntities := entities[:sampleSize]

	var totalSize int64
	for _, entity := range sampleEntities {
		entityBytes, err := json.Marshal(entity)
		if err != nil {
			// Unserializable entities fail later with a real error; batch
			// them one at a time so the failure is attributable.
			return 1
		}
		totalSize += int64(len(entityBytes))
	}

	averageEntitySize := float64(totalSize) / float64(sampleSize)
	estimatedEntitySize := int(math.Ceil(averageEntitySize * SizeMultiplier))
	maxEntitiesPerBatch := min(
		DefaultMaxBatchLength,
		int(math.Floor(float64(DefaultMaxBatchSize)/float64(estimatedEntitySize))),
	)

	return max(maxEntitiesPerBatch, 1)
}
