package port

import (
	"fmt"
	"reflect"
)

// EntityIdentityMap indexes entities by their (blueprint, identifier) key.
// Later occurrences of a key win, matching upsert-last semantics.
func EntityIdentityMap(entities []Entity) map[string]*Entity {
	m := make(map[string]*Entity, len(entities))
	for i := range entities {
		m[EntityIdentifierKey(&entities[i])] = &entities[i]
	}
	return m
}

// NewOrChangedEntities returns the after-side entities that are new by
// identity, or whose content differs from the before-side entity sharing
// their identity. After-side ordering is preserved. Entities identical on
// both sides are left out so a diff apply never touches them.
func NewOrChangedEntities(before, after []Entity) []Entity {
	prior := EntityIdentityMap(before)

	var out []Entity
	for i := range after {
		prev, ok := prior[EntityIdentifierKey(&after[i])]
		if ok && entityContentEqual(prev, &after[i]) {
			continue
		}
		out = append(out, after[i])
	}
	return out
}

// StaleEntities returns the before-side entities whose identity is absent
// from the after side. Before-side ordering is preserved.
func StaleEntities(before, after []Entity) []Entity {
	keep := make(map[string]struct{}, len(after))
	for i := range after {
		keep[EntityIdentifierKey(&after[i])] = struct{}{}
	}

	var stale []Entity
	for i := range before {
		if _, ok := keep[EntityIdentifierKey(&before[i])]; !ok {
			stale = append(stale, before[i])
		}
	}
	return stale
}

// entityContentEqual compares the writable surface of two entities. Meta is
// catalog-owned and never part of the comparison.
func entityContentEqual(a, b *Entity) bool {
	return a.Title == b.Title &&
		a.Icon == b.Icon &&
		reflect.DeepEqual(a.Team, b.Team) &&
		reflect.DeepEqual(a.Properties, b.Properties) &&
		reflect.DeepEqual(a.Relations, b.Relations)
}

// EntityIdentifierKey builds the identity key used across diff calculations.
func EntityIdentifierKey(e *Entity) string {
	return fmt.Sprintf("%s;%s", e.Blueprint, e.Identifier)
}
