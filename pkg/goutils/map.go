package goutils

import "golang.org/x/exp/maps"

// MergeMaps merges left to right, later maps winning on key collisions.
func MergeMaps[V any](ms ...map[string]V) map[string]V {
	res := map[string]V{}
	for _, m := range ms {
		maps.Copy(res, m)
	}
	return res
}
