package terrain

import (
	"sort"

	"github.com/Faultbox/dsf-import/pkg/formats"
)

// Group is the set of patches sharing one LayerKey.
type Group struct {
	Key     LayerKey
	Patches []*formats.DSFPatch
}

// GroupPatches groups patches by LayerKey and returns the groups in
// ascending key order. Patch order inside a group is kept.
func GroupPatches(patches []formats.DSFPatch) []Group {
	index := make(map[LayerKey]int)
	var groups []Group
	for i := range patches {
		p := &patches[i]
		key := LayerKey{Flag: p.Flag, Terrain: p.Definition, Near: p.Near, Far: p.Far}
		gi, ok := index[key]
		if !ok {
			gi = len(groups)
			index[key] = gi
			groups = append(groups, Group{Key: key})
		}
		groups[gi].Patches = append(groups[gi].Patches, p)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Key.Less(groups[j].Key)
	})
	return groups
}

// LayerState assigns z-layers to triangles so that coincident triangles
// never share a layer. It carries the running layer counter of the
// per-overlay policy and the coincidence counts of the per-overlap policy
// across groups of one import.
type LayerState struct {
	perOverlay bool
	current    int
	counts     map[Face]int

	// DuplicateBase counts base-mesh triangles that repeat an earlier
	// base-mesh triangle. They stay on layer 0.
	DuplicateBase int
}

// NewLayerState returns the state for one import. With perOverlay set every
// overlay group gets a layer of its own; otherwise layers follow the number
// of coincident triangles.
func NewLayerState(perOverlay bool) *LayerState {
	return &LayerState{perOverlay: perOverlay, counts: make(map[Face]int)}
}

// BeginGroup must be called before the triangles of each group, in key order.
func (s *LayerState) BeginGroup(key LayerKey) {
	if !s.perOverlay {
		return
	}
	if key.IsBaseMesh() {
		s.current = 0
	} else {
		s.current++
	}
}

// Assign returns the layer of a triangle with the given output face.
func (s *LayerState) Assign(key LayerKey, face Face) int {
	if s.perOverlay {
		if key.IsBaseMesh() {
			return 0
		}
		return s.current
	}

	n := normalizeFace(face)
	count, seen := s.counts[n]
	if key.IsBaseMesh() {
		if seen {
			s.DuplicateBase++
		} else {
			s.counts[n] = 0
		}
		return 0
	}
	if !seen {
		s.counts[n] = 0
		return 0
	}
	count++
	s.counts[n] = count
	return count
}

// normalizeFace rotates the face so its smallest index comes first,
// keeping the winding.
func normalizeFace(f Face) Face {
	switch {
	case f[1] <= f[0] && f[1] <= f[2]:
		return Face{f[1], f[2], f[0]}
	case f[2] <= f[0] && f[2] <= f[1]:
		return Face{f[2], f[0], f[1]}
	default:
		return f
	}
}
