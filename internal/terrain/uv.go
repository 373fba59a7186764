package terrain

import "github.com/go-gl/mathgl/mgl64"

// UVMode selects where the base and border UVs of a vertex come from.
type UVMode int

// UV modes in priority order.
const (
	// UVStored uses both stored pairs: base from fields 5,6 and border from 7,8.
	UVStored UVMode = iota
	// UVStoredBase uses the stored pair as base UV and synthesizes the border UV.
	UVStoredBase
	// UVStoredBorder uses the stored pair as border UV and synthesizes the base UV.
	UVStoredBorder
	// UVProjected synthesizes both from the planar position.
	UVProjected
)

// Vertex field counts carrying stored UVs.
const (
	fieldsOneUV  = 7
	fieldsTwoUVs = 9
	fieldsNoUV   = 5
)

func (m UVMode) String() string {
	switch m {
	case UVStored:
		return "stored"
	case UVStoredBase:
		return "stored-base"
	case UVStoredBorder:
		return "stored-border"
	case UVProjected:
		return "projected"
	default:
		return "unknown"
	}
}

// IsProjected decides whether a group's UVs are projected. Water is projected
// when the first vertex of the group's first triangle carries no stored UV;
// any other terrain when its definition has the PROJECTED marker.
func IsProjected(water bool, firstVertexFields int, projectedMarker bool) bool {
	if water {
		return firstVertexFields <= fieldsNoUV
	}
	return projectedMarker
}

// SelectUVMode picks the UV mode of a vertex from its field count.
func SelectUVMode(fields int, baseMesh, projected bool) UVMode {
	switch {
	case fields == fieldsTwoUVs:
		return UVStored
	case fields == fieldsOneUV && baseMesh && !projected:
		return UVStoredBase
	case fields == fieldsOneUV:
		return UVStoredBorder
	default:
		return UVProjected
	}
}

// UVs returns the base and border UV of a vertex with raw fields v at scene
// position x, y. Synthesized UVs are x/100, y/100.
func (m UVMode) UVs(v []float64, x, y float64) (base, border mgl64.Vec2) {
	synth := mgl64.Vec2{x / 100, y / 100}
	switch m {
	case UVStored:
		return mgl64.Vec2{v[5], v[6]}, mgl64.Vec2{v[7], v[8]}
	case UVStoredBase:
		return mgl64.Vec2{v[5], v[6]}, synth
	case UVStoredBorder:
		return synth, mgl64.Vec2{v[5], v[6]}
	default:
		return synth, synth
	}
}
