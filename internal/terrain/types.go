// Package terrain turns the terrain patches of a DSF tile into a layered mesh.
package terrain

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// LayerKey identifies a group of patches sharing flag, terrain and LOD range.
// It is the unit of material identity.
type LayerKey struct {
	Flag    uint8
	Terrain int // Index into the tile's terrain table
	Near    float64
	Far     float64
}

// Less orders keys by flag, terrain, near and far.
func (k LayerKey) Less(o LayerKey) bool {
	if k.Flag != o.Flag {
		return k.Flag < o.Flag
	}
	if k.Terrain != o.Terrain {
		return k.Terrain < o.Terrain
	}
	if k.Near != o.Near {
		return k.Near < o.Near
	}
	return k.Far < o.Far
}

// IsBaseMesh reports whether the key belongs to the physical base mesh.
func (k LayerKey) IsBaseMesh() bool {
	return k.Flag == 1
}

// IsOverlay reports whether the key belongs to an overlay.
func (k LayerKey) IsOverlay() bool {
	return k.Flag > 1
}

func (k LayerKey) String() string {
	return fmt.Sprintf("(%d, %d, %v, %v)", k.Flag, k.Terrain, k.Near, k.Far)
}

// Vertex is a deduplicated output vertex in scene units.
type Vertex struct {
	Position mgl64.Vec3
	Normal   mgl64.Vec3
}

// Face holds three vertex indices in output winding order.
type Face [3]int

// Layer holds the faces assigned to one z-layer. UVs are stored per face
// loop, three per face in face order.
type Layer struct {
	Faces     []Face
	BaseUVs   []mgl64.Vec2
	BorderUVs []mgl64.Vec2

	// Materials lists indices into Mesh.Keys in first-use order;
	// MaterialIndex holds one index into Materials per face.
	Materials     []int
	MaterialIndex []int
}

// Mesh is the complete layered output of one import.
type Mesh struct {
	Vertices []Vertex
	Layers   []Layer    // Layer 0 is the base mesh
	Keys     []LayerKey // Material keys in first-use order
}

// Stats summarizes an import.
type Stats struct {
	Patches        int `yaml:"patches"`
	Groups         int `yaml:"groups"`
	Triangles      int `yaml:"triangles"`
	Dropped        int `yaml:"dropped"`         // Outside the bounds
	Vertices       int `yaml:"vertices"`        // After deduplication
	VertexRefs     int `yaml:"vertex_refs"`     // Before deduplication
	DuplicateBase  int `yaml:"duplicate_base"`  // Base triangles repeating another base triangle
	NonUnitNormals int `yaml:"non_unit_normals"`
	Layers         int `yaml:"layers"`
	Materials      int `yaml:"materials"`
}
