package terrain

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/Faultbox/dsf-import/pkg/formats"
)

// Builder accumulates the layered mesh of one import. Groups must be added
// in ascending key order.
type Builder struct {
	tile   *formats.DSF
	origin Origin
	bounds Bounds
	scale  float64
	layers *LayerState
	log    *zap.Logger

	mesh   Mesh
	coords map[[2]float64]int // Rounded planar position to vertex index
	stats  Stats
}

// NewBuilder returns a builder for one tile. scale is in scene units per degree.
func NewBuilder(tile *formats.DSF, origin Origin, bounds Bounds, scale float64, layers *LayerState, log *zap.Logger) *Builder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Builder{
		tile:   tile,
		origin: origin,
		bounds: bounds,
		scale:  scale,
		layers: layers,
		log:    log,
		mesh:   Mesh{Layers: make([]Layer, 1)},
		coords: make(map[[2]float64]int),
	}
}

// AddGroup adds every triangle of the group that the bounds keep.
func (b *Builder) AddGroup(g Group, projected bool) {
	b.layers.BeginGroup(g.Key)
	b.stats.Groups++

	for _, p := range g.Patches {
		b.stats.Patches++
		trias := p.Triangles()
		kept := b.bounds.Filter(b.tile, trias)
		b.stats.Dropped += len(trias) - len(kept)
		for _, t := range kept {
			b.addTriangle(g.Key, t, projected)
		}
	}
}

func (b *Builder) addTriangle(key LayerKey, t [3]formats.DSFVertexRef, projected bool) {
	var face Face
	var base, border [3]mgl64.Vec2

	for i, ref := range t {
		v := b.tile.Vertex(ref)
		x := roundTo((v[0]-float64(b.origin.West))*b.scale, 3)
		y := roundTo((v[1]-float64(b.origin.South))*b.scale, 3)

		// Output winding is the reverse of the source winding
		j := 2 - i
		face[j] = b.vertex(x, y, v)
		mode := SelectUVMode(len(v), key.IsBaseMesh(), projected)
		base[j], border[j] = mode.UVs(v, x, y)
		b.stats.VertexRefs++
	}

	index := b.layers.Assign(key, face)
	for index >= len(b.mesh.Layers) {
		b.mesh.Layers = append(b.mesh.Layers, Layer{})
	}
	layer := &b.mesh.Layers[index]

	layer.Faces = append(layer.Faces, face)
	layer.BaseUVs = append(layer.BaseUVs, base[:]...)
	layer.BorderUVs = append(layer.BorderUVs, border[:]...)

	// Keys arrive sorted, so a key is new exactly when it differs from the tail
	if n := len(b.mesh.Keys); n == 0 || b.mesh.Keys[n-1] != key {
		b.mesh.Keys = append(b.mesh.Keys, key)
	}
	material := len(b.mesh.Keys) - 1
	if n := len(layer.Materials); n == 0 || layer.Materials[n-1] != material {
		layer.Materials = append(layer.Materials, material)
	}
	layer.MaterialIndex = append(layer.MaterialIndex, len(layer.Materials)-1)

	b.stats.Triangles++
}

// vertex returns the index of the output vertex at x, y, creating it on
// first use. Later vertices at the same rounded position reuse it even if
// their elevation or normal differ.
func (b *Builder) vertex(x, y float64, v []float64) int {
	key := [2]float64{x, y}
	if idx, ok := b.coords[key]; ok {
		return idx
	}

	z := roundTo(b.tile.Elevation(v[0], v[1], v[2])/(100000/b.scale), 3)

	nx := roundTo(v[3], 4)
	ny := roundTo(v[4], 4)
	sq := nx*nx + ny*ny
	if sq > 1 {
		if b.stats.NonUnitNormals == 0 {
			b.log.Warn("non-unit vertex normal, z component clamped to 0",
				zap.Float64("nx", nx), zap.Float64("ny", ny),
				zap.Float64("lon", v[0]), zap.Float64("lat", v[1]))
		}
		b.stats.NonUnitNormals++
		sq = 1
	}

	idx := len(b.mesh.Vertices)
	b.coords[key] = idx
	b.mesh.Vertices = append(b.mesh.Vertices, Vertex{
		Position: mgl64.Vec3{x, y, z},
		Normal:   mgl64.Vec3{nx, ny, roundTo(math.Sqrt(1-sq), 4)},
	})
	return idx
}

// Mesh returns the accumulated mesh and its statistics.
func (b *Builder) Mesh() (*Mesh, Stats) {
	stats := b.stats
	stats.Vertices = len(b.mesh.Vertices)
	stats.DuplicateBase = b.layers.DuplicateBase
	stats.Layers = len(b.mesh.Layers)
	stats.Materials = len(b.mesh.Keys)
	return &b.mesh, stats
}

// firstVertexFields returns the field count of the first vertex of the
// group's first triangle, or 0 for an empty group.
func firstVertexFields(tile *formats.DSF, g Group) int {
	for _, p := range g.Patches {
		if trias := p.Triangles(); len(trias) > 0 {
			return len(tile.Vertex(trias[0][0]))
		}
	}
	return 0
}

func roundTo(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}
