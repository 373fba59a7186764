package terrain

import (
	"github.com/Faultbox/dsf-import/pkg/formats"
)

// testTile returns an in-memory tile at origin 10/50.
func testTile(terrains []string, pools []formats.DSFPool, patches ...formats.DSFPatch) *formats.DSF {
	return &formats.DSF{
		Version: 1,
		Properties: []formats.DSFProperty{
			{Key: "sim/west", Value: "10"},
			{Key: "sim/south", Value: "50"},
			{Key: "sim/east", Value: "11"},
			{Key: "sim/north", Value: "51"},
		},
		Terrains: terrains,
		Pools:    pools,
		Patches:  patches,
	}
}

func testPool(vertices ...[]float64) formats.DSFPool {
	return formats.DSFPool{Planes: len(vertices[0]), Vertices: vertices}
}

// testPatch builds a triangle-list patch over pool 0 with LOD 0..-1.
func testPatch(flag uint8, definition int, indices ...int) formats.DSFPatch {
	refs := make([]formats.DSFVertexRef, len(indices))
	for i, idx := range indices {
		refs[i] = formats.DSFVertexRef{Pool: 0, Index: idx}
	}
	return formats.DSFPatch{
		Definition: definition,
		Flag:       flag,
		Near:       0,
		Far:        -1,
		Primitives: []formats.DSFPrimitive{{Kind: formats.PrimitiveTriangles, Vertices: refs}},
	}
}
