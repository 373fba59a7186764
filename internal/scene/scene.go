// Package scene converts an import result into host-independent scene objects.
//
// A Scene is fully built before it is handed to a Host, so a failed import
// never leaves a partial scene behind.
package scene

import (
	"strconv"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/dsf-import/internal/terrain"
)

// Scene naming.
const (
	RootCollection    = "XPDSF"
	OverlayCollection = "Overlays"
	BaseMeshName      = "Basemesh"
	overlayPrefix     = "Overlay_"
)

// LayerOffset is the vertical distance between two layers in scene units.
const LayerOffset = 0.01

// UVLayer is a named set of per-loop UVs, three per face.
type UVLayer struct {
	Name string
	UVs  []mgl64.Vec2
}

// Object is one mesh object, holding the faces of one layer.
type Object struct {
	Name     string
	Layer    int
	Location mgl64.Vec3

	Vertices []mgl64.Vec3
	Normals  []mgl64.Vec3 // Per vertex
	Faces    []terrain.Face
	UVLayers []UVLayer

	// Materials holds material names in slot order; MaterialIndex one slot per face.
	Materials     []string
	MaterialIndex []int
}

// UVLayer returns the UV layer with the given name, or nil.
func (o *Object) UVLayer(name string) *UVLayer {
	for i := range o.UVLayers {
		if o.UVLayers[i].Name == name {
			return &o.UVLayers[i]
		}
	}
	return nil
}

// Collection groups objects and child collections.
type Collection struct {
	Name     string
	Objects  []*Object
	Children []*Collection
}

// Scene is the staged output of one import.
type Scene struct {
	Tile      string
	ImportID  string
	Root      *Collection
	Materials []terrain.Material
	Stats     terrain.Stats
}

// Build stages the scene of an import result. The base mesh object uses the
// global vertex list; overlay objects keep only the vertices they use.
func Build(result *terrain.Result) *Scene {
	root := &Collection{Name: RootCollection}
	overlays := &Collection{Name: OverlayCollection}
	root.Children = append(root.Children, overlays)

	mesh := result.Mesh
	for index, layer := range mesh.Layers {
		obj := &Object{
			Layer:    index,
			Location: mgl64.Vec3{0, 0, float64(index) * LayerOffset},
		}

		if index == 0 {
			obj.Name = BaseMeshName
			obj.Vertices, obj.Normals = splitVertices(mesh.Vertices)
			obj.Faces = layer.Faces
			obj.UVLayers = []UVLayer{{Name: terrain.BaseUVLayer, UVs: layer.BaseUVs}}
			root.Objects = append(root.Objects, obj)
		} else {
			obj.Name = overlayPrefix + strconv.Itoa(index)
			var used []terrain.Vertex
			used, obj.Faces = prune(mesh.Vertices, layer.Faces)
			obj.Vertices, obj.Normals = splitVertices(used)
			obj.UVLayers = []UVLayer{
				{Name: terrain.BaseUVLayer, UVs: layer.BaseUVs},
				{Name: terrain.BorderUVLayer, UVs: layer.BorderUVs},
			}
			overlays.Objects = append(overlays.Objects, obj)
		}

		for _, m := range layer.Materials {
			obj.Materials = append(obj.Materials, result.Materials[m].Name)
		}
		obj.MaterialIndex = layer.MaterialIndex
	}

	return &Scene{
		Tile:      result.Path,
		ImportID:  result.ID.String(),
		Root:      root,
		Materials: result.Materials,
		Stats:     result.Stats,
	}
}

// Objects returns all objects, base mesh first.
func (s *Scene) Objects() []*Object {
	var out []*Object
	var walk func(c *Collection)
	walk = func(c *Collection) {
		out = append(out, c.Objects...)
		for _, child := range c.Children {
			walk(child)
		}
	}
	walk(s.Root)
	return out
}

// Object returns the object with the given name, or nil.
func (s *Scene) Object(name string) *Object {
	for _, o := range s.Objects() {
		if o.Name == name {
			return o
		}
	}
	return nil
}

// prune keeps the vertices referenced by faces, in order of first use, and
// reindexes the faces.
func prune(vertices []terrain.Vertex, faces []terrain.Face) ([]terrain.Vertex, []terrain.Face) {
	remap := make(map[int]int)
	var used []terrain.Vertex
	out := make([]terrain.Face, len(faces))
	for i, f := range faces {
		for j, v := range f {
			idx, ok := remap[v]
			if !ok {
				idx = len(used)
				remap[v] = idx
				used = append(used, vertices[v])
			}
			out[i][j] = idx
		}
	}
	return used, out
}

func splitVertices(vertices []terrain.Vertex) (positions, normals []mgl64.Vec3) {
	positions = make([]mgl64.Vec3, len(vertices))
	normals = make([]mgl64.Vec3, len(vertices))
	for i, v := range vertices {
		positions[i] = v.Position
		normals[i] = v.Normal
	}
	return positions, normals
}
