package scene

import (
	"github.com/Faultbox/dsf-import/internal/terrain"
)

// Summary is a compact, YAML-friendly description of a scene.
type Summary struct {
	Tile      string            `yaml:"tile"`
	ImportID  string            `yaml:"import_id"`
	Stats     terrain.Stats     `yaml:"stats"`
	Objects   []ObjectSummary   `yaml:"objects"`
	Materials []MaterialSummary `yaml:"materials"`
}

// ObjectSummary describes one object.
type ObjectSummary struct {
	Name       string   `yaml:"name"`
	Collection string   `yaml:"collection"`
	Z          float64  `yaml:"z"`
	Vertices   int      `yaml:"vertices"`
	Faces      int      `yaml:"faces"`
	UVLayers   []string `yaml:"uv_layers"`
	Materials  []string `yaml:"materials"`
}

// MaterialSummary describes one material.
type MaterialSummary struct {
	Name          string `yaml:"name"`
	Terrain       string `yaml:"terrain"`
	BaseTexture   string `yaml:"base_texture"`
	BorderTexture string `yaml:"border_texture,omitempty"`
	Blend         string `yaml:"blend"`
}

// Summary describes the scene for reports.
func (s *Scene) Summary() Summary {
	sum := Summary{
		Tile:     s.Tile,
		ImportID: s.ImportID,
		Stats:    s.Stats,
	}

	var walk func(c *Collection)
	walk = func(c *Collection) {
		for _, o := range c.Objects {
			uvs := make([]string, len(o.UVLayers))
			for i, l := range o.UVLayers {
				uvs[i] = l.Name
			}
			sum.Objects = append(sum.Objects, ObjectSummary{
				Name:       o.Name,
				Collection: c.Name,
				Z:          o.Location.Z(),
				Vertices:   len(o.Vertices),
				Faces:      len(o.Faces),
				UVLayers:   uvs,
				Materials:  o.Materials,
			})
		}
		for _, child := range c.Children {
			walk(child)
		}
	}
	walk(s.Root)

	for _, m := range s.Materials {
		ms := MaterialSummary{
			Name:        m.Name,
			Terrain:     m.Terrain,
			BaseTexture: m.BaseTexture.Path,
			Blend:       string(m.Blend),
		}
		if m.BorderTexture != nil {
			ms.BorderTexture = m.BorderTexture.Path
		}
		sum.Materials = append(sum.Materials, ms)
	}
	return sum
}
