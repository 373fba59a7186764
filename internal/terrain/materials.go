package terrain

import (
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/dsf-import/internal/texture"
	"github.com/Faultbox/dsf-import/pkg/encoding"
	"github.com/Faultbox/dsf-import/pkg/formats"
)

// Material settings shared by all terrain materials.
const (
	Specular      = 0.01
	BaseUVLayer   = "baseUV"
	BorderUVLayer = "borderUV"
	waterTexture  = "Resources/bitmaps/world/water/any.png"
)

// BlendMode controls how a material's alpha is applied.
type BlendMode string

// Blend modes.
const (
	BlendOpaque BlendMode = "OPAQUE"
	BlendClip   BlendMode = "CLIP" // Alpha from the border texture
)

// Material describes the material of one LayerKey.
type Material struct {
	Name      string
	Key       LayerKey
	Terrain   string // Terrain reference from the tile
	Projected bool
	Overlay   bool
	Water     bool

	BaseTexture   texture.Ref
	BorderTexture *texture.Ref // Alpha mask, overlays only; read through BorderUV
	BorderUV      string
	Blend         BlendMode
	Specular      float64
}

// MaterialName builds the deterministic name
// {terrain}_{base name}_{near}_{far}, with _P for projected and _O for
// overlay terrain.
func MaterialName(key LayerKey, ref string, projected bool) string {
	ref = encoding.NormalizePath(ref)
	if i := strings.LastIndex(ref, "/"); i >= 0 {
		ref = ref[i+1:]
	}

	name := fmt.Sprintf("%d_%s_%s_%s", key.Terrain, ref, formatLOD(key.Near), formatLOD(key.Far))
	if projected {
		name += "_P"
	}
	if key.IsOverlay() {
		name += "_O"
	}
	return name
}

// formatLOD prints a LOD distance, keeping one decimal for whole numbers.
func formatLOD(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if v == math.Trunc(v) && !math.IsInf(v, 0) {
		s += ".0"
	}
	return s
}

// BuildMaterials returns one material per key, in key order. Texture
// problems are logged and replaced by the missing placeholder.
func BuildMaterials(keys []LayerKey, defs []Definition, root string, log *zap.Logger) []Material {
	if log == nil {
		log = zap.NewNop()
	}

	materials := make([]Material, 0, len(keys))
	for _, key := range keys {
		def := definitionAt(defs, key.Terrain)

		m := Material{
			Key:       key,
			Terrain:   def.Ref,
			Projected: def.Projected(),
			Overlay:   key.IsOverlay(),
			Water:     def.IsWater(),
			Blend:     BlendOpaque,
			Specular:  Specular,
		}
		m.Name = MaterialName(key, def.Ref, m.Projected)
		mlog := log.With(zap.String("material", m.Name))

		if m.Water {
			m.BaseTexture = waterTextureRef(root, mlog)
			materials = append(materials, m)
			continue
		}

		m.BaseTexture = definitionTexture(def, mlog, formats.TERBaseTex, formats.TERBaseTexNowrap)
		if m.Overlay {
			if def.Err == nil && def.Def.Has(formats.TERBorderTex) {
				border := definitionTexture(def, mlog, formats.TERBorderTex)
				m.BorderTexture = &border
				m.BorderUV = BorderUVLayer
				m.Blend = BlendClip
			} else {
				mlog.Warn("overlay without border texture")
			}
		}
		materials = append(materials, m)
	}
	return materials
}

func waterTextureRef(root string, log *zap.Logger) texture.Ref {
	if root == "" {
		log.Warn("no water texture without an X-Plane root")
		return texture.MissingRef()
	}
	ref, err := texture.Resolve(filepath.Join(root, filepath.FromSlash(waterTexture)))
	if err != nil {
		log.Warn("water texture unavailable", zap.Error(err))
	}
	return ref
}

// definitionTexture resolves the first value of the first present key.
// Relative paths are relative to the .ter file.
func definitionTexture(def Definition, log *zap.Logger, keys ...string) texture.Ref {
	if def.Err != nil {
		log.Warn("no texture for failed terrain definition", zap.String("terrain", def.Ref))
		return texture.MissingRef()
	}

	for _, key := range keys {
		value, ok := def.Def.First(key)
		if !ok {
			continue
		}
		path := filepath.FromSlash(encoding.NormalizePath(value))
		if !filepath.IsAbs(path) && def.Path != "" {
			path = filepath.Join(filepath.Dir(def.Path), path)
		}
		ref, err := texture.Resolve(path)
		if err != nil {
			log.Warn("texture unavailable", zap.String("key", key), zap.Error(err))
		}
		return ref
	}

	log.Warn("terrain definition has no texture", zap.Strings("keys", keys), zap.String("terrain", def.Ref))
	return texture.MissingRef()
}
