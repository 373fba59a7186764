package terrain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/dsf-import/internal/config"
	"github.com/Faultbox/dsf-import/pkg/formats"
)

// ErrMeshPool is returned when a patch references a pool with fewer than
// the five mesh fields (lon, lat, elevation, normal x, normal y).
var ErrMeshPool = errors.New("mesh vertex pool has too few planes")

const minMeshFields = 5

// Result is the output of one import. Nothing in it refers back to the importer.
type Result struct {
	ID          uuid.UUID
	Path        string
	Tile        *formats.DSF
	Origin      Origin
	Bounds      Bounds
	Definitions []Definition
	Mesh        *Mesh
	Materials   []Material
	Stats       Stats
}

// Importer converts DSF tiles into layered meshes.
type Importer struct {
	cfg    config.ImportConfig
	xplane config.XPlaneConfig
	log    *zap.Logger
}

// NewImporter creates an importer. A nil logger discards all output.
func NewImporter(cfg config.ImportConfig, xplane config.XPlaneConfig, log *zap.Logger) *Importer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Importer{cfg: cfg, xplane: xplane, log: log}
}

// Import reads the tile at path and builds its mesh. Tile read errors and a
// missing tile origin are fatal; terrain and texture problems are logged.
func (im *Importer) Import(path string) (*Result, error) {
	tile, err := formats.ParseDSFFile(path, formats.DSFParseOptions{VerifyChecksum: im.cfg.VerifyChecksum})
	if err != nil {
		return nil, fmt.Errorf("importing %s: %w", path, err)
	}
	return im.ImportTile(path, tile)
}

// ImportTile builds the mesh of an already decoded tile. path is used to
// locate the tile's local terrain definitions.
func (im *Importer) ImportTile(path string, tile *formats.DSF) (*Result, error) {
	start := time.Now()
	id := uuid.New()
	log := im.log.With(zap.String("import_id", id.String()), zap.String("tile", path))

	if im.cfg.Scaling <= 0 {
		return nil, fmt.Errorf("%w: scaling %v", config.ErrInvalidConfig, im.cfg.Scaling)
	}

	origin, err := TileOrigin(tile)
	if err != nil {
		return nil, fmt.Errorf("importing %s: %w", path, err)
	}
	if err := checkMeshPools(tile); err != nil {
		return nil, fmt.Errorf("importing %s: %w", path, err)
	}

	bounds := NewBounds(im.cfg, origin.West, origin.South)
	log.Info("importing tile",
		zap.Int("west", origin.West), zap.Int("south", origin.South),
		zap.Float64("bound_west", bounds.West), zap.Float64("bound_east", bounds.East),
		zap.Float64("bound_south", bounds.South), zap.Float64("bound_north", bounds.North))

	defs, err := LoadDefinitions(tile.Terrains, path, im.xplane.Root)
	for _, e := range multierr.Errors(err) {
		log.Warn("terrain definition unavailable", zap.Error(e))
	}
	log.Debug("loaded terrain definitions", zap.Int("count", len(defs)))

	groups := GroupPatches(tile.Patches)
	builder := NewBuilder(tile, origin, bounds, im.cfg.Scaling, NewLayerState(im.cfg.LayerPerOverlay), log)
	for _, g := range groups {
		def := definitionAt(defs, g.Key.Terrain)
		projected := IsProjected(def.IsWater(), firstVertexFields(tile, g), def.Projected())
		builder.AddGroup(g, projected)
	}

	mesh, stats := builder.Mesh()
	if stats.NonUnitNormals > 1 {
		log.Warn("non-unit vertex normals clamped", zap.Int("count", stats.NonUnitNormals))
	}
	if stats.DuplicateBase > 0 {
		log.Debug("duplicate base mesh triangles", zap.Int("count", stats.DuplicateBase))
	}

	materials := BuildMaterials(mesh.Keys, defs, im.xplane.Root, log)

	log.Info("tile imported",
		zap.Int("patches", stats.Patches),
		zap.Int("triangles", stats.Triangles),
		zap.Int("dropped", stats.Dropped),
		zap.Int("vertices", stats.Vertices),
		zap.Int("layers", stats.Layers),
		zap.Int("materials", stats.Materials),
		zap.Duration("elapsed", time.Since(start)))

	return &Result{
		ID:          id,
		Path:        path,
		Tile:        tile,
		Origin:      origin,
		Bounds:      bounds,
		Definitions: defs,
		Mesh:        mesh,
		Materials:   materials,
		Stats:       stats,
	}, nil
}

// checkMeshPools verifies that every patch vertex exists and that its pool
// carries the mesh fields.
func checkMeshPools(tile *formats.DSF) error {
	checked := make(map[int]bool)
	for _, p := range tile.Patches {
		for _, prim := range p.Primitives {
			for _, ref := range prim.Vertices {
				if tile.Vertex(ref) == nil {
					return fmt.Errorf("%w: pool %d index %d", formats.ErrInvalidDSFReference, ref.Pool, ref.Index)
				}
				if checked[ref.Pool] {
					continue
				}
				checked[ref.Pool] = true
				if planes := tile.Pools[ref.Pool].Planes; planes < minMeshFields {
					return fmt.Errorf("%w: pool %d has %d", ErrMeshPool, ref.Pool, planes)
				}
			}
		}
	}
	return nil
}
