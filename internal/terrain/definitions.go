package terrain

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/multierr"

	"github.com/Faultbox/dsf-import/pkg/encoding"
	"github.com/Faultbox/dsf-import/pkg/formats"
)

// Terrain definition errors. They are recorded per definition, never fatal.
var (
	ErrUnknownTerrainPath = errors.New("unknown terrain definition path")
	ErrNoInstallRoot      = errors.New("X-Plane installation root not configured")
	ErrNoSceneryPackage   = errors.New("tile is not inside an Earth nav data folder")
)

const (
	libraryPrefix     = "lib/g10/"
	localPrefix       = "terrain/"
	libraryTerrainDir = "Resources/default scenery/1000 world terrain"
	earthNavData      = "Earth nav data"
)

// Definition is the terrain definition behind one entry of the tile's
// terrain table. Exactly one of Def and Err is set.
type Definition struct {
	Ref  string // Reference as written in the tile
	Path string // Resolved .ter file, empty for water
	Def  *formats.TerrainDef
	Err  error
}

// IsWater reports whether the definition is the built-in water terrain.
func (d Definition) IsWater() bool {
	return d.Ref == formats.WaterTerrain
}

// Projected reports whether the definition carries the PROJECTED marker.
func (d Definition) Projected() bool {
	return d.Err == nil && d.Def.Projected()
}

// ResolveTerrainPath maps a terrain reference to its .ter file. Library
// references live under the installation root, local ones next to the
// tile's Earth nav data folder. Water has no file and resolves to "".
func ResolveTerrainPath(ref, tilePath, root string) (string, error) {
	ref = encoding.NormalizePath(ref)
	switch {
	case ref == formats.WaterTerrain:
		return "", nil

	case strings.HasPrefix(ref, libraryPrefix):
		if root == "" {
			return "", fmt.Errorf("%w: needed for %s", ErrNoInstallRoot, ref)
		}
		rel := strings.TrimPrefix(ref, libraryPrefix)
		return filepath.Join(root, filepath.FromSlash(libraryTerrainDir), filepath.FromSlash(rel)), nil

	case strings.HasPrefix(ref, localPrefix):
		tile := filepath.ToSlash(tilePath)
		i := strings.LastIndex(tile, earthNavData)
		if i < 0 {
			return "", fmt.Errorf("%w: %s", ErrNoSceneryPackage, tilePath)
		}
		return filepath.FromSlash(tile[:i] + ref), nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownTerrainPath, ref)
}

// LoadDefinition resolves and parses one terrain reference. Failures are
// recorded in the returned Definition.
func LoadDefinition(ref, tilePath, root string) Definition {
	d := Definition{Ref: ref}

	path, err := ResolveTerrainPath(ref, tilePath, root)
	if err != nil {
		d.Err = err
		return d
	}
	if path == "" {
		d.Def = &formats.TerrainDef{Values: map[string][]string{}}
		return d
	}

	d.Path = path
	if d.Def, err = formats.ParseTERFile(path); err != nil {
		d.Def = nil
		d.Err = err
	}
	return d
}

// LoadDefinitions loads every entry of a terrain table. The returned error
// combines all per-definition failures; the definitions are complete either way.
func LoadDefinitions(terrains []string, tilePath, root string) ([]Definition, error) {
	defs := make([]Definition, len(terrains))
	var errs error
	for i, ref := range terrains {
		defs[i] = LoadDefinition(ref, tilePath, root)
		if defs[i].Err != nil {
			errs = multierr.Append(errs, fmt.Errorf("terrain %d (%s): %w", i, ref, defs[i].Err))
		}
	}
	return defs, errs
}

// definitionAt returns the definition at index i, or an error record when the
// index is outside the terrain table.
func definitionAt(defs []Definition, i int) Definition {
	if i < 0 || i >= len(defs) {
		return Definition{Err: fmt.Errorf("%w: terrain index %d of %d", ErrUnknownTerrainPath, i, len(defs))}
	}
	return defs[i]
}
