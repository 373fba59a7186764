package terrain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Faultbox/dsf-import/internal/config"
	"github.com/Faultbox/dsf-import/pkg/formats"
)

// ErrTileOrigin is returned when the tile lacks an integer sim/west or sim/south.
var ErrTileOrigin = errors.New("tile origin missing or not an integer")

// Origin is the south-west corner of a tile in whole degrees.
type Origin struct {
	West  int `yaml:"west"`
	South int `yaml:"south"`
}

// TileOrigin reads the origin from the sim/west and sim/south properties,
// falling back to bare west and south.
func TileOrigin(d *formats.DSF) (Origin, error) {
	west, err := intProperty(d, "sim/west", "west")
	if err != nil {
		return Origin{}, err
	}
	south, err := intProperty(d, "sim/south", "south")
	if err != nil {
		return Origin{}, err
	}
	return Origin{West: west, South: south}, nil
}

func intProperty(d *formats.DSF, key, fallback string) (int, error) {
	value, ok := d.Property(key)
	if !ok {
		if value, ok = d.Property(fallback); !ok {
			return 0, fmt.Errorf("%w: %s not set", ErrTileOrigin, key)
		}
		key = fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", ErrTileOrigin, key, value)
	}
	return n, nil
}

// Bounds is the import rectangle in absolute degrees, edges inclusive.
type Bounds struct {
	West  float64 `yaml:"west"`
	East  float64 `yaml:"east"`
	South float64 `yaml:"south"`
	North float64 `yaml:"north"`
}

// NewBounds converts configured bounds to absolute degrees. When west and
// south both lie in [0,1] all four values are offsets from the tile origin.
func NewBounds(cfg config.ImportConfig, originWest, originSouth int) Bounds {
	b := Bounds{
		West:  cfg.WestBound,
		East:  cfg.EastBound,
		South: cfg.SouthBound,
		North: cfg.NorthBound,
	}
	if 0 <= b.West && b.West <= 1 && 0 <= b.South && b.South <= 1 {
		b.West += float64(originWest)
		b.East += float64(originWest)
		b.South += float64(originSouth)
		b.North += float64(originSouth)
	}
	return b
}

// Contains reports whether lon, lat lies inside the bounds.
func (b Bounds) Contains(lon, lat float64) bool {
	return b.West <= lon && lon <= b.East && b.South <= lat && lat <= b.North
}

// Keeps reports whether at least one vertex of the triangle lies inside.
// Triangles crossing the edge are kept whole.
func (b Bounds) Keeps(d *formats.DSF, tria [3]formats.DSFVertexRef) bool {
	for _, ref := range tria {
		v := d.Vertex(ref)
		if len(v) >= 2 && b.Contains(v[0], v[1]) {
			return true
		}
	}
	return false
}

// Filter returns the triangles kept by the bounds, preserving order.
func (b Bounds) Filter(d *formats.DSF, trias [][3]formats.DSFVertexRef) [][3]formats.DSFVertexRef {
	kept := trias[:0:0]
	for _, t := range trias {
		if b.Keeps(d, t) {
			kept = append(kept, t)
		}
	}
	return kept
}
