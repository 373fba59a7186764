package formats

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Raster sample encodings, stored in the low bits of DSFRaster.Flags.
const (
	RasterFloat        uint16 = 0
	RasterSigned       uint16 = 1
	RasterUnsigned     uint16 = 2
	rasterEncodingMask uint16 = 3
	rasterPostCentric  uint16 = 4
	rasterInfoSize            = 20
)

// DSFRaster is one raster layer of the DEMS atom, e.g. the elevation grid.
// Rows run from south to north, columns from west to east.
type DSFRaster struct {
	Name          string
	Version       uint8
	BytesPerPixel uint8
	Flags         uint16
	Width         int
	Height        int
	Scale         float32
	Offset        float32
	Data          []float64 // Scaled samples, Width*Height
}

// PostCentric reports whether samples sit on the tile edges (true) or in the
// centre of their pixel area (false).
func (r *DSFRaster) PostCentric() bool {
	return r.Flags&rasterPostCentric != 0
}

// At returns the sample at column x, row y, clamped to the raster.
func (r *DSFRaster) At(x, y int) float64 {
	x = clampi(x, 0, r.Width-1)
	y = clampi(y, 0, r.Height-1)
	return r.Data[y*r.Width+x]
}

// Sample bilinearly interpolates the raster at tile-relative coordinates
// fx, fy in [0,1].
func (r *DSFRaster) Sample(fx, fy float64) float64 {
	if r.Width == 0 || r.Height == 0 {
		return 0
	}

	var px, py float64
	if r.PostCentric() {
		px = fx * float64(r.Width-1)
		py = fy * float64(r.Height-1)
	} else {
		px = fx*float64(r.Width) - 0.5
		py = fy*float64(r.Height) - 0.5
	}
	px = clampf(px, 0, float64(r.Width-1))
	py = clampf(py, 0, float64(r.Height-1))

	cellX := int(px)
	cellY := int(py)
	fracX := px - float64(cellX)
	fracY := py - float64(cellY)

	// South edge: lerp between SW and SE, north edge between NW and NE
	south := r.At(cellX, cellY)*(1-fracX) + r.At(cellX+1, cellY)*fracX
	north := r.At(cellX, cellY+1)*(1-fracX) + r.At(cellX+1, cellY+1)*fracX
	return south*(1-fracY) + north*fracY
}

// ElevationRaster returns the raster named "elevation", or the first raster.
// Returns nil if the tile has no rasters.
func (d *DSF) ElevationRaster() *DSFRaster {
	if len(d.Rasters) == 0 {
		return nil
	}
	for i := range d.Rasters {
		if d.Rasters[i].Name == "elevation" {
			return &d.Rasters[i]
		}
	}
	return &d.Rasters[0]
}

// Elevation returns the elevation in meters of a vertex at lon x, lat y with
// the raw elevation field z. Unless z is ElevationFromRaster it is the
// elevation itself; otherwise the elevation raster is sampled. Without a
// raster or tile bounds the result is 0.
func (d *DSF) Elevation(x, y, z float64) float64 {
	if z != ElevationFromRaster {
		return z
	}
	raster := d.ElevationRaster()
	if raster == nil {
		return 0
	}
	west, south, east, north, err := d.Bounds()
	if err != nil || east <= west || north <= south {
		return 0
	}
	return raster.Sample((x-west)/(east-west), (y-south)/(north-south))
}

func (d *DSF) parseRasters(data []byte) error {
	atoms, err := readAtoms(data)
	if err != nil {
		return err
	}

	var info *DSFRaster
	for _, a := range atoms {
		switch a.id {
		case atomDemInfo:
			if len(a.data) < rasterInfoSize {
				return fmt.Errorf("%w: reading raster info", ErrTruncatedDSFData)
			}
			info = &DSFRaster{
				Version:       a.data[0],
				BytesPerPixel: a.data[1],
				Flags:         binary.LittleEndian.Uint16(a.data[2:]),
				Width:         int(binary.LittleEndian.Uint32(a.data[4:])),
				Height:        int(binary.LittleEndian.Uint32(a.data[8:])),
				Scale:         math.Float32frombits(binary.LittleEndian.Uint32(a.data[12:])),
				Offset:        math.Float32frombits(binary.LittleEndian.Uint32(a.data[16:])),
			}
		case atomDemData:
			if info == nil {
				return fmt.Errorf("%w: raster data without info", ErrInvalidDSFRaster)
			}
			if err := info.decode(a.data); err != nil {
				return fmt.Errorf("raster %d: %w", len(d.Rasters), err)
			}
			if idx := len(d.Rasters); idx < len(d.RasterNames) {
				info.Name = d.RasterNames[idx]
			}
			d.Rasters = append(d.Rasters, *info)
			info = nil
		}
	}
	return nil
}

// decode converts raw samples to scaled values: sample*scale + offset.
func (r *DSFRaster) decode(data []byte) error {
	bpp := int(r.BytesPerPixel)
	encoding := r.Flags & rasterEncodingMask
	switch {
	case encoding == RasterFloat && bpp == 4:
	case (encoding == RasterSigned || encoding == RasterUnsigned) && (bpp == 1 || bpp == 2 || bpp == 4):
	default:
		return fmt.Errorf("%w: %d bytes per pixel with encoding %d", ErrInvalidDSFRaster, bpp, encoding)
	}

	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("%w: dimensions %dx%d", ErrInvalidDSFRaster, r.Width, r.Height)
	}
	count := r.Width * r.Height
	if len(data) < count*bpp {
		return fmt.Errorf("%w: %d bytes for %dx%d samples", ErrTruncatedDSFData, len(data), r.Width, r.Height)
	}

	r.Data = make([]float64, count)
	for i := range r.Data {
		raw := data[i*bpp:]
		var v float64
		switch {
		case encoding == RasterFloat:
			v = float64(math.Float32frombits(binary.LittleEndian.Uint32(raw)))
		case encoding == RasterSigned && bpp == 1:
			v = float64(int8(raw[0]))
		case encoding == RasterSigned && bpp == 2:
			v = float64(int16(binary.LittleEndian.Uint16(raw)))
		case encoding == RasterSigned:
			v = float64(int32(binary.LittleEndian.Uint32(raw)))
		case bpp == 1:
			v = float64(raw[0])
		case bpp == 2:
			v = float64(binary.LittleEndian.Uint16(raw))
		default:
			v = float64(binary.LittleEndian.Uint32(raw))
		}
		r.Data[i] = v*float64(r.Scale) + float64(r.Offset)
	}
	return nil
}

func clampf(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func clampi(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
