package formats

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Plane encodings of a point pool.
const (
	poolEncodingRaw            = 0
	poolEncodingDifferenced    = 1
	poolEncodingRLE            = 2
	poolEncodingRLEDifferenced = 3
	poolRLERepeatFlag          = 0x80
	poolRLECountMask           = 0x7F
	poolHeaderSize             = 5
	poolScaleEntrySize         = 8
	maxPoolPlanes              = 32
)

// DSFPool is a decoded point pool. Every vertex has the same number of
// planes, e.g. lon, lat, elevation, normal x, normal y and optional UVs for
// the mesh pools.
type DSFPool struct {
	Planes   int
	Vertices [][]float64
}

// Len returns the number of vertices in the pool.
func (p *DSFPool) Len() int {
	return len(p.Vertices)
}

// Vertex returns the vertex at index, or nil if out of range.
func (p *DSFPool) Vertex(index int) []float64 {
	if index < 0 || index >= len(p.Vertices) {
		return nil
	}
	return p.Vertices[index]
}

// rawPool holds the undecoded integer planes of a POOL or PO32 atom.
type rawPool struct {
	count  int
	planes [][]uint32
}

type planeScale struct {
	scale  float32
	offset float32
}

// decodePool decodes the planar, optionally run-length and delta encoded
// integers of a pool atom. width is 2 for POOL and 4 for PO32.
func decodePool(data []byte, width int) (rawPool, error) {
	if len(data) < poolHeaderSize {
		return rawPool{}, fmt.Errorf("%w: reading pool header", ErrTruncatedDSFData)
	}

	count := int(binary.LittleEndian.Uint32(data[0:4]))
	planeCount := int(data[4])
	if planeCount == 0 || planeCount > maxPoolPlanes {
		return rawPool{}, fmt.Errorf("%w: %d planes", ErrInvalidDSFPool, planeCount)
	}
	// Every value costs at least width bytes unless run-length encoded, where a
	// run of up to 127 values costs one byte plus one value.
	if count > (len(data)/(width+1)+1)*poolRLECountMask {
		return rawPool{}, fmt.Errorf("%w: %d vertices in %d bytes", ErrInvalidDSFPool, count, len(data))
	}

	pool := rawPool{count: count, planes: make([][]uint32, planeCount)}
	r := &poolReader{data: data, offset: poolHeaderSize, width: width}

	for plane := 0; plane < planeCount; plane++ {
		encoding, err := r.byte()
		if err != nil {
			return rawPool{}, fmt.Errorf("%w: reading plane %d encoding", ErrTruncatedDSFData, plane)
		}

		values := make([]uint32, count)
		switch encoding {
		case poolEncodingRaw, poolEncodingDifferenced:
			for i := range values {
				if values[i], err = r.value(); err != nil {
					return rawPool{}, fmt.Errorf("%w: plane %d value %d", ErrTruncatedDSFData, plane, i)
				}
			}
		case poolEncodingRLE, poolEncodingRLEDifferenced:
			if err := r.runs(values); err != nil {
				return rawPool{}, fmt.Errorf("plane %d: %w", plane, err)
			}
		default:
			return rawPool{}, fmt.Errorf("%w: plane %d has encoding %d", ErrInvalidDSFPool, plane, encoding)
		}

		if encoding == poolEncodingDifferenced || encoding == poolEncodingRLEDifferenced {
			undifference(values, width)
		}
		pool.planes[plane] = values
	}

	return pool, nil
}

// undifference turns deltas into absolute values with wrap-around at the
// integer width.
func undifference(values []uint32, width int) {
	mask := uint32(math.MaxUint32)
	if width == 2 {
		mask = math.MaxUint16
	}
	var last uint32
	for i, v := range values {
		last = (last + v) & mask
		values[i] = last
	}
}

func decodeScales(data []byte) []planeScale {
	scales := make([]planeScale, len(data)/poolScaleEntrySize)
	for i := range scales {
		off := i * poolScaleEntrySize
		scales[i] = planeScale{
			scale:  math.Float32frombits(binary.LittleEndian.Uint32(data[off:])),
			offset: math.Float32frombits(binary.LittleEndian.Uint32(data[off+4:])),
		}
	}
	return scales
}

// applyScales converts integer planes to floats: value = raw*scale/maxValue + offset.
// A zero scale leaves the integer unscaled apart from the offset.
func applyScales(pools []rawPool, scales [][]planeScale, maxValue float64) ([]DSFPool, error) {
	if len(scales) < len(pools) {
		return nil, fmt.Errorf("%w: %d pools but %d scale atoms", ErrInvalidDSFPool, len(pools), len(scales))
	}

	result := make([]DSFPool, len(pools))
	for i, raw := range pools {
		planes := len(raw.planes)
		if len(scales[i]) < planes {
			return nil, fmt.Errorf("%w: pool %d has %d planes but %d scales", ErrInvalidDSFPool, i, planes, len(scales[i]))
		}

		// One backing array keeps allocations per pool constant.
		backing := make([]float64, raw.count*planes)
		vertices := make([][]float64, raw.count)
		for v := 0; v < raw.count; v++ {
			vertices[v] = backing[v*planes : (v+1)*planes : (v+1)*planes]
		}

		for p := 0; p < planes; p++ {
			s := scales[i][p]
			for v, value := range raw.planes[p] {
				if s.scale == 0 {
					vertices[v][p] = float64(value) + float64(s.offset)
				} else {
					vertices[v][p] = float64(value)*float64(s.scale)/maxValue + float64(s.offset)
				}
			}
		}

		result[i] = DSFPool{Planes: planes, Vertices: vertices}
	}
	return result, nil
}

// poolReader reads little-endian integers of a fixed width.
type poolReader struct {
	data   []byte
	offset int
	width  int
}

func (r *poolReader) byte() (uint8, error) {
	if r.offset >= len(r.data) {
		return 0, ErrTruncatedDSFData
	}
	b := r.data[r.offset]
	r.offset++
	return b, nil
}

func (r *poolReader) value() (uint32, error) {
	if r.offset+r.width > len(r.data) {
		return 0, ErrTruncatedDSFData
	}
	var v uint32
	if r.width == 2 {
		v = uint32(binary.LittleEndian.Uint16(r.data[r.offset:]))
	} else {
		v = binary.LittleEndian.Uint32(r.data[r.offset:])
	}
	r.offset += r.width
	return v, nil
}

// runs fills values from run-length encoded data. A run byte with the high
// bit set repeats the following value; otherwise it counts literal values.
func (r *poolReader) runs(values []uint32) error {
	i := 0
	for i < len(values) {
		code, err := r.byte()
		if err != nil {
			return fmt.Errorf("%w: reading run at value %d", ErrTruncatedDSFData, i)
		}
		n := int(code & poolRLECountMask)
		if i+n > len(values) {
			return fmt.Errorf("%w: run of %d overflows %d values", ErrInvalidDSFPool, n, len(values))
		}

		if code&poolRLERepeatFlag != 0 {
			v, err := r.value()
			if err != nil {
				return fmt.Errorf("%w: reading repeated value", ErrTruncatedDSFData)
			}
			for j := 0; j < n; j++ {
				values[i+j] = v
			}
		} else {
			for j := 0; j < n; j++ {
				if values[i+j], err = r.value(); err != nil {
					return fmt.Errorf("%w: reading literal value", ErrTruncatedDSFData)
				}
			}
		}
		i += n
	}
	return nil
}
