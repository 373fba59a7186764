package formats

import (
	"crypto/md5"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"

	"github.com/Faultbox/dsf-import/pkg/archive"
	"github.com/Faultbox/dsf-import/pkg/encoding"
)

// DSF format errors.
var (
	ErrInvalidDSFCookie      = errors.New("invalid DSF cookie: expected 'XPLNEDSF'")
	ErrUnsupportedDSFVersion = errors.New("unsupported DSF version")
	ErrTruncatedDSFData      = errors.New("truncated DSF data")
	ErrDSFChecksum           = errors.New("DSF checksum mismatch")
	ErrInvalidDSFAtom        = errors.New("invalid DSF atom")
	ErrInvalidDSFPool        = errors.New("invalid DSF point pool")
	ErrInvalidDSFCommand     = errors.New("invalid DSF command")
	ErrInvalidDSFReference   = errors.New("DSF vertex reference out of range")
	ErrInvalidDSFRaster      = errors.New("invalid DSF raster")
)

const (
	dsfCookie      = "XPLNEDSF"
	dsfVersion     = 1
	dsfHeaderSize  = 12
	dsfFooterSize  = md5.Size
	dsfAtomHdrSize = 8
)

// Atom identifiers in reading order. On disk the four
// characters are stored as a little-endian integer, i.e. reversed.
const (
	atomHead      = "HEAD"
	atomProps     = "PROP"
	atomDefn      = "DEFN"
	atomTerrains  = "TERT"
	atomObjects   = "OBJT"
	atomPolygons  = "POLY"
	atomNetworks  = "NETW"
	atomRasterDef = "DEMN"
	atomGeod      = "GEOD"
	atomPool      = "POOL"
	atomScale     = "SCAL"
	atomPool32    = "PO32"
	atomScale32   = "SC32"
	atomDems      = "DEMS"
	atomDemInfo   = "DEMI"
	atomDemData   = "DEMD"
	atomCmds      = "CMDS"
)

// ElevationFromRaster is the vertex elevation value that tells the reader to
// sample the elevation raster instead.
const ElevationFromRaster = -32768.0

// WaterTerrain is the terrain definition name X-Plane uses for water.
const WaterTerrain = "terrain_Water"

// DSFProperty is a single key/value pair of the tile header.
type DSFProperty struct {
	Key   string
	Value string
}

// DSF represents a parsed X-Plane Distribution Scenery Format tile.
type DSF struct {
	Version    uint32
	Properties []DSFProperty

	// Definition tables, indexed by the command stream.
	Terrains    []string
	Objects     []string
	Polygons    []string
	Networks    []string
	RasterNames []string

	Pools   []DSFPool // 16-bit point pools (mesh and objects)
	Pools32 []DSFPool // 32-bit point pools (networks)
	Rasters []DSFRaster
	Patches []DSFPatch
	Stats   DSFCommandStats

	Checksum [md5.Size]byte
}

// DSFParseOptions controls optional validation steps.
type DSFParseOptions struct {
	VerifyChecksum bool
}

// Property returns the first value of a header property.
func (d *DSF) Property(key string) (string, bool) {
	for _, p := range d.Properties {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// Vertex returns the fields of a pooled vertex.
// Returns nil if the reference is out of range.
func (d *DSF) Vertex(ref DSFVertexRef) []float64 {
	if ref.Pool < 0 || ref.Pool >= len(d.Pools) {
		return nil
	}
	return d.Pools[ref.Pool].Vertex(ref.Index)
}

// Bounds returns the tile extent in degrees from the sim/* properties.
// Missing east/north default to one degree past west/south.
func (d *DSF) Bounds() (west, south, east, north float64, err error) {
	west, err = d.floatProperty("sim/west")
	if err != nil {
		return 0, 0, 0, 0, err
	}
	south, err = d.floatProperty("sim/south")
	if err != nil {
		return 0, 0, 0, 0, err
	}
	east, err = d.floatProperty("sim/east")
	if err != nil {
		east = west + 1
	}
	north, err = d.floatProperty("sim/north")
	if err != nil {
		north = south + 1
	}
	return west, south, east, north, nil
}

func (d *DSF) floatProperty(key string) (float64, error) {
	value, ok := d.Property(key)
	if !ok {
		return 0, fmt.Errorf("property %s not found", key)
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("property %s: %w", key, err)
	}
	return f, nil
}

// ParseDSF parses a DSF tile from raw bytes, verifying the MD5 footer.
func ParseDSF(data []byte) (*DSF, error) {
	return ParseDSFOptions(data, DSFParseOptions{VerifyChecksum: true})
}

// ParseDSFOptions parses a DSF tile from raw bytes.
func ParseDSFOptions(data []byte, opts DSFParseOptions) (*DSF, error) {
	if len(data) < dsfHeaderSize+dsfFooterSize {
		return nil, ErrTruncatedDSFData
	}

	if string(data[0:8]) != dsfCookie {
		return nil, ErrInvalidDSFCookie
	}

	version := binary.LittleEndian.Uint32(data[8:12])
	if version != dsfVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedDSFVersion, version)
	}

	body := data[:len(data)-dsfFooterSize]
	dsf := &DSF{Version: version}
	copy(dsf.Checksum[:], data[len(data)-dsfFooterSize:])

	if opts.VerifyChecksum {
		if sum := md5.Sum(body); sum != dsf.Checksum {
			return nil, fmt.Errorf("%w: footer %x, computed %x", ErrDSFChecksum, dsf.Checksum, sum)
		}
	}

	atoms, err := readAtoms(body[dsfHeaderSize:])
	if err != nil {
		return nil, err
	}

	// Commands reference pools and definitions, so they are decoded last.
	var commands []byte
	for _, a := range atoms {
		switch a.id {
		case atomHead:
			if err := dsf.parseHead(a.data); err != nil {
				return nil, fmt.Errorf("parsing HEAD: %w", err)
			}
		case atomDefn:
			if err := dsf.parseDefinitions(a.data); err != nil {
				return nil, fmt.Errorf("parsing DEFN: %w", err)
			}
		case atomGeod:
			if err := dsf.parseGeodata(a.data); err != nil {
				return nil, fmt.Errorf("parsing GEOD: %w", err)
			}
		case atomDems:
			if err := dsf.parseRasters(a.data); err != nil {
				return nil, fmt.Errorf("parsing DEMS: %w", err)
			}
		case atomCmds:
			commands = a.data
		}
	}

	if commands != nil {
		if err := dsf.parseCommands(commands); err != nil {
			return nil, fmt.Errorf("parsing CMDS: %w", err)
		}
	}

	return dsf, nil
}

// ParseDSFFile parses a DSF tile from disk. Compressed tiles are unpacked first.
func ParseDSFFile(path string, opts DSFParseOptions) (*DSF, error) {
	data, err := archive.ReadTile(path)
	if err != nil {
		return nil, fmt.Errorf("reading DSF file: %w", err)
	}
	return ParseDSFOptions(data, opts)
}

// atom is a raw DSF chunk.
type atom struct {
	id   string
	data []byte
}

// readAtoms splits a block into its atoms.
func readAtoms(data []byte) ([]atom, error) {
	var atoms []atom
	offset := 0
	for offset < len(data) {
		if len(data)-offset < dsfAtomHdrSize {
			return nil, fmt.Errorf("%w: atom header at offset %d", ErrTruncatedDSFData, offset)
		}
		id := atomID(data[offset : offset+4])
		size := int(binary.LittleEndian.Uint32(data[offset+4:]))
		if size < dsfAtomHdrSize || offset+size > len(data) {
			return nil, fmt.Errorf("%w: %s has size %d at offset %d", ErrInvalidDSFAtom, id, size, offset)
		}
		atoms = append(atoms, atom{id: id, data: data[offset+dsfAtomHdrSize : offset+size]})
		offset += size
	}
	return atoms, nil
}

func atomID(raw []byte) string {
	return string([]byte{raw[3], raw[2], raw[1], raw[0]})
}

func (d *DSF) parseHead(data []byte) error {
	atoms, err := readAtoms(data)
	if err != nil {
		return err
	}
	for _, a := range atoms {
		if a.id != atomProps {
			continue
		}
		strs := encoding.SplitNullStrings(a.data)
		for i := 0; i+1 < len(strs); i += 2 {
			d.Properties = append(d.Properties, DSFProperty{Key: strs[i], Value: strs[i+1]})
		}
	}
	return nil
}

func (d *DSF) parseDefinitions(data []byte) error {
	atoms, err := readAtoms(data)
	if err != nil {
		return err
	}
	for _, a := range atoms {
		strs := encoding.SplitNullStrings(a.data)
		switch a.id {
		case atomTerrains:
			d.Terrains = strs
		case atomObjects:
			d.Objects = strs
		case atomPolygons:
			d.Polygons = strs
		case atomNetworks:
			d.Networks = strs
		case atomRasterDef:
			d.RasterNames = strs
		}
	}
	return nil
}

func (d *DSF) parseGeodata(data []byte) error {
	atoms, err := readAtoms(data)
	if err != nil {
		return err
	}

	var pools, pools32 []rawPool
	var scales, scales32 [][]planeScale
	for _, a := range atoms {
		switch a.id {
		case atomPool:
			p, err := decodePool(a.data, 2)
			if err != nil {
				return fmt.Errorf("pool %d: %w", len(pools), err)
			}
			pools = append(pools, p)
		case atomPool32:
			p, err := decodePool(a.data, 4)
			if err != nil {
				return fmt.Errorf("pool32 %d: %w", len(pools32), err)
			}
			pools32 = append(pools32, p)
		case atomScale:
			scales = append(scales, decodeScales(a.data))
		case atomScale32:
			scales32 = append(scales32, decodeScales(a.data))
		}
	}

	if d.Pools, err = applyScales(pools, scales, 65535); err != nil {
		return err
	}
	if d.Pools32, err = applyScales(pools32, scales32, 4294967295); err != nil {
		return err
	}
	return nil
}
