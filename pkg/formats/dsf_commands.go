package formats

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Command stream opcodes.
const (
	cmdPoolSelect           = 1
	cmdJunctionOffset       = 2
	cmdSetDefinition8       = 3
	cmdSetDefinition16      = 4
	cmdSetDefinition32      = 5
	cmdSetRoadSubtype       = 6
	cmdObject               = 7
	cmdObjectRange          = 8
	cmdNetworkChain         = 9
	cmdNetworkChainRange    = 10
	cmdNetworkChain32       = 11
	cmdPolygon              = 12
	cmdPolygonRange         = 13
	cmdNestedPolygon        = 14
	cmdNestedPolygonRange   = 15
	cmdTerrainPatch         = 16
	cmdTerrainPatchFlags    = 17
	cmdTerrainPatchFlagsLOD = 18
	cmdPatchTriangle        = 23
	cmdPatchTriangleCross   = 24
	cmdPatchTriangleRange   = 25
	cmdPatchTriangleStrip   = 26
	cmdPatchStripCross      = 27
	cmdPatchStripRange      = 28
	cmdPatchTriangleFan     = 29
	cmdPatchFanCross        = 30
	cmdPatchFanRange        = 31
	cmdComment8             = 32
	cmdComment16            = 33
	cmdComment32            = 34
)

// Patch flags.
const (
	PatchPhysical uint8 = 1 // Part of the physical base mesh
	PatchOverlay  uint8 = 2 // Drawn on top of the base mesh
)

// DSFPrimitiveKind selects how a primitive's vertex list forms triangles.
type DSFPrimitiveKind uint8

// Primitive kinds.
const (
	PrimitiveTriangles DSFPrimitiveKind = iota
	PrimitiveStrip
	PrimitiveFan
)

// String returns a human-readable primitive name.
func (k DSFPrimitiveKind) String() string {
	switch k {
	case PrimitiveTriangles:
		return "Triangles"
	case PrimitiveStrip:
		return "Strip"
	case PrimitiveFan:
		return "Fan"
	default:
		return fmt.Sprintf("Unknown(%d)", k)
	}
}

// DSFVertexRef addresses a vertex as (pool, index).
type DSFVertexRef struct {
	Pool  int
	Index int
}

// DSFPrimitive is one triangle list, strip or fan of a patch.
type DSFPrimitive struct {
	Kind     DSFPrimitiveKind
	Vertices []DSFVertexRef
}

// DSFPatch is a piece of terrain mesh sharing one terrain definition, one
// set of flags and one LOD range.
type DSFPatch struct {
	Definition int // Index into DSF.Terrains
	Flag       uint8
	Near       float64
	Far        float64
	Primitives []DSFPrimitive
}

// IsPhysical reports whether the patch belongs to the base mesh.
func (p *DSFPatch) IsPhysical() bool {
	return p.Flag == PatchPhysical
}

// IsOverlay reports whether the patch is drawn on top of the base mesh.
func (p *DSFPatch) IsOverlay() bool {
	return p.Flag > PatchPhysical
}

// Triangles expands all primitives into triangles in source winding order.
func (p *DSFPatch) Triangles() [][3]DSFVertexRef {
	var trias [][3]DSFVertexRef
	for _, prim := range p.Primitives {
		v := prim.Vertices
		switch prim.Kind {
		case PrimitiveTriangles:
			for i := 0; i+2 < len(v); i += 3 {
				trias = append(trias, [3]DSFVertexRef{v[i], v[i+1], v[i+2]})
			}
		case PrimitiveStrip:
			for i := 0; i+2 < len(v); i++ {
				if i%2 == 0 {
					trias = append(trias, [3]DSFVertexRef{v[i], v[i+1], v[i+2]})
				} else {
					trias = append(trias, [3]DSFVertexRef{v[i+1], v[i], v[i+2]})
				}
			}
		case PrimitiveFan:
			for i := 1; i+1 < len(v); i++ {
				trias = append(trias, [3]DSFVertexRef{v[0], v[i], v[i+1]})
			}
		}
	}
	return trias
}

// DSFCommandStats counts the non-mesh content of the command stream.
type DSFCommandStats struct {
	Objects       int
	NetworkChains int
	Polygons      int
	Comments      int
}

// commandState tracks the state machine of the command stream.
type commandState struct {
	pool       int
	definition int
	flag       uint8
	near       float64
	far        float64
	patch      *DSFPatch
}

func (d *DSF) parseCommands(data []byte) error {
	r := &cmdReader{r: bytes.NewReader(data)}
	st := commandState{flag: PatchPhysical, far: -1}

	for r.r.Len() > 0 {
		offset := len(data) - r.r.Len()
		op := r.u8()
		if err := d.runCommand(r, &st, op); err != nil {
			return fmt.Errorf("command %d at offset %d: %w", op, offset, err)
		}
		if r.err != nil {
			return fmt.Errorf("command %d at offset %d: %w", op, offset, r.err)
		}
	}
	d.closePatch(&st)
	return nil
}

func (d *DSF) runCommand(r *cmdReader, st *commandState, op uint8) error {
	switch op {
	case cmdPoolSelect:
		st.pool = int(r.u16())
	case cmdJunctionOffset:
		r.u32()
	case cmdSetDefinition8:
		st.definition = int(r.u8())
	case cmdSetDefinition16:
		st.definition = int(r.u16())
	case cmdSetDefinition32:
		st.definition = int(r.u32())
	case cmdSetRoadSubtype:
		r.u8()

	case cmdObject:
		r.u16()
		d.Stats.Objects++
	case cmdObjectRange:
		first, last := r.u16(), r.u16()
		if last > first {
			d.Stats.Objects += int(last - first)
		}

	case cmdNetworkChain:
		r.skip(int64(r.u8()) * 2)
		d.Stats.NetworkChains++
	case cmdNetworkChainRange:
		r.skip(4)
		d.Stats.NetworkChains++
	case cmdNetworkChain32:
		r.skip(int64(r.u8()) * 4)
		d.Stats.NetworkChains++

	case cmdPolygon:
		r.u16()
		r.skip(int64(r.u8()) * 2)
		d.Stats.Polygons++
	case cmdPolygonRange:
		r.skip(6)
		d.Stats.Polygons++
	case cmdNestedPolygon:
		r.u16()
		windings := int(r.u8())
		for i := 0; i < windings && r.err == nil; i++ {
			r.skip(int64(r.u8()) * 2)
		}
		d.Stats.Polygons++
	case cmdNestedPolygonRange:
		// N windings are bounded by N+1 range indices
		r.u16()
		r.skip((int64(r.u8()) + 1) * 2)
		d.Stats.Polygons++

	case cmdTerrainPatch:
		d.openPatch(st)
	case cmdTerrainPatchFlags:
		st.flag = r.u8()
		d.openPatch(st)
	case cmdTerrainPatchFlagsLOD:
		st.flag = r.u8()
		st.near = float64(r.f32())
		st.far = float64(r.f32())
		d.openPatch(st)

	case cmdPatchTriangle:
		return d.addPrimitive(st, PrimitiveTriangles, r.indices(st.pool, int(r.u8())))
	case cmdPatchTriangleCross:
		return d.addPrimitive(st, PrimitiveTriangles, r.crossIndices(int(r.u8())))
	case cmdPatchTriangleRange:
		return d.addPrimitive(st, PrimitiveTriangles, r.rangeIndices(st.pool))
	case cmdPatchTriangleStrip:
		return d.addPrimitive(st, PrimitiveStrip, r.indices(st.pool, int(r.u8())))
	case cmdPatchStripCross:
		return d.addPrimitive(st, PrimitiveStrip, r.crossIndices(int(r.u8())))
	case cmdPatchStripRange:
		return d.addPrimitive(st, PrimitiveStrip, r.rangeIndices(st.pool))
	case cmdPatchTriangleFan:
		return d.addPrimitive(st, PrimitiveFan, r.indices(st.pool, int(r.u8())))
	case cmdPatchFanCross:
		return d.addPrimitive(st, PrimitiveFan, r.crossIndices(int(r.u8())))
	case cmdPatchFanRange:
		return d.addPrimitive(st, PrimitiveFan, r.rangeIndices(st.pool))

	case cmdComment8:
		r.skip(int64(r.u8()))
		d.Stats.Comments++
	case cmdComment16:
		r.skip(int64(r.u16()))
		d.Stats.Comments++
	case cmdComment32:
		r.skip(int64(r.u32()))
		d.Stats.Comments++

	default:
		return fmt.Errorf("%w: unknown opcode %d", ErrInvalidDSFCommand, op)
	}
	return nil
}

// openPatch starts a new patch with the current definition, flags and LOD.
func (d *DSF) openPatch(st *commandState) {
	d.closePatch(st)
	st.patch = &DSFPatch{
		Definition: st.definition,
		Flag:       st.flag,
		Near:       st.near,
		Far:        st.far,
	}
}

func (d *DSF) closePatch(st *commandState) {
	if st.patch != nil {
		d.Patches = append(d.Patches, *st.patch)
		st.patch = nil
	}
}

func (d *DSF) addPrimitive(st *commandState, kind DSFPrimitiveKind, refs []DSFVertexRef) error {
	if refs == nil {
		return nil // read error, reported by the caller
	}
	if st.patch == nil {
		return fmt.Errorf("%w: %s primitive outside of a terrain patch", ErrInvalidDSFCommand, kind)
	}
	if st.patch.Definition < 0 || st.patch.Definition >= len(d.Terrains) {
		return fmt.Errorf("%w: terrain definition %d of %d", ErrInvalidDSFCommand, st.patch.Definition, len(d.Terrains))
	}
	if kind == PrimitiveTriangles && len(refs)%3 != 0 {
		return fmt.Errorf("%w: %d triangle vertices", ErrInvalidDSFCommand, len(refs))
	}
	for _, ref := range refs {
		if d.Vertex(ref) == nil {
			return fmt.Errorf("%w: pool %d index %d", ErrInvalidDSFReference, ref.Pool, ref.Index)
		}
	}
	st.patch.Primitives = append(st.patch.Primitives, DSFPrimitive{Kind: kind, Vertices: refs})
	return nil
}

// cmdReader reads little-endian values and remembers the first error, so a
// command can be decoded without checking every field.
type cmdReader struct {
	r   *bytes.Reader
	err error
}

func (c *cmdReader) read(v any) {
	if c.err != nil {
		return
	}
	if err := binary.Read(c.r, binary.LittleEndian, v); err != nil {
		c.err = fmt.Errorf("%w: %v", ErrTruncatedDSFData, err)
	}
}

func (c *cmdReader) u8() uint8 {
	var v uint8
	c.read(&v)
	return v
}

func (c *cmdReader) u16() uint16 {
	var v uint16
	c.read(&v)
	return v
}

func (c *cmdReader) u32() uint32 {
	var v uint32
	c.read(&v)
	return v
}

func (c *cmdReader) f32() float32 {
	var v float32
	c.read(&v)
	return v
}

func (c *cmdReader) skip(n int64) {
	if c.err != nil {
		return
	}
	if int64(c.r.Len()) < n {
		c.err = ErrTruncatedDSFData
		return
	}
	_, _ = c.r.Seek(n, io.SeekCurrent)
}

func (c *cmdReader) indices(pool, count int) []DSFVertexRef {
	refs := make([]DSFVertexRef, count)
	for i := range refs {
		refs[i] = DSFVertexRef{Pool: pool, Index: int(c.u16())}
	}
	if c.err != nil {
		return nil
	}
	return refs
}

func (c *cmdReader) crossIndices(count int) []DSFVertexRef {
	refs := make([]DSFVertexRef, count)
	for i := range refs {
		refs[i] = DSFVertexRef{Pool: int(c.u16()), Index: int(c.u16())}
	}
	if c.err != nil {
		return nil
	}
	return refs
}

// rangeIndices reads a [first, last) index range.
func (c *cmdReader) rangeIndices(pool int) []DSFVertexRef {
	first, last := int(c.u16()), int(c.u16())
	if c.err != nil {
		return nil
	}
	if last < first {
		c.err = fmt.Errorf("%w: range %d..%d", ErrInvalidDSFCommand, first, last)
		return nil
	}
	refs := make([]DSFVertexRef, 0, last-first)
	for i := first; i < last; i++ {
		refs = append(refs, DSFVertexRef{Pool: pool, Index: i})
	}
	return refs
}
