// Package texture resolves the image files referenced by terrain definitions.
package texture

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
)

// Missing is the path assigned to textures that could not be resolved.
const Missing = "<missing>"

// Texture errors.
var (
	ErrNotFound          = errors.New("texture not found")
	ErrUnsupportedFormat = errors.New("unsupported texture format")
	ErrInvalidHeader     = errors.New("invalid texture header")
)

// Format identifies an image container.
type Format int

// Supported formats.
const (
	FormatUnknown Format = iota
	FormatPNG
	FormatBMP
	FormatDDS
	FormatTGA
)

// String returns a human-readable format name.
func (f Format) String() string {
	switch f {
	case FormatPNG:
		return "PNG"
	case FormatBMP:
		return "BMP"
	case FormatDDS:
		return "DDS"
	case FormatTGA:
		return "TGA"
	default:
		return "Unknown"
	}
}

// headerSize covers every header probed below.
const headerSize = 128

var (
	pngMagic = []byte("\x89PNG\r\n\x1a\n")
	bmpMagic = []byte("BM")
	ddsMagic = []byte("DDS ")
)

// Ref is a resolved texture reference.
type Ref struct {
	Path   string
	Format Format
	Width  int
	Height int
}

// IsMissing reports whether the reference stands in for an unresolved texture.
func (r Ref) IsMissing() bool {
	return r.Path == Missing
}

// MissingRef returns the placeholder reference.
func MissingRef() Ref {
	return Ref{Path: Missing}
}

// Resolve checks that path is a readable image and reads its dimensions.
// On failure the placeholder reference is returned with the error; callers
// treat this as a warning.
func Resolve(path string) (Ref, error) {
	if path == "" {
		return MissingRef(), fmt.Errorf("%w: empty path", ErrNotFound)
	}
	path = filepath.Clean(filepath.FromSlash(path))

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return MissingRef(), fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return MissingRef(), fmt.Errorf("opening texture %s: %w", path, err)
	}
	defer f.Close()

	header := make([]byte, headerSize)
	n, err := io.ReadFull(f, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return MissingRef(), fmt.Errorf("reading texture %s: %w", path, err)
	}

	ref, err := Probe(header[:n], path)
	if err != nil {
		return MissingRef(), fmt.Errorf("%s: %w", path, err)
	}
	ref.Path = path
	return ref, nil
}

// Probe identifies an image from its leading bytes. The name is only used to
// recognize TGA files, which carry no magic number.
func Probe(header []byte, name string) (Ref, error) {
	switch {
	case bytes.HasPrefix(header, pngMagic):
		cfg, err := png.DecodeConfig(bytes.NewReader(header))
		if err != nil {
			return Ref{}, fmt.Errorf("%w: %v", ErrInvalidHeader, err)
		}
		return Ref{Format: FormatPNG, Width: cfg.Width, Height: cfg.Height}, nil

	case bytes.HasPrefix(header, bmpMagic):
		cfg, err := bmp.DecodeConfig(bytes.NewReader(header))
		if err != nil {
			return Ref{}, fmt.Errorf("%w: %v", ErrInvalidHeader, err)
		}
		return Ref{Format: FormatBMP, Width: cfg.Width, Height: cfg.Height}, nil

	case bytes.HasPrefix(header, ddsMagic):
		return probeDDS(header)

	case strings.EqualFold(filepath.Ext(name), ".tga"):
		return probeTGA(header)
	}
	return Ref{}, ErrUnsupportedFormat
}

// probeDDS reads the DDS_HEADER following the magic: size, flags, height, width.
func probeDDS(header []byte) (Ref, error) {
	if len(header) < 20 {
		return Ref{}, fmt.Errorf("%w: DDS header too short", ErrInvalidHeader)
	}
	if size := binary.LittleEndian.Uint32(header[4:]); size != 124 {
		return Ref{}, fmt.Errorf("%w: DDS header size %d", ErrInvalidHeader, size)
	}
	return Ref{
		Format: FormatDDS,
		Height: int(binary.LittleEndian.Uint32(header[12:])),
		Width:  int(binary.LittleEndian.Uint32(header[16:])),
	}, nil
}

// probeTGA accepts uncompressed and RLE true-color TGA headers.
func probeTGA(header []byte) (Ref, error) {
	if len(header) < 18 {
		return Ref{}, fmt.Errorf("%w: TGA header too short", ErrInvalidHeader)
	}

	colorMapType := header[1]
	imageType := header[2]
	width := int(header[12]) | int(header[13])<<8
	height := int(header[14]) | int(header[15])<<8
	bpp := int(header[16])

	if colorMapType != 0 {
		return Ref{}, fmt.Errorf("%w: color-mapped TGA", ErrUnsupportedFormat)
	}
	if imageType != 2 && imageType != 10 {
		return Ref{}, fmt.Errorf("%w: TGA type %d", ErrUnsupportedFormat, imageType)
	}
	if bpp != 24 && bpp != 32 {
		return Ref{}, fmt.Errorf("%w: TGA bit depth %d", ErrUnsupportedFormat, bpp)
	}
	return Ref{Format: FormatTGA, Width: width, Height: height}, nil
}
