package texture

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

// encodeBMP writes an opaque image, which bmp stores as 24-bit without a palette.
func encodeBMP(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xFF
	}
	var buf bytes.Buffer
	require.NoError(t, bmp.Encode(&buf, img))
	return buf.Bytes()
}

func ddsHeader(w, h uint32) []byte {
	buf := new(bytes.Buffer)
	buf.Write(ddsMagic)
	binary.Write(buf, binary.LittleEndian, []uint32{124, 0x1007, h, w})
	buf.Write(make([]byte, 108))
	return buf.Bytes()
}

func tgaHeader(imageType, bpp byte, w, h uint16) []byte {
	header := make([]byte, 18)
	header[2] = imageType
	binary.LittleEndian.PutUint16(header[12:], w)
	binary.LittleEndian.PutUint16(header[14:], h)
	header[16] = bpp
	return header
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name   string
		file   string
		data   []byte
		format Format
		width  int
		height int
	}{
		{"png", "grass.png", encodePNG(t, 8, 4), FormatPNG, 8, 4},
		{"bmp", "rock.bmp", encodeBMP(t, 3, 5), FormatBMP, 3, 5},
		{"dds", "sand.dds", ddsHeader(1024, 512), FormatDDS, 1024, 512},
		{"tga", "border.tga", tgaHeader(2, 32, 64, 32), FormatTGA, 64, 32},
		{"rle tga", "edge.TGA", tgaHeader(10, 24, 16, 16), FormatTGA, 16, 16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, tt.file, tt.data)

			ref, err := Resolve(path)
			require.NoError(t, err)
			assert.Equal(t, path, ref.Path)
			assert.Equal(t, tt.format, ref.Format)
			assert.Equal(t, tt.width, ref.Width)
			assert.Equal(t, tt.height, ref.Height)
			assert.False(t, ref.IsMissing())
		})
	}
}

func TestResolve_Failures(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		path string
		want error
	}{
		{"empty path", "", ErrNotFound},
		{"missing file", filepath.Join(dir, "missing.png"), ErrNotFound},
		{"unknown format", writeFile(t, dir, "notes.txt", []byte("hello")), ErrUnsupportedFormat},
		{"palette tga", writeFile(t, dir, "pal.tga", append([]byte{0, 1}, tgaHeader(1, 8, 4, 4)[2:]...)), ErrUnsupportedFormat},
		{"bad dds", writeFile(t, dir, "bad.dds", []byte("DDS \x10\x00\x00\x00")), ErrInvalidHeader},
		{"truncated png", writeFile(t, dir, "short.png", pngMagic), ErrInvalidHeader},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := Resolve(tt.path)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, ref.IsMissing())
			assert.Equal(t, Missing, ref.Path)
		})
	}
}

func TestResolve_Directory(t *testing.T) {
	_, err := Resolve(t.TempDir())
	assert.Error(t, err)
}

func TestFormatString(t *testing.T) {
	assert.Equal(t, "PNG", FormatPNG.String())
	assert.Equal(t, "DDS", FormatDDS.String())
	assert.Equal(t, "Unknown", FormatUnknown.String())
}
