// Package archive opens DSF tiles that may be shipped inside a compressed container.
//
// X-Plane global scenery ships its tiles as 7-Zip archives holding a single
// .dsf file, while custom scenery usually ships them uncompressed. Gzip and
// zstd containers are accepted as well for tiles repacked by other tools.
package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bodgit/sevenzip"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Container errors.
var (
	ErrUnknownContainer = errors.New("unknown tile container")
	ErrEntryNotFound    = errors.New("archive entry not found")
	ErrNoTile           = errors.New("archive holds no DSF tile")
)

var (
	dsfMagic      = []byte("XPLNEDSF")
	sevenZipMagic = []byte{'7', 'z', 0xBC, 0xAF, 0x27, 0x1C}
	gzipMagic     = []byte{0x1F, 0x8B}
	zstdMagic     = []byte{0x28, 0xB5, 0x2F, 0xFD}
)

// Kind identifies the container format of a tile file.
type Kind int

// Container kinds.
const (
	KindRaw Kind = iota
	KindSevenZip
	KindGzip
	KindZstd
)

// String returns a human-readable container name.
func (k Kind) String() string {
	switch k {
	case KindRaw:
		return "raw"
	case KindSevenZip:
		return "7z"
	case KindGzip:
		return "gzip"
	case KindZstd:
		return "zstd"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// Entry represents a file stored in the container.
type Entry struct {
	Name string
	Size uint64 // Uncompressed size, 0 when unknown

	file *sevenzip.File
}

// Archive represents an opened tile container.
type Archive struct {
	path     string
	kind     Kind
	sevenZip *sevenzip.ReadCloser
	fileList map[string]*Entry
}

// Detect returns the container kind from the leading bytes of a file.
func Detect(header []byte) (Kind, error) {
	switch {
	case bytes.HasPrefix(header, dsfMagic):
		return KindRaw, nil
	case bytes.HasPrefix(header, sevenZipMagic):
		return KindSevenZip, nil
	case bytes.HasPrefix(header, gzipMagic):
		return KindGzip, nil
	case bytes.HasPrefix(header, zstdMagic):
		return KindZstd, nil
	}
	return 0, ErrUnknownContainer
}

// Open opens a tile container for reading.
func Open(path string) (*Archive, error) {
	kind, err := sniff(path)
	if err != nil {
		return nil, err
	}

	archive := &Archive{
		path:     path,
		kind:     kind,
		fileList: make(map[string]*Entry),
	}

	if kind != KindSevenZip {
		name := strings.TrimSuffix(filepath.Base(path), compressedSuffix(kind, path))
		var size uint64
		if kind == KindRaw {
			if info, err := os.Stat(path); err == nil {
				size = uint64(info.Size())
			}
		}
		archive.fileList[normalizePath(name)] = &Entry{Name: name, Size: size}
		return archive, nil
	}

	r, err := sevenzip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening 7z archive: %w", err)
	}
	archive.sevenZip = r

	for _, f := range r.File {
		info := f.FileInfo()
		if info.IsDir() {
			continue
		}
		archive.fileList[normalizePath(f.Name)] = &Entry{
			Name: f.Name,
			Size: uint64(info.Size()),
			file: f,
		}
	}

	return archive, nil
}

// Close closes the archive.
func (a *Archive) Close() error {
	if a.sevenZip != nil {
		return a.sevenZip.Close()
	}
	return nil
}

// Kind returns the container format.
func (a *Archive) Kind() Kind {
	return a.kind
}

// List returns all entry names in the archive, sorted.
func (a *Archive) List() []string {
	result := make([]string, 0, len(a.fileList))
	for _, e := range a.fileList {
		result = append(result, e.Name)
	}
	sort.Strings(result)
	return result
}

// Contains checks if an entry exists.
func (a *Archive) Contains(name string) bool {
	_, ok := a.fileList[normalizePath(name)]
	return ok
}

// Read returns the uncompressed content of an entry.
func (a *Archive) Read(name string) ([]byte, error) {
	entry, ok := a.fileList[normalizePath(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, name)
	}

	if entry.file != nil {
		rc, err := entry.file.Open()
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", entry.Name, err)
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}

	f, err := os.Open(a.path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	switch a.kind {
	case KindGzip:
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("reading gzip header: %w", err)
		}
		defer zr.Close()
		return io.ReadAll(zr)
	case KindZstd:
		zr, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("creating zstd decoder: %w", err)
		}
		defer zr.Close()
		return io.ReadAll(zr)
	default:
		return io.ReadAll(f)
	}
}

// ReadTile opens path and returns the raw bytes of the DSF tile it holds.
func ReadTile(path string) ([]byte, error) {
	archive, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer archive.Close()

	for _, name := range archive.List() {
		data, err := archive.Read(name)
		if err != nil {
			return nil, err
		}
		if bytes.HasPrefix(data, dsfMagic) {
			return data, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNoTile, path)
}

func sniff(path string) (Kind, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	header := make([]byte, len(dsfMagic))
	n, err := io.ReadFull(f, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("reading header: %w", err)
	}

	kind, err := Detect(header[:n])
	if err != nil {
		return 0, fmt.Errorf("%w: %s", err, path)
	}
	return kind, nil
}

func compressedSuffix(kind Kind, path string) string {
	ext := filepath.Ext(path)
	switch {
	case kind == KindGzip && strings.EqualFold(ext, ".gz"):
		return ext
	case kind == KindZstd && strings.EqualFold(ext, ".zst"):
		return ext
	}
	return ""
}

func normalizePath(path string) string {
	path = strings.ReplaceAll(path, "\\", "/")
	return strings.ToLower(path)
}
