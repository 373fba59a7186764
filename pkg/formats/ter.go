package formats

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Faultbox/dsf-import/pkg/encoding"
)

// TER format errors.
var (
	ErrInvalidTERHeader = errors.New("invalid TER header")
	ErrTERRead          = errors.New("error reading terrain file")
)

// terHeader lists the tokens of the first three non-empty lines.
var terHeader = [3]string{"A", "800", "TERRAIN"}

// Terrain definition keys used by the importer.
const (
	TERBaseTex       = "BASE_TEX"
	TERBaseTexNowrap = "BASE_TEX_NOWRAP"
	TERBorderTex     = "BORDER_TEX"
	TERProjected     = "PROJECTED"
)

// TerrainDef is a parsed X-Plane terrain definition (.ter) file.
// Repeated keys accumulate their values in file order.
type TerrainDef struct {
	Path   string
	Keys   []string // Keys in order of first appearance
	Values map[string][]string
}

// Get returns the values of a key.
func (t *TerrainDef) Get(key string) ([]string, bool) {
	v, ok := t.Values[key]
	return v, ok
}

// First returns the first value of a key, or "" if the key has no values.
func (t *TerrainDef) First(key string) (string, bool) {
	v, ok := t.Values[key]
	if !ok || len(v) == 0 {
		return "", false
	}
	return v[0], true
}

// Has reports whether the key appears in the file.
func (t *TerrainDef) Has(key string) bool {
	_, ok := t.Values[key]
	return ok
}

// Projected reports whether the terrain is UV-projected.
func (t *TerrainDef) Projected() bool {
	return t != nil && t.Has(TERProjected)
}

// ParseTER parses terrain definition text. Values starting with "../" are
// resolved against dir and made absolute; an empty dir leaves them as-is.
func ParseTER(data []byte, dir string) (*TerrainDef, error) {
	lines := strings.Split(encoding.DecodeText(data), "\n")

	ter := &TerrainDef{Values: make(map[string][]string)}
	header := 0

	for i, line := range lines {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		if header < len(terHeader) {
			if strings.TrimSpace(line) != terHeader[header] {
				return nil, fmt.Errorf("%w: expected %q on line %d", ErrInvalidTERHeader, terHeader[header], i+1)
			}
			header++
			continue
		}

		if strings.HasPrefix(fields[0], "#") {
			continue
		}

		key, values := fields[0], fields[1:]
		for j, v := range values {
			if strings.HasPrefix(v, "../") && dir != "" {
				values[j] = resolveRelative(dir, v)
			}
		}

		if _, ok := ter.Values[key]; !ok {
			ter.Keys = append(ter.Keys, key)
		}
		ter.Values[key] = append(ter.Values[key], values...)
	}

	if header < len(terHeader) {
		next := len(lines) + 1
		if lines[len(lines)-1] == "" {
			next--
		}
		return nil, fmt.Errorf("%w: expected %q on line %d", ErrInvalidTERHeader, terHeader[header], next)
	}

	return ter, nil
}

// ParseTERFile parses a terrain definition from disk.
func ParseTERFile(path string) (*TerrainDef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTERRead, err)
	}
	ter, err := ParseTER(data, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	ter.Path = path
	return ter, nil
}

func resolveRelative(dir, value string) string {
	path := filepath.Join(dir, filepath.FromSlash(value))
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
