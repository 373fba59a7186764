// Package encoding provides text decoding utilities for X-Plane scenery files.
package encoding

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DecodeText converts a scenery text file to a UTF-8 string.
// A UTF-8 or UTF-16 byte order mark is honoured and stripped. Content that is
// not valid UTF-8 is decoded as Windows-1252, which is what older Windows
// scenery tools wrote.
func DecodeText(data []byte) string {
	if hasUTF16BOM(data) || utf8.Valid(data) {
		decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
		if result, _, err := transform.Bytes(decoder, data); err == nil {
			return string(result)
		}
	}
	return Windows1252ToUTF8(data)
}

func hasUTF16BOM(data []byte) bool {
	return bytes.HasPrefix(data, []byte{0xFF, 0xFE}) || bytes.HasPrefix(data, []byte{0xFE, 0xFF})
}

// Windows1252ToUTF8 converts Windows-1252 encoded bytes to a UTF-8 string.
// Returns the original bytes as string if conversion fails.
func Windows1252ToUTF8(data []byte) string {
	result, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), data)
	if err != nil {
		return string(data)
	}
	return string(result)
}

// NormalizePath converts Windows path separators to forward slashes.
func NormalizePath(path string) string {
	return strings.ReplaceAll(path, "\\", "/")
}

// SplitNullStrings splits a block of null-terminated strings.
// A trailing terminator does not produce an empty element, but empty strings
// between terminators are kept so that indices stay aligned with the file.
func SplitNullStrings(data []byte) []string {
	data = TrimNullBytes(data)
	if len(data) == 0 {
		return nil
	}
	parts := bytes.Split(data, []byte{0})
	result := make([]string, len(parts))
	for i, p := range parts {
		result[i] = decodeString(p)
	}
	return result
}

// TrimNullBytes removes trailing null bytes from a byte slice.
func TrimNullBytes(data []byte) []byte {
	return bytes.TrimRight(data, "\x00")
}

// TrimNullString removes trailing null bytes and converts to string.
func TrimNullString(data []byte) string {
	return decodeString(TrimNullBytes(data))
}

func decodeString(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	return Windows1252ToUTF8(data)
}
