// Package formats provides parsers for X-Plane scenery file formats.
//
// DSF (Distribution Scenery Format) tiles are parsed by ParseDSF and
// ParseDSFFile, terrain definitions (.ter) by ParseTER and ParseTERFile.
// Compressed tiles are unpacked through pkg/archive.
package formats
