// Package config handles importer configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidConfig is returned by Validate for out-of-range settings.
var ErrInvalidConfig = errors.New("invalid config")

// Scaling limits in scene units per degree.
const (
	MinScaling = 1
	MaxScaling = 100000
)

// Config holds all importer settings.
type Config struct {
	Import  ImportConfig  `yaml:"import"`
	XPlane  XPlaneConfig  `yaml:"xplane"`
	Logging LoggingConfig `yaml:"logging"`
}

// ImportConfig holds the tile import settings.
type ImportConfig struct {
	// Bounds of the imported area. When west and south both lie in [0,1]
	// all four are relative to the tile origin, otherwise absolute degrees.
	WestBound  float64 `yaml:"west_bound"`
	EastBound  float64 `yaml:"east_bound"`
	SouthBound float64 `yaml:"south_bound"`
	NorthBound float64 `yaml:"north_bound"`

	Scaling         float64 `yaml:"scaling"`           // Scene units per degree, whole number
	LayerPerOverlay bool    `yaml:"layer_per_overlay"` // One layer per overlay group
	VerifyChecksum  bool    `yaml:"verify_checksum"`   // Check the tile MD5 footer
}

// XPlaneConfig locates the X-Plane installation.
type XPlaneConfig struct {
	Root string `yaml:"root"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
	JSON    bool   `yaml:"json"` // JSON encoding for the log file
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Import: ImportConfig{
			WestBound:       0,
			EastBound:       1,
			SouthBound:      0,
			NorthBound:      1,
			Scaling:         1000,
			LayerPerOverlay: false,
			VerifyChecksum:  true,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate checks that all settings are usable.
func (c *Config) Validate() error {
	imp := c.Import
	if imp.Scaling < MinScaling || imp.Scaling > MaxScaling {
		return fmt.Errorf("%w: scaling %v outside [%d, %d]", ErrInvalidConfig, imp.Scaling, MinScaling, MaxScaling)
	}
	if imp.Scaling != math.Trunc(imp.Scaling) {
		return fmt.Errorf("%w: scaling %v is not a whole number", ErrInvalidConfig, imp.Scaling)
	}
	if imp.WestBound > imp.EastBound {
		return fmt.Errorf("%w: west bound %v exceeds east bound %v", ErrInvalidConfig, imp.WestBound, imp.EastBound)
	}
	if imp.SouthBound > imp.NorthBound {
		return fmt.Errorf("%w: south bound %v exceeds north bound %v", ErrInvalidConfig, imp.SouthBound, imp.NorthBound)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: log level %q", ErrInvalidConfig, c.Logging.Level)
	}
	return nil
}
