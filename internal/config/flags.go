package config

import (
	"flag"
	"math"
)

var (
	flagConfig          = flag.String("config", "", "Path to config file")
	flagDebug           = flag.Bool("debug", false, "Enable debug logging")
	flagWest            = flag.Float64("west", math.NaN(), "West bound (degrees, or 0..1 relative to the tile)")
	flagEast            = flag.Float64("east", math.NaN(), "East bound")
	flagSouth           = flag.Float64("south", math.NaN(), "South bound (degrees, or 0..1 relative to the tile)")
	flagNorth           = flag.Float64("north", math.NaN(), "North bound")
	flagScaling         = flag.Float64("scaling", 0, "Scene units per degree, whole number (1-100000)")
	flagLayerPerOverlay = flag.Bool("layer-per-overlay", false, "Put every overlay group on its own layer")
	flagXPlane          = flag.String("xplane", "", "X-Plane installation root")
	flagNoChecksum      = flag.Bool("no-checksum", false, "Skip the tile MD5 check")
	flagLogJSON         = flag.Bool("log-json", false, "Write the log file as JSON")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// Args returns the non-flag arguments.
func Args() []string {
	return flag.Args()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if !math.IsNaN(*flagWest) {
		cfg.Import.WestBound = *flagWest
	}
	if !math.IsNaN(*flagEast) {
		cfg.Import.EastBound = *flagEast
	}
	if !math.IsNaN(*flagSouth) {
		cfg.Import.SouthBound = *flagSouth
	}
	if !math.IsNaN(*flagNorth) {
		cfg.Import.NorthBound = *flagNorth
	}
	if *flagScaling > 0 {
		cfg.Import.Scaling = *flagScaling
	}
	if *flagLayerPerOverlay {
		cfg.Import.LayerPerOverlay = true
	}
	if *flagXPlane != "" {
		cfg.XPlane.Root = *flagXPlane
	}
	if *flagNoChecksum {
		cfg.Import.VerifyChecksum = false
	}
	if *flagLogJSON {
		cfg.Logging.JSON = true
	}
}
