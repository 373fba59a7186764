package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Test import defaults
	if cfg.Import.WestBound != 0 || cfg.Import.EastBound != 1 {
		t.Errorf("expected west/east bounds 0/1, got %v/%v", cfg.Import.WestBound, cfg.Import.EastBound)
	}
	if cfg.Import.SouthBound != 0 || cfg.Import.NorthBound != 1 {
		t.Errorf("expected south/north bounds 0/1, got %v/%v", cfg.Import.SouthBound, cfg.Import.NorthBound)
	}
	if cfg.Import.Scaling != 1000 {
		t.Errorf("expected scaling 1000, got %v", cfg.Import.Scaling)
	}
	if cfg.Import.LayerPerOverlay {
		t.Error("expected layer_per_overlay to be false by default")
	}
	if !cfg.Import.VerifyChecksum {
		t.Error("expected verify_checksum to be true by default")
	}

	// Test X-Plane defaults
	if cfg.XPlane.Root != "" {
		t.Errorf("expected empty X-Plane root, got %s", cfg.XPlane.Root)
	}

	// Test logging defaults
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "" {
		t.Errorf("expected empty log file, got %s", cfg.Logging.LogFile)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("expected defaults to validate, got %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
import:
  west_bound: 10.25
  east_bound: 10.75
  south_bound: 50.25
  north_bound: 50.75
  scaling: 5000
  layer_per_overlay: true
  verify_checksum: false

xplane:
  root: "/opt/X-Plane 12"

logging:
  level: "debug"
  log_file: "import.log"
  json: true
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// Load config
	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Verify values were loaded
	if cfg.Import.WestBound != 10.25 || cfg.Import.EastBound != 10.75 {
		t.Errorf("expected west/east 10.25/10.75, got %v/%v", cfg.Import.WestBound, cfg.Import.EastBound)
	}
	if cfg.Import.SouthBound != 50.25 || cfg.Import.NorthBound != 50.75 {
		t.Errorf("expected south/north 50.25/50.75, got %v/%v", cfg.Import.SouthBound, cfg.Import.NorthBound)
	}
	if cfg.Import.Scaling != 5000 {
		t.Errorf("expected scaling 5000, got %v", cfg.Import.Scaling)
	}
	if !cfg.Import.LayerPerOverlay {
		t.Error("expected layer_per_overlay to be true")
	}
	if cfg.Import.VerifyChecksum {
		t.Error("expected verify_checksum to be false")
	}

	if cfg.XPlane.Root != "/opt/X-Plane 12" {
		t.Errorf("expected root '/opt/X-Plane 12', got %s", cfg.XPlane.Root)
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "import.log" {
		t.Errorf("expected log file 'import.log', got %s", cfg.Logging.LogFile)
	}
	if !cfg.Logging.JSON {
		t.Error("expected json logging to be true")
	}
}

func TestLoadFromFilePartial(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configPath, []byte("import:\n  scaling: 250\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Keys missing from the file keep their defaults
	if cfg.Import.Scaling != 250 {
		t.Errorf("expected scaling 250, got %v", cfg.Import.Scaling)
	}
	if cfg.Import.EastBound != 1 || !cfg.Import.VerifyChecksum {
		t.Errorf("expected unset keys to keep defaults, got %+v", cfg.Import)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	// Create temporary config file with invalid YAML
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `
import:
  scaling: not a number
  invalid syntax here
`

	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// Try to load - should error
	cfg := Default()
	err := loadFromFile(cfg, configPath)
	if err == nil {
		t.Error("expected error loading invalid YAML, got nil")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Default()
	err := loadFromFile(cfg, "/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestLoadFromFileUnknownKey(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("import:\n  scale: 10\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	err := loadFromFile(Default(), configPath)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for unknown key, got %v", err)
	}
}

func TestLoadFromFileEmpty(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, nil, 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("expected empty file to load, got %v", err)
	}
	if cfg.Import.Scaling != 1000 {
		t.Errorf("expected default scaling, got %v", cfg.Import.Scaling)
	}
}

func TestLoadFromEnv(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "env.yaml")
	if err := os.WriteFile(configPath, []byte("xplane:\n  root: /from/env\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	t.Setenv(EnvConfig, configPath)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.XPlane.Root != "/from/env" {
		t.Errorf("expected root from %s, got %q", EnvConfig, cfg.XPlane.Root)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"minimum scaling", func(c *Config) { c.Import.Scaling = 1 }, false},
		{"maximum scaling", func(c *Config) { c.Import.Scaling = 100000 }, false},
		{"zero scaling", func(c *Config) { c.Import.Scaling = 0 }, true},
		{"scaling too large", func(c *Config) { c.Import.Scaling = 100001 }, true},
		{"fractional scaling", func(c *Config) { c.Import.Scaling = 1.5 }, true},
		{"fractional scaling in range", func(c *Config) { c.Import.Scaling = 2500.25 }, true},
		{"absolute bounds", func(c *Config) {
			c.Import.WestBound, c.Import.EastBound = -30.5, -30.25
			c.Import.SouthBound, c.Import.NorthBound = 45, 45.5
		}, false},
		{"west past east", func(c *Config) { c.Import.WestBound = 2 }, true},
		{"south past north", func(c *Config) { c.Import.SouthBound = 2 }, true},
		{"unknown log level", func(c *Config) { c.Logging.Level = "verbose" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("expected ErrInvalidConfig, got %v", err)
				}
			} else if err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		})
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()

	// Just verify it returns a non-empty path
	// Actual path depends on OS
	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}

	// Verify path is absolute
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	// Save current directory
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)

	// Point the user config dir somewhere empty
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	// Create temp directory and change to it
	tmpDir := t.TempDir()
	os.Chdir(tmpDir)

	// No config file exists - should return empty
	path := findConfigFile()
	if path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	// Create dsfimport.yaml in current directory
	configPath := filepath.Join(tmpDir, "dsfimport.yaml")
	if err := os.WriteFile(configPath, []byte("import:\n  scaling: 800\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}

	// Should find it now
	path = findConfigFile()
	if path == "" {
		t.Error("expected to find dsfimport.yaml in current directory")
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name     string
		setup    func()
		verify   func(*Config)
		teardown func()
	}{
		{
			name: "debug flag",
			setup: func() {
				*flagDebug = true
			},
			verify: func(cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
			},
			teardown: func() {
				*flagDebug = false
			},
		},
		{
			name: "bound flags",
			setup: func() {
				*flagWest = 0.25
				*flagEast = 0.5
				*flagSouth = 0
				*flagNorth = 0.75
			},
			verify: func(cfg *Config) {
				imp := cfg.Import
				if imp.WestBound != 0.25 || imp.EastBound != 0.5 || imp.SouthBound != 0 || imp.NorthBound != 0.75 {
					t.Errorf("unexpected bounds %+v", imp)
				}
			},
			teardown: func() {
				*flagWest = math.NaN()
				*flagEast = math.NaN()
				*flagSouth = math.NaN()
				*flagNorth = math.NaN()
			},
		},
		{
			name: "unset bound flags keep defaults",
			setup: func() {},
			verify: func(cfg *Config) {
				if cfg.Import.EastBound != 1 || cfg.Import.NorthBound != 1 {
					t.Errorf("expected default bounds, got %+v", cfg.Import)
				}
			},
			teardown: func() {},
		},
		{
			name: "scaling flag",
			setup: func() {
				*flagScaling = 2500
			},
			verify: func(cfg *Config) {
				if cfg.Import.Scaling != 2500 {
					t.Errorf("expected scaling 2500, got %v", cfg.Import.Scaling)
				}
			},
			teardown: func() {
				*flagScaling = 0
			},
		},
		{
			name: "layer and checksum flags",
			setup: func() {
				*flagLayerPerOverlay = true
				*flagNoChecksum = true
			},
			verify: func(cfg *Config) {
				if !cfg.Import.LayerPerOverlay {
					t.Error("expected layer_per_overlay to be enabled")
				}
				if cfg.Import.VerifyChecksum {
					t.Error("expected verify_checksum to be disabled")
				}
			},
			teardown: func() {
				*flagLayerPerOverlay = false
				*flagNoChecksum = false
			},
		},
		{
			name: "xplane and log flags",
			setup: func() {
				*flagXPlane = "/games/xplane"
				*flagLogJSON = true
			},
			verify: func(cfg *Config) {
				if cfg.XPlane.Root != "/games/xplane" {
					t.Errorf("expected root /games/xplane, got %s", cfg.XPlane.Root)
				}
				if !cfg.Logging.JSON {
					t.Error("expected json logging to be enabled")
				}
			},
			teardown: func() {
				*flagXPlane = ""
				*flagLogJSON = false
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Setup
			tt.setup()
			defer tt.teardown()

			// Apply flags to default config
			cfg := Default()
			applyFlags(cfg)

			// Verify
			tt.verify(cfg)
		})
	}
}

func TestLoadPriority(t *testing.T) {
	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
import:
  scaling: 1600
xplane:
  root: /from/file
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// Set flag to override config file
	*flagConfig = configPath
	*flagScaling = 1920
	defer func() {
		*flagConfig = ""
		*flagScaling = 0
	}()

	// Load config
	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Scaling should be from flag (1920), not file (1600)
	if cfg.Import.Scaling != 1920 {
		t.Errorf("expected scaling 1920 from flag, got %v", cfg.Import.Scaling)
	}

	// Root should be from file since no flag override
	if cfg.XPlane.Root != "/from/file" {
		t.Errorf("expected root /from/file from file, got %s", cfg.XPlane.Root)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("import:\n  scaling: 0.5\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	*flagConfig = configPath
	defer func() { *flagConfig = "" }()

	if _, err := Load(); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestSaveTo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.XPlane.Root = "/games/xplane"
	cfg.Import.Scaling = 4000
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo failed: %v", err)
	}

	loaded := Default()
	if err := loadFromFile(loaded, path); err != nil {
		t.Fatalf("failed to reload config: %v", err)
	}
	if loaded.XPlane.Root != "/games/xplane" || loaded.Import.Scaling != 4000 {
		t.Errorf("unexpected reloaded config %+v", loaded)
	}

	cfg.Import.Scaling = 0
	if err := cfg.SaveTo(path); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for invalid config, got %v", err)
	}
}
