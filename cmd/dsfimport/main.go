// dsfimport is a CLI utility for inspecting and importing X-Plane DSF tiles.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/dsf-import/internal/config"
	"github.com/Faultbox/dsf-import/internal/logger"
	"github.com/Faultbox/dsf-import/internal/scene"
	"github.com/Faultbox/dsf-import/internal/terrain"
	"github.com/Faultbox/dsf-import/pkg/archive"
	"github.com/Faultbox/dsf-import/pkg/formats"
)

func main() {
	config.ParseFlags()
	args := config.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile, cfg.Logging.JSON); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	command := args[0]
	args = args[1:]

	switch command {
	case "info":
		cmdInfo(cfg, args)
	case "terrain", "ter":
		cmdTerrain(args)
	case "import":
		cmdImport(cfg, args)
	case "init-config":
		cmdInitConfig(cfg, args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`dsfimport - X-Plane DSF terrain mesh importer

Usage:
  dsfimport [flags] <command> [arguments]

Commands:
  info <tile.dsf>          Show tile properties, definitions and pools
  terrain <file.ter>       Show a terrain definition
  import <tile.dsf>        Build the layered mesh and print a scene summary
  init-config [path]       Write the effective configuration to disk

Flags:
  -config <path>           Config file (default ./dsfimport.yaml or user config dir)
  -xplane <dir>            X-Plane installation root
  -west/-east/-south/-north <deg>
                           Import bounds (0..1 is relative to the tile)
  -scaling <n>             Scene units per degree (1-100000)
  -layer-per-overlay       Put every overlay group on its own layer
  -no-checksum             Skip the tile MD5 check
  -debug                   Enable debug logging
  -log-json                Write the log file as JSON

Examples:
  dsfimport info "+50+010.dsf"
  dsfimport -xplane ~/X-Plane\ 12 import "+50+010.dsf"
  dsfimport -west 0.25 -east 0.75 import "+50+010.dsf"`)
}

func cmdInfo(cfg *config.Config, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: dsfimport info <tile.dsf>")
		os.Exit(1)
	}

	a, err := archive.Open(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	kind := a.Kind()
	a.Close()

	tile, err := formats.ParseDSFFile(args[0], formats.DSFParseOptions{VerifyChecksum: cfg.Import.VerifyChecksum})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Tile:      %s\n", args[0])
	fmt.Printf("Container: %s\n", kind)
	fmt.Printf("Checksum:  %x\n", tile.Checksum)
	fmt.Println()

	fmt.Println("Properties:")
	for _, p := range tile.Properties {
		fmt.Printf("  %-28s %s\n", p.Key, p.Value)
	}
	fmt.Println()

	fmt.Println("Definitions:")
	fmt.Printf("  %-10s %d\n", "terrains", len(tile.Terrains))
	fmt.Printf("  %-10s %d\n", "objects", len(tile.Objects))
	fmt.Printf("  %-10s %d\n", "polygons", len(tile.Polygons))
	fmt.Printf("  %-10s %d\n", "networks", len(tile.Networks))
	fmt.Println()

	fmt.Println("Pools:")
	for i, p := range tile.Pools {
		fmt.Printf("  %3d  %d planes  %d vertices\n", i, p.Planes, p.Len())
	}
	for i, p := range tile.Pools32 {
		fmt.Printf("  %3d  %d planes  %d vertices (32-bit)\n", i, p.Planes, p.Len())
	}
	fmt.Println()

	// Patches per terrain, most used first
	type terrainStat struct {
		name      string
		patches   int
		triangles int
	}
	byTerrain := make(map[int]*terrainStat)
	for i := range tile.Patches {
		p := &tile.Patches[i]
		s, ok := byTerrain[p.Definition]
		if !ok {
			name := fmt.Sprintf("#%d", p.Definition)
			if p.Definition < len(tile.Terrains) {
				name = tile.Terrains[p.Definition]
			}
			s = &terrainStat{name: name}
			byTerrain[p.Definition] = s
		}
		s.patches++
		s.triangles += len(p.Triangles())
	}
	var stats []*terrainStat
	for _, s := range byTerrain {
		stats = append(stats, s)
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].triangles != stats[j].triangles {
			return stats[i].triangles > stats[j].triangles
		}
		return stats[i].name < stats[j].name
	})

	fmt.Printf("Patches: %d\n", len(tile.Patches))
	for _, s := range stats {
		fmt.Printf("  %-50s %5d patches %8d triangles\n", s.name, s.patches, s.triangles)
	}
	fmt.Println()

	fmt.Printf("Objects: %d  Networks: %d  Polygons: %d\n",
		tile.Stats.Objects, tile.Stats.NetworkChains, tile.Stats.Polygons)

	for _, r := range tile.Rasters {
		layout := "area-centric"
		if r.PostCentric() {
			layout = "post-centric"
		}
		fmt.Printf("Raster %q: %dx%d %s\n", r.Name, r.Width, r.Height, layout)
	}
}

func cmdTerrain(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: dsfimport terrain <file.ter>")
		os.Exit(1)
	}

	ter, err := formats.ParseTERFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Terrain:   %s\n", args[0])
	fmt.Printf("Projected: %v\n", ter.Projected())
	fmt.Println()
	for _, key := range ter.Keys {
		fmt.Printf("  %-20s %s\n", key, strings.Join(ter.Values[key], " "))
	}
}

func cmdImport(cfg *config.Config, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: dsfimport import <tile.dsf>")
		os.Exit(1)
	}

	path, err := filepath.Abs(args[0])
	if err != nil {
		path = args[0]
	}

	importer := terrain.NewImporter(cfg.Import, cfg.XPlane, logger.Log)
	result, err := importer.Import(path)
	if err != nil {
		logger.Error("import failed", zap.Error(err))
		os.Exit(1)
	}

	host := &scene.MemoryHost{}
	s, err := scene.Emit(host, result)
	if err != nil {
		logger.Error("scene commit failed", zap.Error(err))
		os.Exit(1)
	}

	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	if err := enc.Encode(s.Summary()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	enc.Close()
}

func cmdInitConfig(cfg *config.Config, args []string) {
	var (
		path string
		err  error
	)
	if len(args) > 0 {
		path = args[0]
		err = cfg.SaveTo(path)
	} else {
		path, err = cfg.Save()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Config written to %s\n", path)
}
