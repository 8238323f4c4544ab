// Package main provides the d2sencode binary, which validates a character
// submission and writes the encoded item list of its items.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/d2s/internal/config"
	"github.com/cory-johannsen/d2s/internal/game/ruleset"
	"github.com/cory-johannsen/d2s/internal/importer"
	"github.com/cory-johannsen/d2s/internal/observability"
	"github.com/cory-johannsen/d2s/internal/save"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "", "path to configuration file; empty = defaults and D2S_ environment")
	inPath := flag.String("in", "", "path to the character submission YAML")
	outDir := flag.String("out", "", "output directory; overrides output.dir")
	flag.Parse()

	if *inPath == "" {
		fmt.Fprintln(os.Stderr, "usage: d2sencode -in <submission.yaml> [-config <file>] [-out <dir>]")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if *outDir != "" {
		cfg.Output.Dir = *outDir
	}

	logger, err := observability.NewLogger(cfg.Logging, zap.String("component", "d2sencode"))
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	props, err := loadProperties(cfg.Tables.Properties)
	if err != nil {
		logger.Fatal("loading property table", zap.Error(err))
	}
	types, err := loadItemTypes(cfg.Tables.ItemTypes)
	if err != nil {
		logger.Fatal("loading item types", zap.Error(err))
	}
	logger.Debug("tables loaded",
		zap.Int("properties", len(props.Defined())),
		zap.String("properties_path", cfg.Tables.Properties),
		zap.String("item_types_path", cfg.Tables.ItemTypes),
	)

	enc := save.NewItemEncoder(props, types, save.WithLogger(logger))
	imp := importer.New(importer.NewYAMLSource(), importer.NewConverter(props), enc, logger)

	res, err := imp.Run(*inPath, cfg.Output)
	if err != nil {
		logger.Fatal("import failed", zap.String("in", *inPath), zap.Error(err))
	}

	logger.Info("encode complete",
		zap.String("path", res.Path),
		zap.Int("items", len(res.Character.Items)),
		zap.Duration("elapsed", time.Since(start).Round(time.Millisecond)),
	)
}

// loadProperties returns the table at path, or the built-in table when path is empty.
func loadProperties(path string) (*ruleset.PropertyTable, error) {
	if path == "" {
		return ruleset.DefaultPropertyTable()
	}
	return ruleset.LoadPropertyTable(path)
}

func loadItemTypes(path string) (*ruleset.ItemTypes, error) {
	if path == "" {
		return ruleset.DefaultItemTypes()
	}
	return ruleset.LoadItemTypes(path)
}
