// Package importer turns character submissions into encoded item lists.
package importer

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/d2s/internal/config"
	"github.com/cory-johannsen/d2s/internal/game/item"
)

// Encoder serializes an item list. *save.ItemEncoder satisfies it.
type Encoder interface {
	AppendAll(dst []byte, items []*item.Item) ([]byte, error)
}

// Result describes one completed import.
type Result struct {
	Path      string
	Character *Character
	Bytes     int
}

// Importer orchestrates loading a submission from a Source, converting it,
// encoding its items and writing the encoded file.
type Importer struct {
	source    Source
	converter *Converter
	encoder   Encoder
	logger    *zap.Logger
}

// New constructs an Importer.
//
// Precondition: all arguments must be non-nil.
// Postcondition: returns a non-nil Importer.
func New(source Source, converter *Converter, encoder Encoder, logger *zap.Logger) *Importer {
	return &Importer{source: source, converter: converter, encoder: encoder, logger: logger}
}

// Run imports the submission at inPath and writes its encoded items to
// out.Path(<character name>).
//
// Precondition: out must have passed config validation.
// Postcondition: the output file holds the encoded items of every submitted
// item in order, or an error is returned and no file is written.
func (imp *Importer) Run(inPath string, out config.OutputConfig) (*Result, error) {
	start := time.Now()

	doc, err := imp.source.Load(inPath)
	if err != nil {
		return nil, fmt.Errorf("loading source: %w", err)
	}
	ch, err := imp.converter.Convert(doc)
	if err != nil {
		return nil, err
	}

	a := ch.Attributes
	imp.logger.Info("character validated",
		zap.String("name", ch.Name),
		zap.Stringer("class", a.Class),
		zap.Int("level", a.Level),
		zap.Uint32("life_fixed", a.LifeFixed()),
		zap.Uint32("stamina_fixed", a.StaminaFixed()),
		zap.Uint32("mana_fixed", a.ManaFixed()),
		zap.Int("items", len(ch.Items)),
	)

	data, err := imp.encoder.AppendAll(nil, ch.Items)
	if err != nil {
		return nil, fmt.Errorf("encoding %q: %w", ch.Name, err)
	}

	if err := os.MkdirAll(out.Dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory %s: %w", out.Dir, err)
	}
	outPath := out.Path(ch.Name)
	if err := os.WriteFile(outPath, data, 0644); err != nil {
		return nil, fmt.Errorf("writing %s: %w", outPath, err)
	}

	imp.logger.Info("wrote item list",
		zap.String("path", outPath),
		zap.Int("bytes", len(data)),
		zap.Duration("elapsed", time.Since(start).Round(time.Millisecond)),
	)
	return &Result{Path: outPath, Character: ch, Bytes: len(data)}, nil
}
