// Package save encodes characters' items into the bit-packed item records of
// a save file.
package save

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/d2s/internal/bitstream"
	"github.com/cory-johannsen/d2s/internal/game/item"
	"github.com/cory-johannsen/d2s/internal/game/ruleset"
)

// Format constants of an item record.
const (
	MarkerJ = 0x4A
	MarkerM = 0x4D

	// ListTerminator ends every property list; it is also the runeword list header.
	ListTerminator = 0x1FF

	propertyIDWidth = 9
	runewordTag     = 5
	tomeFillerWidth = 5
)

// setListMasks maps the number of set bonus lists to the stored bit mask.
var setListMasks = [item.MaxSetBonuses + 1]uint64{0, 1, 3, 7, 15, 31}

// PropertyLookup resolves a property id to its stored width and bias.
type PropertyLookup interface {
	Lookup(id int) (ruleset.Stat, error)
}

// TypeClassifier answers which item-specific fields a type code carries.
type TypeClassifier interface {
	IsArmorOrShield(code string) bool
	IsNonMisc(code string) bool
	IsTome(code string) bool
	HasQuantity(code string) bool
}

// ItemEncoder writes item trees. It holds only read-only tables, so a single
// encoder may be shared; every call encodes into its own private bit writer.
type ItemEncoder struct {
	props  PropertyLookup
	types  TypeClassifier
	logger *zap.Logger
}

// Option configures an ItemEncoder.
type Option func(*ItemEncoder)

// WithLogger logs one debug line per encoded item.
func WithLogger(l *zap.Logger) Option {
	return func(e *ItemEncoder) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewItemEncoder returns an encoder backed by the given tables.
//
// Precondition: props and types must be non-nil.
func NewItemEncoder(props PropertyLookup, types TypeClassifier, opts ...Option) *ItemEncoder {
	if props == nil || types == nil {
		panic("save.NewItemEncoder: precondition violated: tables must be non-nil")
	}
	e := &ItemEncoder{props: props, types: types, logger: zap.NewNop()}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Encode returns the bytes of it followed by its socketed items.
//
// Postcondition: returns the complete encoding, or nil and an error.
func (e *ItemEncoder) Encode(it *item.Item) ([]byte, error) {
	return e.Append(nil, it)
}

// Append encodes it and appends the bytes to dst. On error dst is returned
// unchanged; no partial record is ever appended.
func (e *ItemEncoder) Append(dst []byte, it *item.Item) ([]byte, error) {
	w := bitstream.NewWriter()
	if err := e.writeItem(w, it, "", 0); err != nil {
		return dst, err
	}
	return append(dst, w.Bytes()...), nil
}

// AppendAll encodes items in order and appends them to dst. Either every item
// is appended or, on the first error, none is.
func (e *ItemEncoder) AppendAll(dst []byte, items []*item.Item) ([]byte, error) {
	w := bitstream.NewWriter()
	for i, it := range items {
		if err := e.writeItem(w, it, fmt.Sprintf("items[%d]", i), 0); err != nil {
			return dst, err
		}
	}
	return append(dst, w.Bytes()...), nil
}

func bit(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func (e *ItemEncoder) writeItem(w *bitstream.Writer, it *item.Item, parent string, depth int) error {
	if it == nil {
		return &EncodeError{Path: parent, Err: ErrNilItem}
	}
	path := it.BaseCode()
	if parent != "" {
		path = parent + "/" + path
	}
	start := w.BitLen()

	// Validate property lists up front so a failing list never reaches the writer.
	ext, hasExt := it.Extended()
	if hasExt {
		if err := e.checkProperties(ext); err != nil {
			return &EncodeError{Path: path, Err: err}
		}
	}

	_ = w.WriteByte(MarkerJ)
	_ = w.WriteByte(MarkerM)

	w.WriteReversed(bit(it.Identified())<<4|bit(it.Socketed())<<11, 16)

	w.WriteReversed(bit(it.Simple())<<5|
		bit(it.Ethereal())<<6|
		1<<7|
		bit(it.Personalized())<<8|
		bit(it.HasRuneword())<<10, 26)

	// Store occupies bits 15-17; anything above is cut off by the field width.
	w.WriteReversed(uint64(it.Location())|
		uint64(it.EquipSlot())<<3|
		uint64(it.X())<<7|
		uint64(it.Y())<<11|
		uint64(it.Store())<<15, 18)

	var code uint64
	for i, c := range []byte(it.TypeCode()) {
		code |= uint64(c) << (8 * i)
	}
	w.WriteReversed(code, 32)

	w.WriteReversed(uint64(it.NumSocketed()), 3)

	if hasExt {
		e.writeExtended(w, it, ext)
	}
	payload := w.BitLen() - start
	var padding uint
	if p := w.Pending(); p > 0 {
		padding = 8 - p
	}
	w.Align()

	e.logger.Debug("encoded item",
		zap.String("path", path),
		zap.String("type", it.BaseCode()),
		zap.Bool("simple", !hasExt),
		zap.Uint64("payload_bits", payload),
		zap.Uint("padding_bits", padding),
		zap.Uint64("bytes", (w.BitLen()-start)/8),
		zap.Int("depth", depth),
	)

	for i, child := range it.Children() {
		if err := e.writeItem(w, child, fmt.Sprintf("%s/sockets[%d]", path, i), depth+1); err != nil {
			return err
		}
	}
	return nil
}

func (e *ItemEncoder) writeExtended(w *bitstream.Writer, it *item.Item, ext item.Extended) {
	code := it.TypeCode()
	tier := ext.Quality.Tier()

	w.WriteReversed(uint64(ext.ID), 32)
	w.WriteReversed(uint64(ext.Level), 7)
	w.WriteReversed(uint64(tier), 4)

	w.WriteReversed(bit(ext.GenericMagic), 1)
	if ext.GenericMagic {
		w.WriteReversed(uint64(ext.ImageType), 3)
	}
	w.WriteReversed(bit(ext.Expansion), 1)
	if ext.Expansion {
		w.WriteReversed(uint64(ext.ExpansionProperty), 11)
	}
	w.WriteReversed(bit(ext.LowQuality), 1)
	if ext.LowQuality {
		w.WriteReversed(uint64(ext.QualityData), 11)
	}

	writeQuality(w, ext.Quality)

	if ext.Runeword {
		w.WriteReversed(uint64(ext.RunewordID)<<4|runewordTag, 16)
	}

	if ext.Owner != "" {
		for _, c := range []byte(ext.Owner) {
			w.WriteReversed(uint64(c), 7)
		}
		w.WriteBits(0, 7)
	}

	w.WriteBool(ext.IdentifyAsTome)

	d := ext.Data
	if e.types.IsArmorOrShield(code) {
		w.WriteReversed(uint64(d.Defense), 10)
	}
	// A zero maximum marks an indestructible item; it has no current durability.
	if e.types.IsNonMisc(code) {
		w.WriteReversed(uint64(d.MaxDurability), 8)
		if d.MaxDurability > 0 {
			w.WriteReversed(uint64(d.CurrentDurability), 8)
		}
	}
	if it.Socketed() {
		w.WriteReversed(uint64(d.Sockets), 4)
	}
	if e.types.IsTome(code) {
		w.WriteBits(0, tomeFillerWidth)
	}
	if e.types.HasQuantity(code) {
		w.WriteReversed(uint64(d.Quantity), 9)
	}

	_, isSet := ext.Quality.(item.Set)
	if isSet {
		w.WriteReversed(setListMasks[len(d.SetBonuses)], 5)
	}

	if ext.Runeword {
		w.WriteReversed(ListTerminator, propertyIDWidth)
	}
	if item.AtLeastMagic(ext.Quality) || ext.Runeword {
		e.writeList(w, d.Properties)
	}
	if isSet {
		for _, bonus := range d.SetBonuses {
			e.writeList(w, []item.Property{bonus})
		}
	}
}

func writeQuality(w *bitstream.Writer, q item.Quality) {
	switch q := q.(type) {
	case item.Set:
		w.WriteReversed(uint64(q.SetID), 12)
	case item.Unique:
		w.WriteReversed(uint64(q.UniqueID), 12)
	case item.Rare:
		writeAffixes(w, q.Affixes)
	case item.Crafted:
		writeAffixes(w, q.Affixes)
	case item.Magic:
		w.WriteReversed(uint64(q.PrefixID), 11)
		w.WriteReversed(uint64(q.SuffixID), 11)
	default:
		// Low, normal and superior items keep the magic slots, zeroed.
		w.WriteReversed(0, 11)
		w.WriteReversed(0, 11)
	}
}

func writeAffixes(w *bitstream.Writer, a item.Affixes) {
	w.WriteReversed(uint64(a.FirstWordID), 8)
	w.WriteReversed(uint64(a.SecondWordID), 8)
	for i := 0; i < item.MaxAffixes; i++ {
		hasPrefix := i < len(a.Prefixes)
		w.WriteReversed(bit(hasPrefix), 1)
		if hasPrefix {
			w.WriteReversed(uint64(a.Prefixes[i]), 11)
		}
		hasSuffix := i < len(a.Suffixes)
		w.WriteReversed(bit(hasSuffix), 1)
		if hasSuffix {
			w.WriteReversed(uint64(a.Suffixes[i]), 11)
		}
	}
}

// checkProperties verifies every property the extended payload will write.
func (e *ItemEncoder) checkProperties(ext item.Extended) error {
	if item.AtLeastMagic(ext.Quality) || ext.Runeword {
		if err := e.checkList("magic", ext.Data.Properties); err != nil {
			return err
		}
	}
	if _, isSet := ext.Quality.(item.Set); isSet {
		if err := e.checkList("set bonus", ext.Data.SetBonuses); err != nil {
			return err
		}
	}
	return nil
}

func (e *ItemEncoder) checkList(name string, props []item.Property) error {
	for _, p := range props {
		if _, err := e.stored(name, p); err != nil {
			return err
		}
	}
	return nil
}

// stored returns the stat of p and its biased value.
func (e *ItemEncoder) stored(list string, p item.Property) (ruleset.Stat, error) {
	stat, err := e.props.Lookup(p.ID)
	if err != nil {
		return stat, &PropertyError{List: list, ID: p.ID, Value: p.Value, Err: err}
	}
	v := p.Value + stat.Bias
	if v < 0 || (stat.Width < 64 && uint64(v) >= uint64(1)<<stat.Width) {
		return stat, &PropertyError{
			List:   list,
			ID:     p.ID,
			Value:  v,
			Width:  stat.Width,
			Reason: "biased value does not fit the field",
		}
	}
	return stat, nil
}

// writeList writes (id, value) pairs followed by the terminator. The list has
// been checked by checkProperties, so lookups cannot fail here.
func (e *ItemEncoder) writeList(w *bitstream.Writer, props []item.Property) {
	for _, p := range props {
		stat, _ := e.props.Lookup(p.ID)
		w.WriteReversed(uint64(p.ID), propertyIDWidth)
		w.WriteReversed(uint64(p.Value+stat.Bias), stat.Width)
	}
	w.WriteReversed(ListTerminator, propertyIDWidth)
}
