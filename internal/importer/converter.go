package importer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cory-johannsen/d2s/internal/game/character"
	"github.com/cory-johannsen/d2s/internal/game/item"
	"github.com/cory-johannsen/d2s/internal/game/ruleset"
)

// Level and gold limits of a submission.
const (
	MinLevel     = 1
	MaxLevel     = 99
	GoldPerLevel = 10000
	MaxStashGold = 2500000
)

// Character is a validated submission: attributes computed for the class and
// level, and immutable items ready to encode.
type Character struct {
	Name       string
	Attributes character.Snapshot
	Gold       int
	StashGold  int
	Items      []*item.Item
}

// StatNames resolves property stat names to table entries.
type StatNames interface {
	ByName(name string) (ruleset.Stat, bool)
}

// Converter turns submissions into Characters.
type Converter struct {
	stats StatNames
}

// NewConverter returns a Converter resolving stat names through stats.
//
// Precondition: stats must be non-nil.
func NewConverter(stats StatNames) *Converter {
	if stats == nil {
		panic("importer.NewConverter: stats must not be nil")
	}
	return &Converter{stats: stats}
}

// Convert validates doc and builds its Character. Header problems and every
// failing item are reported together.
//
// Precondition: doc must be non-nil.
// Postcondition: returns a non-nil Character, or an error joining all violations.
func (c *Converter) Convert(doc *Document) (*Character, error) {
	var errs []error

	if err := ValidateName(doc.Name); err != nil {
		errs = append(errs, err)
	}
	class, err := character.ParseClass(doc.Class)
	if err != nil {
		errs = append(errs, err)
	}
	if doc.Level < MinLevel || doc.Level > MaxLevel {
		errs = append(errs, fmt.Errorf("level %d out of range [%d, %d]", doc.Level, MinLevel, MaxLevel))
	}
	if doc.Gold < 0 || doc.Gold > doc.Level*GoldPerLevel {
		errs = append(errs, fmt.Errorf("gold %d out of range [0, %d] at level %d", doc.Gold, doc.Level*GoldPerLevel, doc.Level))
	}
	if doc.StashGold < 0 || doc.StashGold > MaxStashGold {
		errs = append(errs, fmt.Errorf("stash gold %d out of range [0, %d]", doc.StashGold, MaxStashGold))
	}

	items := make([]*item.Item, 0, len(doc.Items))
	for i, d := range doc.Items {
		path := fmt.Sprintf("items[%d]", i)
		it, err := c.buildItem(doc.Name, path, d)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s (%s): %w", path, d.Code, err))
			continue
		}
		items = append(items, it)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("importer: invalid character %q: %w", doc.Name, errors.Join(errs...))
	}
	return &Character{
		Name:       doc.Name,
		Attributes: character.Compute(class, doc.Level),
		Gold:       doc.Gold,
		StashGold:  doc.StashGold,
		Items:      items,
	}, nil
}

func (c *Converter) buildItem(name, path string, d ItemDoc) (*item.Item, error) {
	spec, err := c.itemSpec(name, path, d)
	if err != nil {
		return nil, err
	}
	return item.New(spec)
}

func (c *Converter) itemSpec(name, path string, d ItemDoc) (item.Spec, error) {
	b := item.NewBuilder(d.Code).
		Socketed(d.Socketed).
		Ethereal(d.Ethereal).
		At(d.Location, d.EquipSlot, d.X, d.Y, d.Store)
	if d.Identified != nil {
		b.Identified(*d.Identified)
	}
	if d.Extended != nil {
		ext, err := c.extended(name, path, *d.Extended)
		if err != nil {
			return item.Spec{}, err
		}
		b.Extended(ext)
	}
	if len(d.Sockets) > 0 {
		children := make([]item.Spec, 0, len(d.Sockets))
		for i, sd := range d.Sockets {
			// Socket fillers live in their parent unless placed explicitly.
			if sd.Location == item.Stored {
				sd.Location = item.Socketed
			}
			child, err := c.itemSpec(name, fmt.Sprintf("%s/sockets[%d]", path, i), sd)
			if err != nil {
				return item.Spec{}, fmt.Errorf("sockets[%d]: %w", i, err)
			}
			children = append(children, child)
		}
		b.Sockets(children...)
	}
	return b.Spec(), nil
}

func (c *Converter) extended(name, path string, d ExtendedDoc) (item.Extended, error) {
	var errs []error

	q, err := quality(d.Quality)
	if err != nil {
		errs = append(errs, err)
	}
	owner, err := FoldOwner(d.Owner)
	if err != nil {
		errs = append(errs, err)
	}
	props, err := c.properties("properties", d.Properties)
	if err != nil {
		errs = append(errs, err)
	}
	bonuses, err := c.properties("set_bonuses", d.SetBonuses)
	if err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return item.Extended{}, errors.Join(errs...)
	}

	ext := item.Extended{
		Level:          d.Level,
		Quality:        q,
		Owner:          owner,
		IdentifyAsTome: d.IdentifyAsTome,
		Data: item.Data{
			Defense:           d.Defense,
			MaxDurability:     d.MaxDurability,
			CurrentDurability: d.CurrentDurability,
			Sockets:           d.Sockets,
			Quantity:          d.Quantity,
			Properties:        props,
			SetBonuses:        bonuses,
		},
	}
	if d.ID != nil {
		ext.ID = *d.ID
	} else {
		ext.ID = DeriveItemID(name, path)
	}
	if d.ImageType != nil {
		ext.GenericMagic, ext.ImageType = true, *d.ImageType
	}
	if d.ExpansionProperty != nil {
		ext.Expansion, ext.ExpansionProperty = true, *d.ExpansionProperty
	}
	if d.QualityData != nil {
		ext.LowQuality, ext.QualityData = true, *d.QualityData
	}
	if d.Runeword != nil {
		ext.Runeword, ext.RunewordID = true, *d.Runeword
	}
	return ext, nil
}

func (c *Converter) properties(list string, docs []PropertyDoc) ([]item.Property, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	var errs []error
	out := make([]item.Property, 0, len(docs))
	for i, d := range docs {
		switch {
		case d.ID != nil && d.Stat != "":
			errs = append(errs, fmt.Errorf("%s[%d]: give either id or stat, not both", list, i))
		case d.ID != nil:
			out = append(out, item.Property{ID: *d.ID, Value: d.Value})
		case d.Stat != "":
			s, ok := c.stats.ByName(d.Stat)
			if !ok {
				errs = append(errs, fmt.Errorf("%s[%d]: unknown stat %q", list, i, d.Stat))
				continue
			}
			out = append(out, item.Property{ID: s.ID, Value: d.Value})
		default:
			errs = append(errs, fmt.Errorf("%s[%d]: id or stat is required", list, i))
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

// quality builds the variant named by d.Tier and rejects identifiers that
// belong to a different tier.
func quality(d QualityDoc) (item.Quality, error) {
	tier, err := item.ParseTier(d.Tier)
	if err != nil {
		return nil, err
	}

	set := map[string]bool{
		"prefix":      d.Prefix != 0,
		"suffix":      d.Suffix != 0,
		"set_id":      d.SetID != 0,
		"unique_id":   d.UniqueID != 0,
		"first_word":  d.FirstWord != 0,
		"second_word": d.SecondWord != 0,
		"prefixes":    len(d.Prefixes) > 0,
		"suffixes":    len(d.Suffixes) > 0,
	}
	var (
		q       item.Quality
		allowed []string
	)
	affixes := item.Affixes{
		FirstWordID:  d.FirstWord,
		SecondWordID: d.SecondWord,
		Prefixes:     d.Prefixes,
		Suffixes:     d.Suffixes,
	}
	switch tier {
	case item.TierLow:
		q = item.Low{}
	case item.TierNormal:
		q = item.Normal{}
	case item.TierSuperior:
		q = item.Superior{}
	case item.TierMagic:
		q, allowed = item.Magic{PrefixID: d.Prefix, SuffixID: d.Suffix}, []string{"prefix", "suffix"}
	case item.TierSet:
		q, allowed = item.Set{SetID: d.SetID}, []string{"set_id"}
	case item.TierUnique:
		q, allowed = item.Unique{UniqueID: d.UniqueID}, []string{"unique_id"}
	case item.TierRare:
		q, allowed = item.Rare{Affixes: affixes}, []string{"first_word", "second_word", "prefixes", "suffixes"}
	case item.TierCrafted:
		q, allowed = item.Crafted{Affixes: affixes}, []string{"first_word", "second_word", "prefixes", "suffixes"}
	}
	for _, f := range allowed {
		delete(set, f)
	}
	var stray []string
	for _, f := range []string{"prefix", "suffix", "set_id", "unique_id", "first_word", "second_word", "prefixes", "suffixes"} {
		if set[f] {
			stray = append(stray, f)
		}
	}
	if len(stray) > 0 {
		return nil, fmt.Errorf("quality %s does not take %s", tier, strings.Join(stray, ", "))
	}
	return q, nil
}
