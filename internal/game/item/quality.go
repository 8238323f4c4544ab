package item

import (
	"fmt"
	"slices"
)

// Tier is the 4-bit quality code stored in the extended payload.
type Tier uint8

// Quality tiers in save-code order.
const (
	TierLow Tier = iota + 1
	TierNormal
	TierSuperior
	TierMagic
	TierSet
	TierRare
	TierUnique
	TierCrafted
)

var tierNames = map[Tier]string{
	TierLow:      "low",
	TierNormal:   "normal",
	TierSuperior: "superior",
	TierMagic:    "magic",
	TierSet:      "set",
	TierRare:     "rare",
	TierUnique:   "unique",
	TierCrafted:  "crafted",
}

func (t Tier) String() string {
	if n, ok := tierNames[t]; ok {
		return n
	}
	return fmt.Sprintf("Tier(%d)", uint8(t))
}

// ParseTier returns the tier named by s, as printed by Tier.String.
func ParseTier(s string) (Tier, error) {
	for t, n := range tierNames {
		if n == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("item: unknown quality tier %q", s)
}

// Quality is the closed set of quality variants. Each variant carries only
// the identifiers that are valid for its tier.
type Quality interface {
	Tier() Tier
	isQuality()
}

// Low is an inferior (cracked, crude, damaged) item.
type Low struct{}

// Normal is a plain white item.
type Normal struct{}

// Superior is a white item with superior base stats.
type Superior struct{}

// Magic is a blue item with one prefix and one suffix slot.
type Magic struct {
	PrefixID int
	SuffixID int
}

// Set is a member of an item set.
type Set struct {
	SetID int
}

// Unique is a unique item.
type Unique struct {
	UniqueID int
}

// Affixes are the name words and affix ids shared by rare and crafted items.
// Up to three prefixes and three suffixes may be present.
type Affixes struct {
	FirstWordID  int
	SecondWordID int
	Prefixes     []int
	Suffixes     []int
}

// Rare is a yellow item.
type Rare struct {
	Affixes
}

// Crafted is an orange item.
type Crafted struct {
	Affixes
}

func (Low) Tier() Tier      { return TierLow }
func (Normal) Tier() Tier   { return TierNormal }
func (Superior) Tier() Tier { return TierSuperior }
func (Magic) Tier() Tier    { return TierMagic }
func (Set) Tier() Tier      { return TierSet }
func (Rare) Tier() Tier     { return TierRare }
func (Unique) Tier() Tier   { return TierUnique }
func (Crafted) Tier() Tier  { return TierCrafted }

// AtLeastMagic reports whether q carries a magical property list.
func AtLeastMagic(q Quality) bool {
	return q != nil && q.Tier() >= TierMagic
}

func (Low) isQuality()      {}
func (Normal) isQuality()   {}
func (Superior) isQuality() {}
func (Magic) isQuality()    {}
func (Set) isQuality()      {}
func (Rare) isQuality()     {}
func (Unique) isQuality()   {}
func (Crafted) isQuality()  {}

// MaxAffixes is the number of prefix and of suffix slots on rare and crafted items.
const MaxAffixes = 3

func (a Affixes) clone() Affixes {
	a.Prefixes = slices.Clone(a.Prefixes)
	a.Suffixes = slices.Clone(a.Suffixes)
	return a
}

func cloneQuality(q Quality) Quality {
	switch v := q.(type) {
	case Rare:
		return Rare{Affixes: v.Affixes.clone()}
	case Crafted:
		return Crafted{Affixes: v.Affixes.clone()}
	default:
		return q
	}
}

func validateQuality(v *validator, path string, q Quality) {
	switch q := q.(type) {
	case nil:
		v.add(path, nil, "quality is required on extended items")
	case Low, Normal, Superior:
	case Magic:
		v.bits(path+".prefix_id", q.PrefixID, 11)
		v.bits(path+".suffix_id", q.SuffixID, 11)
	case Set:
		v.bits(path+".set_id", q.SetID, 12)
	case Unique:
		v.bits(path+".unique_id", q.UniqueID, 12)
	case Rare:
		validateAffixes(v, path, q.Affixes)
	case Crafted:
		validateAffixes(v, path, q.Affixes)
	default:
		v.add(path, fmt.Sprintf("%T", q), "unsupported quality variant")
	}
}

func validateAffixes(v *validator, path string, a Affixes) {
	v.bits(path+".first_word_id", a.FirstWordID, 8)
	v.bits(path+".second_word_id", a.SecondWordID, 8)
	if len(a.Prefixes) > MaxAffixes {
		v.add(path+".prefixes", len(a.Prefixes), fmt.Sprintf("at most %d prefixes", MaxAffixes))
	}
	if len(a.Suffixes) > MaxAffixes {
		v.add(path+".suffixes", len(a.Suffixes), fmt.Sprintf("at most %d suffixes", MaxAffixes))
	}
	for i, id := range a.Prefixes {
		v.bits(fmt.Sprintf("%s.prefixes[%d]", path, i), id, 11)
	}
	for i, id := range a.Suffixes {
		v.bits(fmt.Sprintf("%s.suffixes[%d]", path, i), id, 11)
	}
}
