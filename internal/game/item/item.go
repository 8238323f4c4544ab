// Package item defines the immutable item model written into the item list
// of a save file: placement flags, type code, the optional extended payload,
// and socketed child items.
package item

import (
	"fmt"
	"slices"
	"strings"
)

// Item locations.
const (
	Stored   = 0
	Equipped = 1
	Belt     = 2
	Cursor   = 4
	Socketed = 6
)

// Item stores for stored items.
const (
	StoreNone      = 0
	StoreInventory = 1
	StoreCube      = 4
	StoreStash     = 5
)

// Field limits of the extended payload.
const (
	MaxSetBonuses = 5
	MaxOwnerLen   = 15
	TypeCodeLen   = 4
)

// Property is one (id, value) pair of a magical or set-bonus property list.
type Property struct {
	ID    int
	Value int64
}

// Data is the item-type specific record of an extended item. Which of its
// fields are written depends on the item type; the rest are ignored.
//
// CurrentDurability is written only when MaxDurability > 0; a zero maximum
// marks an indestructible item. The number of set-bonus lists written is
// len(SetBonuses).
type Data struct {
	Defense           int
	MaxDurability     int
	CurrentDurability int
	Sockets           int
	Quantity          int
	Properties        []Property
	SetBonuses        []Property
}

// Extended is the payload of a non-simple item.
type Extended struct {
	ID    uint32
	Level int

	Quality Quality

	// GenericMagic marks rings, amulets, jewels and charms that carry a picture index.
	GenericMagic bool
	ImageType    int

	Expansion         bool
	ExpansionProperty int

	LowQuality  bool
	QualityData int

	Runeword   bool
	RunewordID int

	// Owner is the personalized name; an empty owner means not personalized.
	Owner string

	IdentifyAsTome bool

	Data Data
}

func (e Extended) clone() Extended {
	e.Quality = cloneQuality(e.Quality)
	e.Data.Properties = slices.Clone(e.Data.Properties)
	e.Data.SetBonuses = slices.Clone(e.Data.SetBonuses)
	return e
}

// Spec is the mutable description of an item tree passed to New.
// A nil Extended makes the item simple.
type Spec struct {
	TypeCode   string
	Identified bool
	Socketed   bool
	Ethereal   bool

	Location  int
	EquipSlot int
	X         int
	Y         int
	Store     int

	// NumSocketed is the declared number of filled sockets; it must equal len(Children).
	NumSocketed int

	Extended *Extended
	Children []Spec
}

// Item is a validated, immutable item tree. It is only obtainable from New.
type Item struct {
	typeCode   string
	identified bool
	socketed   bool
	ethereal   bool

	location  int
	equipSlot int
	x         int
	y         int
	store     int

	ext      *Extended
	children []*Item
}

// New validates spec and returns an immutable copy of the item tree.
//
// Precondition: none; every violation is reported.
// Postcondition: returns a non-nil Item or an error joining one
// *ValidationError per violated invariant.
func New(spec Spec) (*Item, error) {
	v := &validator{}
	validateSpec(v, "", spec)
	if err := v.err(); err != nil {
		return nil, err
	}
	return build(spec), nil
}

func build(spec Spec) *Item {
	it := &Item{
		typeCode:   normalizeTypeCode(spec.TypeCode),
		identified: spec.Identified,
		socketed:   spec.Socketed,
		ethereal:   spec.Ethereal,
		location:   spec.Location,
		equipSlot:  spec.EquipSlot,
		x:          spec.X,
		y:          spec.Y,
		store:      spec.Store,
	}
	if spec.Extended != nil {
		ext := spec.Extended.clone()
		it.ext = &ext
	}
	for _, c := range spec.Children {
		it.children = append(it.children, build(c))
	}
	return it
}

// normalizeTypeCode pads a 3-character base code with the trailing space the
// format stores.
func normalizeTypeCode(code string) string {
	if len(code) == TypeCodeLen-1 {
		return code + " "
	}
	return code
}

// TypeCode returns the 4-character stored type code, e.g. "rin ".
func (it *Item) TypeCode() string { return it.typeCode }

// BaseCode returns the 3-character type code without the trailing space.
func (it *Item) BaseCode() string { return strings.TrimRight(it.typeCode, " ") }

func (it *Item) Identified() bool { return it.identified }
func (it *Item) Socketed() bool   { return it.socketed }
func (it *Item) Ethereal() bool   { return it.ethereal }
func (it *Item) Location() int    { return it.location }
func (it *Item) EquipSlot() int   { return it.equipSlot }
func (it *Item) X() int           { return it.x }
func (it *Item) Y() int           { return it.y }
func (it *Item) Store() int       { return it.store }

// Simple reports whether the item lacks the extended payload.
func (it *Item) Simple() bool { return it.ext == nil }

// Personalized reports whether the item carries an owner name.
func (it *Item) Personalized() bool { return it.ext != nil && it.ext.Owner != "" }

// HasRuneword reports whether the item carries a runeword.
func (it *Item) HasRuneword() bool { return it.ext != nil && it.ext.Runeword }

// NumSocketed returns the number of filled sockets.
func (it *Item) NumSocketed() int { return len(it.children) }

// Extended returns a copy of the extended payload, or false for simple items.
func (it *Item) Extended() (Extended, bool) {
	if it.ext == nil {
		return Extended{}, false
	}
	return it.ext.clone(), true
}

// Children returns the socketed items in write order.
func (it *Item) Children() []*Item {
	return slices.Clone(it.children)
}

// String returns a short human-readable description.
func (it *Item) String() string {
	if it.ext == nil {
		return fmt.Sprintf("%s (simple)", it.BaseCode())
	}
	return fmt.Sprintf("%s (%s, ilvl %d)", it.BaseCode(), it.ext.Quality.Tier(), it.ext.Level)
}

func join(path, field string) string {
	if path == "" {
		return field
	}
	return path + "." + field
}

func validateSpec(v *validator, path string, s Spec) {
	validateTypeCode(v, join(path, "type_code"), s.TypeCode)
	v.bits(join(path, "location"), s.Location, 3)
	v.bits(join(path, "equip_slot"), s.EquipSlot, 4)
	v.bits(join(path, "x"), s.X, 4)
	v.bits(join(path, "y"), s.Y, 4)
	v.bits(join(path, "store"), s.Store, 3)
	v.bits(join(path, "num_socketed"), s.NumSocketed, 3)

	if s.NumSocketed != len(s.Children) {
		v.add(join(path, "children"), len(s.Children),
			fmt.Sprintf("socket list length must equal num_socketed %d", s.NumSocketed))
	}
	if s.NumSocketed > 0 && !s.Socketed {
		v.add(join(path, "socketed"), s.Socketed, "must be set when sockets are filled")
	}

	if s.Extended != nil {
		validateExtended(v, join(path, "extended"), s, *s.Extended)
	}

	for i, c := range s.Children {
		validateSpec(v, fmt.Sprintf("%s[%d]", join(path, "children"), i), c)
	}
}

func validateTypeCode(v *validator, field, code string) {
	switch {
	case len(code) == TypeCodeLen-1:
	case len(code) == TypeCodeLen && code[TypeCodeLen-1] == ' ':
	default:
		v.add(field, code, "must be 3 characters, optionally followed by one space")
		return
	}
	for i := 0; i < TypeCodeLen-1; i++ {
		if code[i] <= ' ' || code[i] > '~' {
			v.add(field, code, "must be printable ASCII")
			return
		}
	}
}

func validateExtended(v *validator, path string, s Spec, e Extended) {
	v.bits(join(path, "level"), e.Level, 7)
	validateQuality(v, join(path, "quality"), e.Quality)

	if e.GenericMagic {
		v.bits(join(path, "image_type"), e.ImageType, 3)
	} else if e.ImageType != 0 {
		v.add(join(path, "image_type"), e.ImageType, "requires generic_magic")
	}
	if e.Expansion {
		v.bits(join(path, "expansion_property"), e.ExpansionProperty, 11)
	} else if e.ExpansionProperty != 0 {
		v.add(join(path, "expansion_property"), e.ExpansionProperty, "requires expansion")
	}
	if e.LowQuality {
		v.bits(join(path, "quality_data"), e.QualityData, 11)
	} else if e.QualityData != 0 {
		v.add(join(path, "quality_data"), e.QualityData, "requires low_quality")
	}
	if e.Runeword {
		v.bits(join(path, "runeword_id"), e.RunewordID, 12)
	} else if e.RunewordID != 0 {
		v.add(join(path, "runeword_id"), e.RunewordID, "requires runeword")
	}

	if len(e.Owner) > MaxOwnerLen {
		v.add(join(path, "owner"), e.Owner, fmt.Sprintf("at most %d characters", MaxOwnerLen))
	}
	for i := 0; i < len(e.Owner); i++ {
		if c := e.Owner[i]; c == 0 || c > 0x7F {
			v.add(join(path, "owner"), e.Owner, "must be 7-bit ASCII without NUL")
			break
		}
	}

	d := e.Data
	v.bits(join(path, "data.defense"), d.Defense, 10)
	v.bits(join(path, "data.max_durability"), d.MaxDurability, 8)
	v.bits(join(path, "data.current_durability"), d.CurrentDurability, 8)
	if d.CurrentDurability > d.MaxDurability {
		v.add(join(path, "data.current_durability"), d.CurrentDurability,
			fmt.Sprintf("must not exceed max_durability %d", d.MaxDurability))
	}
	v.bits(join(path, "data.sockets"), d.Sockets, 4)
	if s.Socketed && s.NumSocketed > d.Sockets {
		v.add(join(path, "data.sockets"), d.Sockets,
			fmt.Sprintf("must be at least num_socketed %d", s.NumSocketed))
	}
	if !s.Socketed && d.Sockets != 0 {
		v.add(join(path, "data.sockets"), d.Sockets, "requires socketed")
	}
	v.bits(join(path, "data.quantity"), d.Quantity, 9)

	if len(d.SetBonuses) > MaxSetBonuses {
		v.add(join(path, "data.set_bonuses"), len(d.SetBonuses),
			fmt.Sprintf("at most %d set bonus lists", MaxSetBonuses))
	}
	if _, isSet := e.Quality.(Set); !isSet && len(d.SetBonuses) > 0 {
		v.add(join(path, "data.set_bonuses"), len(d.SetBonuses), "only set items carry set bonuses")
	}
	if e.Quality != nil && e.Quality.Tier() < TierMagic && !e.Runeword && len(d.Properties) > 0 {
		v.add(join(path, "data.properties"), len(d.Properties),
			"only magic or better items and runewords carry magical properties")
	}
}
