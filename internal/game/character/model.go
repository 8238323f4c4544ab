// Package character defines the character classes and the level-derived
// attribute values written into a save file.
package character

import (
	"fmt"
	"strings"
)

// Class is a character class in save-code order.
type Class uint8

// The seven playable classes. The numeric value is the class byte of the save header.
const (
	Amazon Class = iota
	Sorceress
	Necromancer
	Paladin
	Barbarian
	Druid
	Assassin

	numClasses
)

var classNames = [numClasses]string{
	Amazon:      "Amazon",
	Sorceress:   "Sorceress",
	Necromancer: "Necromancer",
	Paladin:     "Paladin",
	Barbarian:   "Barbarian",
	Druid:       "Druid",
	Assassin:    "Assassin",
}

var classAliases = map[string]Class{
	"ama":   Amazon,
	"sorc":  Sorceress,
	"necro": Necromancer,
	"pala":  Paladin,
	"pal":   Paladin,
	"barb":  Barbarian,
	"dru":   Druid,
	"sin":   Assassin,
}

// Valid reports whether c is one of the seven classes.
func (c Class) Valid() bool {
	return c < numClasses
}

// String returns the display name of the class.
func (c Class) String() string {
	if !c.Valid() {
		return fmt.Sprintf("Class(%d)", uint8(c))
	}
	return classNames[c]
}

// Classes returns all classes in save-code order.
//
// Postcondition: len(result) == 7.
func Classes() []Class {
	out := make([]Class, 0, numClasses)
	for c := Amazon; c < numClasses; c++ {
		out = append(out, c)
	}
	return out
}

// ParseClass resolves a class from its full name or a common short name,
// ignoring case.
//
// Postcondition: returns a valid Class or a non-nil error.
func ParseClass(name string) (Class, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for c, n := range classNames {
		if strings.ToLower(n) == key {
			return Class(c), nil
		}
	}
	if c, ok := classAliases[key]; ok {
		return c, nil
	}
	return 0, fmt.Errorf("character: unknown class %q", name)
}

// Base holds the level 1 attribute row of a class.
type Base struct {
	Strength  int
	Dexterity int
	Vitality  int
	Energy    int
	Life      int
	Stamina   int
	Mana      int
}

// Growth holds the per-level increase of the derived resources.
type Growth struct {
	Life    float64
	Stamina float64
	Mana    float64
}

// Table is the fixed class row used by Compute.
type Table struct {
	Base   Base
	Growth Growth
}

var tables = [numClasses]Table{
	Amazon: {
		Base:   Base{Strength: 20, Dexterity: 25, Vitality: 20, Energy: 15, Life: 50, Stamina: 84, Mana: 15},
		Growth: Growth{Life: 3, Stamina: 1, Mana: 1.5},
	},
	Sorceress: {
		Base:   Base{Strength: 10, Dexterity: 25, Vitality: 10, Energy: 35, Life: 40, Stamina: 74, Mana: 35},
		Growth: Growth{Life: 2, Stamina: 1, Mana: 2},
	},
	Necromancer: {
		Base:   Base{Strength: 15, Dexterity: 25, Vitality: 15, Energy: 25, Life: 45, Stamina: 79, Mana: 25},
		Growth: Growth{Life: 2, Stamina: 1, Mana: 2},
	},
	Paladin: {
		Base:   Base{Strength: 25, Dexterity: 20, Vitality: 25, Energy: 15, Life: 55, Stamina: 89, Mana: 15},
		Growth: Growth{Life: 3, Stamina: 1, Mana: 1.5},
	},
	Barbarian: {
		Base:   Base{Strength: 30, Dexterity: 20, Vitality: 25, Energy: 10, Life: 55, Stamina: 92, Mana: 10},
		Growth: Growth{Life: 4, Stamina: 1, Mana: 1},
	},
	Druid: {
		Base:   Base{Strength: 15, Dexterity: 20, Vitality: 25, Energy: 20, Life: 55, Stamina: 84, Mana: 20},
		Growth: Growth{Life: 2, Stamina: 1, Mana: 2},
	},
	Assassin: {
		Base:   Base{Strength: 20, Dexterity: 20, Vitality: 20, Energy: 25, Life: 50, Stamina: 95, Mana: 25},
		Growth: Growth{Life: 3, Stamina: 1.25, Mana: 1.75},
	},
}

// TableFor returns the attribute row of c.
//
// Precondition: c.Valid(); an invalid class panics.
func TableFor(c Class) Table {
	if !c.Valid() {
		panic(fmt.Sprintf("character: invalid class %d", uint8(c)))
	}
	return tables[c]
}
