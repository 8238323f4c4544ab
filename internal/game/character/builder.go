package character

import "math"

// Snapshot is the attribute block of a character at a given level.
// Strength, Dexterity, Vitality and Energy stay at the class base; Life,
// Stamina and Mana grow linearly with level.
type Snapshot struct {
	Class Class
	Level int

	Strength  int
	Dexterity int
	Vitality  int
	Energy    int

	Life    float64
	Stamina float64
	Mana    float64
}

// Compute derives the attribute snapshot of class c at level.
//
// Precondition: c.Valid() (an invalid class panics); level >= 1.
// Postcondition: Life == base + growth*(level-1), likewise Stamina and Mana.
func Compute(c Class, level int) Snapshot {
	t := TableFor(c)
	gained := float64(level - 1)
	return Snapshot{
		Class:     c,
		Level:     level,
		Strength:  t.Base.Strength,
		Dexterity: t.Base.Dexterity,
		Vitality:  t.Base.Vitality,
		Energy:    t.Base.Energy,
		Life:      float64(t.Base.Life) + t.Growth.Life*gained,
		Stamina:   float64(t.Base.Stamina) + t.Growth.Stamina*gained,
		Mana:      float64(t.Base.Mana) + t.Growth.Mana*gained,
	}
}

// LifeFixed returns Life as 24.8 fixed point. Life growth is integral, so the
// fraction byte is always zero.
func (s Snapshot) LifeFixed() uint32 {
	return uint32(int64(s.Life)) << 8
}

// StaminaFixed returns Stamina as 24.8 fixed point.
func (s Snapshot) StaminaFixed() uint32 {
	return FixedPoint(s.Stamina)
}

// ManaFixed returns Mana as 24.8 fixed point.
func (s Snapshot) ManaFixed() uint32 {
	return FixedPoint(s.Mana)
}

// FixedPoint packs v into 24.8 fixed point: the truncated integer part in the
// high 24 bits and floor(256 * fraction) in the low 8 bits.
//
// Precondition: 0 <= v < 1<<24.
func FixedPoint(v float64) uint32 {
	whole := math.Trunc(v)
	frac := uint32(256 * (v - whole))
	return uint32(whole)<<8 | frac
}

// FromFixedPoint unpacks a 24.8 fixed point value.
func FromFixedPoint(f uint32) float64 {
	return float64(f>>8) + float64(f&0xFF)/256
}
