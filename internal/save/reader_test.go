package save_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/d2s/internal/game/item"
	"github.com/cory-johannsen/d2s/internal/game/ruleset"
)

// bitReader reads fields packed LSB-first, the inverse of WriteReversed.
type bitReader struct {
	data []byte
	pos  int
}

func (r *bitReader) read(t *testing.T, width int) uint64 {
	t.Helper()
	require.LessOrEqual(t, r.pos+width, len(r.data)*8, "read past end at bit %d", r.pos)
	var v uint64
	for i := 0; i < width; i++ {
		if r.data[r.pos/8]>>(r.pos%8)&1 == 1 {
			v |= 1 << i
		}
		r.pos++
	}
	return v
}

func (r *bitReader) align() {
	if r.pos%8 != 0 {
		r.pos += 8 - r.pos%8
	}
}

// decoded mirrors the fields of one item record.
type decoded struct {
	identified, socketed                     bool
	simple, ethereal, personalized, runeword bool
	marker                                   uint64
	location, equip, x, y, store             uint64
	typeCode                                 string
	numSocketed                              uint64

	id, level, tier                uint64
	imageType, expansion, lowQual  int64 // -1 when absent
	setID, uniqueID                int64 // -1 when absent
	words                          []uint64
	prefixes, suffixes             []uint64
	magicPrefix, magicSuffix       int64 // -1 when absent
	runewordHeader                 uint64
	owner                          string
	idTome                         bool
	defense, maxDur, curDur        int64 // -1 when absent
	sockets, quantity, setMask     int64 // -1 when absent
	runewordMarker                 bool
	magic                          []item.Property
	setLists                       [][]item.Property
	bits                           int
}

type decoder struct {
	t     *testing.T
	r     *bitReader
	props interface {
		Lookup(int) (ruleset.Stat, error)
	}
	types *ruleset.ItemTypes
}

func (d *decoder) flag() bool { return d.r.read(d.t, 1) == 1 }

func (d *decoder) opt(present bool, width int) int64 {
	if !present {
		return -1
	}
	return int64(d.r.read(d.t, width))
}

func (d *decoder) list() []item.Property {
	var out []item.Property
	for {
		id := int(d.r.read(d.t, 9))
		if id == 0x1FF {
			return out
		}
		stat, err := d.props.Lookup(id)
		require.NoError(d.t, err)
		v := int64(d.r.read(d.t, int(stat.Width))) - stat.Bias
		out = append(out, item.Property{ID: id, Value: v})
	}
}

func (d *decoder) item() decoded {
	t, r := d.t, d.r
	start := r.pos
	var it decoded
	it.marker = r.read(t, 16)
	f1 := r.read(t, 16)
	it.identified = f1>>4&1 == 1
	it.socketed = f1>>11&1 == 1
	f2 := r.read(t, 26)
	require.Equal(t, uint64(1), f2>>7&1, "constant bit 7")
	it.simple = f2>>5&1 == 1
	it.ethereal = f2>>6&1 == 1
	it.personalized = f2>>8&1 == 1
	it.runeword = f2>>10&1 == 1
	loc := r.read(t, 18)
	it.location, it.equip = loc&7, loc>>3&15
	it.x, it.y, it.store = loc>>7&15, loc>>11&15, loc>>15&7
	code := r.read(t, 32)
	it.typeCode = string([]byte{byte(code), byte(code >> 8), byte(code >> 16), byte(code >> 24)})
	it.numSocketed = r.read(t, 3)

	it.imageType, it.expansion, it.lowQual = -1, -1, -1
	it.setID, it.uniqueID, it.magicPrefix, it.magicSuffix = -1, -1, -1, -1
	it.defense, it.maxDur, it.curDur = -1, -1, -1
	it.sockets, it.quantity, it.setMask = -1, -1, -1

	if !it.simple {
		it.id = r.read(t, 32)
		it.level = r.read(t, 7)
		it.tier = r.read(t, 4)
		it.imageType = d.opt(d.flag(), 3)
		it.expansion = d.opt(d.flag(), 11)
		it.lowQual = d.opt(d.flag(), 11)
		switch item.Tier(it.tier) {
		case item.TierSet:
			it.setID = int64(r.read(t, 12))
		case item.TierUnique:
			it.uniqueID = int64(r.read(t, 12))
		case item.TierRare, item.TierCrafted:
			it.words = []uint64{r.read(t, 8), r.read(t, 8)}
			for i := 0; i < 3; i++ {
				if d.flag() {
					it.prefixes = append(it.prefixes, r.read(t, 11))
				}
				if d.flag() {
					it.suffixes = append(it.suffixes, r.read(t, 11))
				}
			}
		default:
			it.magicPrefix = int64(r.read(t, 11))
			it.magicSuffix = int64(r.read(t, 11))
		}
		if it.runeword {
			it.runewordHeader = r.read(t, 16)
		}
		if it.personalized {
			for {
				c := r.read(t, 7)
				if c == 0 {
					break
				}
				it.owner += string(rune(c))
			}
		}
		it.idTome = d.flag()
		base := it.typeCode[:3]
		it.defense = d.opt(d.types.IsArmorOrShield(base), 10)
		if d.types.IsNonMisc(base) {
			it.maxDur = int64(r.read(t, 8))
			it.curDur = d.opt(it.maxDur > 0, 8)
		}
		it.sockets = d.opt(it.socketed, 4)
		if d.types.IsTome(base) {
			require.Equal(t, uint64(0), r.read(t, 5), "tome filler")
		}
		it.quantity = d.opt(d.types.HasQuantity(base), 9)
		isSet := item.Tier(it.tier) == item.TierSet
		it.setMask = d.opt(isSet, 5)
		if it.runeword {
			require.Equal(t, uint64(0x1FF), r.read(t, 9), "runeword list header")
			it.runewordMarker = true
		}
		if item.Tier(it.tier) >= item.TierMagic || it.runeword {
			it.magic = d.list()
		}
		if isSet {
			for m := it.setMask; m > 0; m >>= 1 {
				it.setLists = append(it.setLists, d.list())
			}
		}
	}
	it.bits = r.pos - start
	r.align()
	return it
}
