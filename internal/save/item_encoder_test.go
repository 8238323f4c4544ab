package save_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/d2s/internal/game/item"
	"github.com/cory-johannsen/d2s/internal/game/ruleset"
	"github.com/cory-johannsen/d2s/internal/save"
)

// fakeProps is a small property table: id -> stat.
type fakeProps map[int]ruleset.Stat

func (f fakeProps) Lookup(id int) (ruleset.Stat, error) {
	if id < 0 || id > ruleset.MaxPropertyID {
		return ruleset.Stat{}, &ruleset.PropertyIDError{ID: id}
	}
	s, ok := f[id]
	if !ok {
		return ruleset.Stat{}, &ruleset.UndefinedPropertyError{ID: id}
	}
	return s, nil
}

func testProps() fakeProps {
	return fakeProps{
		0:  {ID: 0, Name: "strength", Width: 8, Bias: 32},
		5:  {ID: 5, Name: "test", Width: 6, Bias: 8},
		39: {ID: 39, Name: "fireresist", Width: 8, Bias: 50},
		80: {ID: 80, Name: "magicfind", Width: 8, Bias: 100},
	}
}

func testTypes(t *testing.T) *ruleset.ItemTypes {
	t.Helper()
	types, err := ruleset.DefaultItemTypes()
	require.NoError(t, err)
	return types
}

func newEncoder(t *testing.T) *save.ItemEncoder {
	return save.NewItemEncoder(testProps(), testTypes(t))
}

func decodeAll(t *testing.T, data []byte) []decoded {
	d := &decoder{t: t, r: &bitReader{data: data}, props: testProps(), types: testTypes(t)}
	var out []decoded
	for d.r.pos < len(data)*8 {
		out = append(out, d.item())
	}
	return out
}

func mustItem(t *testing.T, spec item.Spec) *item.Item {
	t.Helper()
	it, err := item.New(spec)
	require.NoError(t, err)
	return it
}

func TestEncode_SimpleItemLayout(t *testing.T) {
	it := mustItem(t, item.Spec{TypeCode: "tes"})
	got, err := newEncoder(t).Encode(it)
	require.NoError(t, err)
	// 8+8+16+26+18+32+3 = 111 bits, padded to 14 bytes.
	assert.Equal(t, []byte{
		0x4A, 0x4D, 0x00, 0x00, 0xA0, 0x00, 0x00,
		0x00, 0x00, 0x40, 0x57, 0x36, 0x07, 0x02,
	}, got)
}

func TestEncode_SimpleItemFields(t *testing.T) {
	it := mustItem(t, item.Spec{
		TypeCode:   "rin",
		Identified: true,
		Ethereal:   true,
		Location:   item.Stored,
		X:          9,
		Y:          3,
		Store:      item.StoreStash,
		EquipSlot:  0,
	})
	got, err := newEncoder(t).Encode(it)
	require.NoError(t, err)
	require.Len(t, got, 14)

	d := decodeAll(t, got)
	require.Len(t, d, 1)
	assert.Equal(t, uint64(0x4D4A), d[0].marker)
	assert.True(t, d[0].identified)
	assert.False(t, d[0].socketed)
	assert.True(t, d[0].simple)
	assert.True(t, d[0].ethereal)
	assert.Equal(t, uint64(9), d[0].x)
	assert.Equal(t, uint64(3), d[0].y)
	assert.Equal(t, uint64(item.StoreStash), d[0].store)
	assert.Equal(t, "rin ", d[0].typeCode)
	assert.Equal(t, 111, d[0].bits)
}

func TestEncode_SocketedChildrenFollowParent(t *testing.T) {
	enc := newEncoder(t)
	r1 := item.NewBuilder("r01").At(item.Socketed, 0, 0, 0, 0).Spec()
	r2 := item.NewBuilder("r02").At(item.Socketed, 0, 1, 0, 0).Spec()
	parent := mustItem(t, item.NewBuilder("lsd").Sockets(r1, r2).Spec())

	got, err := enc.Encode(parent)
	require.NoError(t, err)

	c1, err := enc.Encode(mustItem(t, r1))
	require.NoError(t, err)
	c2, err := enc.Encode(mustItem(t, r2))
	require.NoError(t, err)

	require.Len(t, got, 14+len(c1)+len(c2))
	assert.Equal(t, c1, got[14:14+len(c1)])
	assert.Equal(t, c2, got[14+len(c1):])

	d := decodeAll(t, got)
	require.Len(t, d, 3)
	assert.True(t, d[0].socketed)
	assert.Equal(t, uint64(2), d[0].numSocketed)
	assert.Equal(t, "r01 ", d[1].typeCode)
	assert.Equal(t, "r02 ", d[2].typeCode)
	assert.Equal(t, uint64(item.Socketed), d[1].location)
}

func TestEncode_NestedSocketsDepthFirst(t *testing.T) {
	gem := item.NewBuilder("gsv").At(item.Socketed, 0, 0, 0, 0).Spec()
	jewel := item.NewBuilder("jew").At(item.Socketed, 0, 0, 0, 0).Sockets(gem).Spec()
	sword := mustItem(t, item.NewBuilder("lsd").Sockets(jewel, gem).Spec())

	got, err := newEncoder(t).Encode(sword)
	require.NoError(t, err)
	d := decodeAll(t, got)
	require.Len(t, d, 4)
	assert.Equal(t, []string{"lsd ", "jew ", "gsv ", "gsv "},
		[]string{d[0].typeCode, d[1].typeCode, d[2].typeCode, d[3].typeCode})
}

func TestEncode_MagicRingWithProperties(t *testing.T) {
	ext := item.Extended{
		ID:           0x12345678,
		Level:        55,
		Quality:      item.Magic{PrefixID: 401, SuffixID: 702},
		GenericMagic: true,
		ImageType:    3,
		Data: item.Data{Properties: []item.Property{
			{ID: 0, Value: 10},
			{ID: 5, Value: -3},
			{ID: 80, Value: 25},
		}},
	}
	it := mustItem(t, item.Spec{TypeCode: "rin", Identified: true, Extended: &ext})
	got, err := newEncoder(t).Encode(it)
	require.NoError(t, err)

	d := decodeAll(t, got)
	require.Len(t, d, 1)
	m := d[0]
	assert.False(t, m.simple)
	assert.Equal(t, uint64(0x12345678), m.id)
	assert.Equal(t, uint64(55), m.level)
	assert.Equal(t, uint64(item.TierMagic), m.tier)
	assert.Equal(t, int64(3), m.imageType)
	assert.Equal(t, int64(-1), m.expansion)
	assert.Equal(t, int64(401), m.magicPrefix)
	assert.Equal(t, int64(702), m.magicSuffix)
	assert.Equal(t, int64(-1), m.defense)
	assert.Equal(t, int64(-1), m.maxDur)
	assert.Equal(t, ext.Data.Properties, m.magic)
}

func TestEncode_PropertyListTerminator(t *testing.T) {
	ext := item.Extended{
		Quality: item.Magic{},
		Data:    item.Data{Properties: []item.Property{{ID: 0, Value: 10}, {ID: 5, Value: -3}}},
	}
	it := mustItem(t, item.Spec{TypeCode: "rin", Extended: &ext})
	got, err := newEncoder(t).Encode(it)
	require.NoError(t, err)

	// Fixed fields of a plain magic ring: 111 header bits, 32+7+4 ids,
	// three 1-bit flags, 22 affix bits and the identify-as-tome bit.
	r := &bitReader{data: got, pos: 111 + 43 + 3 + 22 + 1}
	assert.Equal(t, uint64(0), r.read(t, 9))
	assert.Equal(t, uint64(10+32), r.read(t, 8))
	assert.Equal(t, uint64(5), r.read(t, 9))
	assert.Equal(t, uint64(-3+8), r.read(t, 6))
	assert.Equal(t, uint64(save.ListTerminator), r.read(t, 9))
	assert.Equal(t, len(got)*8, r.pos+(8-r.pos%8)%8, "only padding follows the terminator")
}

func TestEncode_ArmorDefenseAndDurability(t *testing.T) {
	ext := item.Extended{
		Quality: item.Superior{},
		Level:   20,
		Data:    item.Data{Defense: 300, MaxDurability: 40, CurrentDurability: 33, Sockets: 3},
	}
	it := mustItem(t, item.Spec{TypeCode: "aar", Socketed: true, Extended: &ext})
	got, err := newEncoder(t).Encode(it)
	require.NoError(t, err)
	d := decodeAll(t, got)[0]
	assert.Equal(t, int64(300), d.defense)
	assert.Equal(t, int64(40), d.maxDur)
	assert.Equal(t, int64(33), d.curDur)
	assert.Equal(t, int64(3), d.sockets)
	assert.Equal(t, int64(0), d.magicPrefix, "superior keeps zeroed magic slots")
	assert.Nil(t, d.magic)
}

func TestEncode_IndestructibleOmitsCurrentDurability(t *testing.T) {
	ext := item.Extended{Quality: item.Normal{}, Data: item.Data{MaxDurability: 0}}
	it := mustItem(t, item.Spec{TypeCode: "lsd", Extended: &ext})
	got, err := newEncoder(t).Encode(it)
	require.NoError(t, err)
	d := decodeAll(t, got)[0]
	assert.Equal(t, int64(0), d.maxDur)
	assert.Equal(t, int64(-1), d.curDur)

	withDur := ext
	withDur.Data.MaxDurability = 1
	it2 := mustItem(t, item.Spec{TypeCode: "lsd", Extended: &withDur})
	got2, err := newEncoder(t).Encode(it2)
	require.NoError(t, err)
	assert.Equal(t, d.bits+8, decodeAll(t, got2)[0].bits)
}

func TestEncode_TomeAndQuantity(t *testing.T) {
	ext := item.Extended{Quality: item.Normal{}, Data: item.Data{Quantity: 20}}
	it := mustItem(t, item.Spec{TypeCode: "tbk", Extended: &ext})
	got, err := newEncoder(t).Encode(it)
	require.NoError(t, err)
	d := decodeAll(t, got)[0]
	assert.Equal(t, int64(20), d.quantity)
	assert.Equal(t, int64(-1), d.maxDur)
}

func TestEncode_PersonalizedRuneword(t *testing.T) {
	ext := item.Extended{
		Level:      70,
		Quality:    item.Normal{},
		Runeword:   true,
		RunewordID: 27,
		Owner:      "Tal",
		Data: item.Data{
			MaxDurability:     250,
			CurrentDurability: 250,
			Sockets:           2,
			Properties:        []item.Property{{ID: 39, Value: -20}},
		},
	}
	r1 := item.NewBuilder("r07").At(item.Socketed, 0, 0, 0, 0).Spec()
	r2 := item.NewBuilder("r08").At(item.Socketed, 0, 1, 0, 0).Spec()
	it := mustItem(t, item.NewBuilder("lsd").Extended(ext).Sockets(r1, r2).Spec())

	got, err := newEncoder(t).Encode(it)
	require.NoError(t, err)
	d := decodeAll(t, got)
	require.Len(t, d, 3)
	p := d[0]
	assert.True(t, p.runeword)
	assert.True(t, p.personalized)
	assert.Equal(t, uint64(27<<4|5), p.runewordHeader)
	assert.Equal(t, "Tal", p.owner)
	assert.True(t, p.runewordMarker)
	assert.Equal(t, []item.Property{{ID: 39, Value: -20}}, p.magic)
	assert.Equal(t, int64(2), p.sockets)
}

func TestEncode_SetItemLists(t *testing.T) {
	ext := item.Extended{
		Level:   30,
		Quality: item.Set{SetID: 42},
		Data: item.Data{
			Properties: []item.Property{{ID: 0, Value: 5}},
			SetBonuses: []item.Property{{ID: 39, Value: 10}, {ID: 80, Value: 30}, {ID: 0, Value: 2}},
		},
	}
	it := mustItem(t, item.Spec{TypeCode: "amu", Extended: &ext})
	got, err := newEncoder(t).Encode(it)
	require.NoError(t, err)
	d := decodeAll(t, got)[0]
	assert.Equal(t, int64(42), d.setID)
	assert.Equal(t, int64(7), d.setMask)
	assert.Nil(t, d.words, "set items never carry rare name words")
	assert.Equal(t, int64(-1), d.uniqueID)
	assert.Equal(t, int64(-1), d.magicPrefix)
	assert.Equal(t, ext.Data.Properties, d.magic)
	require.Len(t, d.setLists, 3)
	for i, list := range d.setLists {
		assert.Equal(t, []item.Property{ext.Data.SetBonuses[i]}, list)
	}
}

func TestEncode_SetMaskTable(t *testing.T) {
	want := []int64{0, 1, 3, 7, 15, 31}
	for n := 0; n <= item.MaxSetBonuses; n++ {
		ext := item.Extended{
			Quality: item.Set{SetID: 1},
			Data:    item.Data{SetBonuses: make([]item.Property, n)},
		}
		it := mustItem(t, item.Spec{TypeCode: "amu", Extended: &ext})
		got, err := newEncoder(t).Encode(it)
		require.NoError(t, err)
		d := decodeAll(t, got)[0]
		assert.Equal(t, want[n], d.setMask, "bonus lists %d", n)
		assert.Len(t, d.setLists, n)
	}
}

func TestEncode_RareAndCraftedAffixes(t *testing.T) {
	affixes := item.Affixes{
		FirstWordID:  150,
		SecondWordID: 7,
		Prefixes:     []int{11, 22, 33},
		Suffixes:     []int{44},
	}
	for _, q := range []item.Quality{item.Rare{Affixes: affixes}, item.Crafted{Affixes: affixes}} {
		ext := item.Extended{Quality: q, Data: item.Data{Properties: []item.Property{{ID: 0, Value: 1}}}}
		it := mustItem(t, item.Spec{TypeCode: "rin", Extended: &ext})
		got, err := newEncoder(t).Encode(it)
		require.NoError(t, err)
		d := decodeAll(t, got)[0]
		assert.Equal(t, uint64(q.Tier()), d.tier)
		assert.Equal(t, []uint64{150, 7}, d.words)
		assert.Equal(t, []uint64{11, 22, 33}, d.prefixes)
		assert.Equal(t, []uint64{44}, d.suffixes)
		assert.Equal(t, int64(-1), d.setID, "rare items never carry a set id")
		assert.Equal(t, int64(-1), d.magicPrefix)
	}
}

func TestEncode_UniqueItem(t *testing.T) {
	ext := item.Extended{
		Quality:    item.Unique{UniqueID: 300},
		Expansion:  true,
		LowQuality: true,
		Data:       item.Data{Properties: []item.Property{}},
	}
	ext.ExpansionProperty = 1200
	ext.QualityData = 9
	it := mustItem(t, item.Spec{TypeCode: "amu", Extended: &ext})
	got, err := newEncoder(t).Encode(it)
	require.NoError(t, err)
	d := decodeAll(t, got)[0]
	assert.Equal(t, int64(300), d.uniqueID)
	assert.Equal(t, int64(1200), d.expansion)
	assert.Equal(t, int64(9), d.lowQual)
	assert.Empty(t, d.magic, "empty list still carries its terminator")
}

func TestEncode_InvalidPropertyIDFails(t *testing.T) {
	ext := item.Extended{
		Quality: item.Magic{},
		Data:    item.Data{Properties: []item.Property{{ID: 0, Value: 1}, {ID: 255, Value: 1}}},
	}
	it := mustItem(t, item.Spec{TypeCode: "rin", Extended: &ext})

	dst := []byte{0xAA}
	out, err := newEncoder(t).Append(dst, it)
	require.Error(t, err)
	assert.Equal(t, []byte{0xAA}, out, "nothing appended on failure")

	var idErr *ruleset.PropertyIDError
	require.True(t, errors.As(err, &idErr))
	assert.Equal(t, 255, idErr.ID)
	var pErr *save.PropertyError
	require.True(t, errors.As(err, &pErr))
	assert.Equal(t, 255, pErr.ID)
	var eErr *save.EncodeError
	require.True(t, errors.As(err, &eErr))
	assert.Equal(t, "rin", eErr.Path)
}

func TestEncode_UndefinedPropertyIDFails(t *testing.T) {
	ext := item.Extended{
		Quality: item.Magic{},
		Data:    item.Data{Properties: []item.Property{{ID: 7, Value: 0}}},
	}
	it := mustItem(t, item.Spec{TypeCode: "rin", Extended: &ext})

	out, err := newEncoder(t).Encode(it)
	require.Error(t, err)
	assert.Nil(t, out)

	var undef *ruleset.UndefinedPropertyError
	require.ErrorAs(t, err, &undef)
	assert.Equal(t, 7, undef.ID)
	var pErr *save.PropertyError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, "magic", pErr.List)
}

func TestEncode_UndefinedSetBonusIDFails(t *testing.T) {
	ext := item.Extended{
		Quality: item.Set{SetID: 2},
		Data:    item.Data{SetBonuses: []item.Property{{ID: 0, Value: 1}, {ID: 201, Value: 0}}},
	}
	it := mustItem(t, item.Spec{TypeCode: "rin", Extended: &ext})

	dst := []byte{0x01}
	out, err := newEncoder(t).Append(dst, it)
	require.Error(t, err)
	assert.Equal(t, []byte{0x01}, out)
	var undef *ruleset.UndefinedPropertyError
	require.ErrorAs(t, err, &undef)
	assert.Equal(t, 201, undef.ID)
}

func TestEncode_InvalidChildFailsWholeTree(t *testing.T) {
	bad := item.Extended{
		Quality: item.Magic{},
		Data:    item.Data{Properties: []item.Property{{ID: -1, Value: 0}}},
	}
	child := item.Spec{TypeCode: "jew", Location: item.Socketed, Extended: &bad}
	parent := mustItem(t, item.NewBuilder("lsd").Sockets(child).Spec())

	out, err := newEncoder(t).Encode(parent)
	require.Error(t, err)
	assert.Nil(t, out)
	var eErr *save.EncodeError
	require.True(t, errors.As(err, &eErr))
	assert.Equal(t, "lsd/sockets[0]/jew", eErr.Path)
}

func TestEncode_PropertyValueOverflowFails(t *testing.T) {
	for _, v := range []int64{-33, 224} {
		ext := item.Extended{
			Quality: item.Magic{},
			Data:    item.Data{Properties: []item.Property{{ID: 0, Value: v}}},
		}
		it := mustItem(t, item.Spec{TypeCode: "rin", Extended: &ext})
		_, err := newEncoder(t).Encode(it)
		var pErr *save.PropertyError
		require.True(t, errors.As(err, &pErr), "value %d", v)
		assert.Equal(t, uint(8), pErr.Width)
	}
}

func TestEncode_NilItem(t *testing.T) {
	_, err := newEncoder(t).Encode(nil)
	assert.ErrorIs(t, err, save.ErrNilItem)
}

func TestAppendAll_ConcatenatesOrAppendsNothing(t *testing.T) {
	enc := newEncoder(t)
	a := mustItem(t, item.Spec{TypeCode: "tes"})
	b := mustItem(t, item.Spec{TypeCode: "rin", X: 1})

	ea, err := enc.Encode(a)
	require.NoError(t, err)
	eb, err := enc.Encode(b)
	require.NoError(t, err)

	all, err := enc.AppendAll(nil, []*item.Item{a, b})
	require.NoError(t, err)
	assert.Equal(t, append(append([]byte{}, ea...), eb...), all)

	out, err := enc.AppendAll([]byte{1}, []*item.Item{a, nil})
	require.Error(t, err)
	assert.Equal(t, []byte{1}, out)
}

func TestEncode_LogsEachItem(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	enc := save.NewItemEncoder(testProps(), testTypes(t), save.WithLogger(zap.New(core)))
	gem := item.NewBuilder("gsv").At(item.Socketed, 0, 0, 0, 0).Spec()
	_, err := enc.Encode(mustItem(t, item.NewBuilder("lsd").Sockets(gem).Spec()))
	require.NoError(t, err)

	entries := logs.FilterMessage("encoded item").All()
	require.Len(t, entries, 2)
	assert.Equal(t, "lsd", entries[0].ContextMap()["path"])
	assert.Equal(t, "lsd/sockets[0]/gsv", entries[1].ContextMap()["path"])
	assert.Equal(t, int64(1), entries[1].ContextMap()["depth"])

	// A simple item is 111 bits: one padding bit completes its 14 bytes.
	fields := entries[1].ContextMap()
	assert.Equal(t, uint64(111), fields["payload_bits"])
	assert.Equal(t, uint64(1), fields["padding_bits"])
	assert.Equal(t, uint64(14), fields["bytes"])
}

func TestNewItemEncoder_NilTablesPanics(t *testing.T) {
	assert.Panics(t, func() { save.NewItemEncoder(nil, testTypes(t)) })
}

// Property: simple items always occupy 14 bytes and decode back to their placement.
func TestEncode_SimpleItemRoundTrip(t *testing.T) {
	enc := newEncoder(t)
	rapid.Check(t, func(rt *rapid.T) {
		spec := item.Spec{
			TypeCode:   rapid.SampledFrom([]string{"tes", "rin", "amu", "gsv", "lsd"}).Draw(rt, "code"),
			Identified: rapid.Bool().Draw(rt, "identified"),
			Ethereal:   rapid.Bool().Draw(rt, "ethereal"),
			Location:   rapid.IntRange(0, 7).Draw(rt, "location"),
			EquipSlot:  rapid.IntRange(0, 15).Draw(rt, "equip"),
			X:          rapid.IntRange(0, 15).Draw(rt, "x"),
			Y:          rapid.IntRange(0, 15).Draw(rt, "y"),
			Store:      rapid.IntRange(0, 7).Draw(rt, "store"),
		}
		it, err := item.New(spec)
		if err != nil {
			rt.Fatal(err)
		}
		got, err := enc.Encode(it)
		if err != nil {
			rt.Fatal(err)
		}
		if len(got) != 14 {
			rt.Fatalf("simple item encoded to %d bytes", len(got))
		}
		d := decodeAll(t, got)[0]
		if d.identified != spec.Identified || d.ethereal != spec.Ethereal ||
			d.location != uint64(spec.Location) || d.equip != uint64(spec.EquipSlot) ||
			d.x != uint64(spec.X) || d.y != uint64(spec.Y) || d.store != uint64(spec.Store) ||
			d.typeCode != spec.TypeCode+" " {
			rt.Fatalf("decoded %+v from %+v", d, spec)
		}
	})
}

// Property: magic property lists decode back to their (id, value) pairs.
func TestEncode_MagicListRoundTrip(t *testing.T) {
	enc := newEncoder(t)
	props := testProps()
	ids := []int{0, 5, 39, 80}
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 8).Draw(rt, "n")
		list := make([]item.Property, n)
		for i := range list {
			id := rapid.SampledFrom(ids).Draw(rt, "id")
			stat := props[id]
			hi := int64(1)<<stat.Width - 1 - stat.Bias
			list[i] = item.Property{ID: id, Value: rapid.Int64Range(-stat.Bias, hi).Draw(rt, "value")}
		}
		ext := item.Extended{Quality: item.Magic{}, Data: item.Data{Properties: list}}
		it, err := item.New(item.Spec{TypeCode: "rin", Extended: &ext})
		if err != nil {
			rt.Fatal(err)
		}
		got, err := enc.Encode(it)
		if err != nil {
			rt.Fatal(err)
		}
		d := decodeAll(t, got)[0]
		if len(d.magic) != len(list) {
			rt.Fatalf("decoded %d properties, want %d", len(d.magic), len(list))
		}
		for i := range list {
			if d.magic[i] != list[i] {
				rt.Fatalf("property %d: got %+v want %+v", i, d.magic[i], list[i])
			}
		}
	})
}
