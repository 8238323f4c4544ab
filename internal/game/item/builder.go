package item

// Builder fills a Spec step by step. Items are identified by default.
// Build validates the accumulated Spec through New.
type Builder struct {
	spec Spec
}

// NewBuilder starts a builder for the given 3-character type code.
//
// Postcondition: the resulting spec has Identified == true.
func NewBuilder(typeCode string) *Builder {
	return &Builder{spec: Spec{TypeCode: typeCode, Identified: true}}
}

func (b *Builder) Identified(v bool) *Builder { b.spec.Identified = v; return b }
func (b *Builder) Socketed(v bool) *Builder   { b.spec.Socketed = v; return b }
func (b *Builder) Ethereal(v bool) *Builder   { b.spec.Ethereal = v; return b }

// At places the item at a location, equipment slot and grid cell inside store.
func (b *Builder) At(location, equipSlot, x, y, store int) *Builder {
	b.spec.Location = location
	b.spec.EquipSlot = equipSlot
	b.spec.X = x
	b.spec.Y = y
	b.spec.Store = store
	return b
}

// Extended attaches the extended payload, making the item complex.
func (b *Builder) Extended(e Extended) *Builder {
	b.spec.Extended = &e
	return b
}

// Sockets fills the item's sockets with children in write order and sets the
// declared filled-socket count to match.
func (b *Builder) Sockets(children ...Spec) *Builder {
	b.spec.Socketed = true
	b.spec.NumSocketed = len(children)
	b.spec.Children = children
	return b
}

// Spec returns a copy of the accumulated spec.
func (b *Builder) Spec() Spec {
	return b.spec
}

// Build validates the spec and returns the immutable item.
//
// Postcondition: returns a non-nil Item or a validation error.
func (b *Builder) Build() (*Item, error) {
	return New(b.spec)
}
