// Package bitstream provides a bit-granular writer for save-file formats whose
// fields are packed at arbitrary, non byte-aligned offsets.
package bitstream

import (
	"fmt"
	"math/bits"
)

// MaxWidth is the widest field a single write may carry.
const MaxWidth = 64

// Writer accumulates bit fields and emits whole bytes.
//
// Bits of a field are appended most-significant first. Every completed byte
// is emitted with the first bit written into it in its least-significant
// position, so a field written with WriteReversed lands LSB-first in the
// output exactly as a byte-oriented little-endian bit packer would place it.
//
// A Writer is not safe for concurrent use; each encode owns its own.
type Writer struct {
	buf  []byte
	cur  byte
	n    uint // bits pending in cur
	bits uint64
}

// NewWriter returns an empty Writer.
//
// Postcondition: Len() == 0 and BitLen() == 0.
func NewWriter() *Writer {
	return &Writer{buf: make([]byte, 0, 64)}
}

// WriteBits appends the low width bits of v, most-significant first.
//
// Precondition: width <= MaxWidth; violating it panics.
func (w *Writer) WriteBits(v uint64, width uint) {
	checkWidth(width)
	for i := width; i > 0; i-- {
		w.cur |= byte((v>>(i-1))&1) << w.n
		w.n++
		if w.n == 8 {
			w.buf = append(w.buf, w.cur)
			w.cur = 0
			w.n = 0
		}
	}
	w.bits += uint64(width)
}

// WriteReversed reverses the width-bit field v and appends it.
// Combined with the per-byte emission order this places bit 0 of v first.
//
// Precondition: width <= MaxWidth.
func (w *Writer) WriteReversed(v uint64, width uint) {
	w.WriteBits(Reverse(v, width), width)
}

// WriteByte appends an 8-bit marker so that, on a byte boundary, b appears
// unchanged in the output. It never returns an error.
func (w *Writer) WriteByte(b byte) error {
	w.WriteReversed(uint64(b), 8)
	return nil
}

// WriteBool appends a single bit.
func (w *Writer) WriteBool(b bool) {
	var v uint64
	if b {
		v = 1
	}
	w.WriteBits(v, 1)
}

// Flush returns the pending partial byte, zero-padded in its high bits, and
// resets the partial state. ok is false when the stream is byte aligned and
// there is nothing to pad.
func (w *Writer) Flush() (b byte, ok bool) {
	if w.n == 0 {
		return 0, false
	}
	b = w.cur
	w.bits += uint64(8 - w.n)
	w.cur = 0
	w.n = 0
	return b, true
}

// Align flushes the partial byte into the completed output.
//
// Postcondition: Pending() == 0.
func (w *Writer) Align() {
	if b, ok := w.Flush(); ok {
		w.buf = append(w.buf, b)
	}
}

// Bytes returns the completed bytes. Pending bits are not included.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Len returns the number of completed bytes.
func (w *Writer) Len() int {
	return len(w.buf)
}

// Pending returns the number of bits waiting for a byte to complete; Align
// would pad 8-Pending() bits when it is non-zero.
func (w *Writer) Pending() uint {
	return w.n
}

// BitLen returns the total number of bits written since NewWriter,
// including flush padding.
func (w *Writer) BitLen() uint64 {
	return w.bits
}

// Reverse returns v with its low width bits in reverse order. Bits above
// width are discarded.
//
// Precondition: width <= MaxWidth; violating it panics.
func Reverse(v uint64, width uint) uint64 {
	checkWidth(width)
	if width == 0 {
		return 0
	}
	return bits.Reverse64(v) >> (MaxWidth - width)
}

func checkWidth(width uint) {
	if width > MaxWidth {
		panic(fmt.Sprintf("bitstream: width %d exceeds %d", width, MaxWidth))
	}
}
