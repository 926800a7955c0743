package nlmsg

import "encoding/binary"

// Buffer tracks a read/write position inside a caller-supplied byte slice.
// Its default order is the host's native order, matching the kernel netlink
// ABI; the Wire* accessors read and write big-endian regardless. Struct
// parsers check Remaining before touching the buffer, so the accessors
// themselves don't guard against overruns.
//
// This started out as the read buffer used by the socket deserialization in
// vishvananda/netlink and grew a write side and per-field order control.
type Buffer struct {
	data  []byte
	pos   int
	order binary.ByteOrder
}

// NewBuffer wraps b with the host's native byte order.
func NewBuffer(b []byte) *Buffer {
	return &Buffer{data: b, order: native}
}

// NewBufferOrder wraps b with an explicit default order. Tests use this to
// replay fixtures captured on little-endian machines no matter what the host
// is.
func NewBufferOrder(b []byte, order binary.ByteOrder) *Buffer {
	return &Buffer{data: b, order: order}
}

func (b *Buffer) Len() int       { return len(b.data) }
func (b *Buffer) Pos() int       { return b.pos }
func (b *Buffer) SetPos(p int)   { b.pos = p }
func (b *Buffer) Remaining() int { return len(b.data) - b.pos }

// Bytes returns the whole backing slice.
func (b *Buffer) Bytes() []byte { return b.data }

// Order returns the buffer's default byte order.
func (b *Buffer) Order() binary.ByteOrder { return b.order }

// Skip advances the position by n, clamping at the end of the buffer.
func (b *Buffer) Skip(n int) {
	b.pos += n
	if b.pos > len(b.data) {
		b.pos = len(b.data)
	}
}

func (b *Buffer) Byte() byte {
	c := b.data[b.pos]
	b.pos++
	return c
}

// Next returns the n bytes at the current position and advances past them.
// The returned slice aliases the buffer.
func (b *Buffer) Next(n int) []byte {
	s := b.data[b.pos : b.pos+n]
	b.pos += n
	return s
}

func (b *Buffer) Uint16() uint16 { return b.order.Uint16(b.Next(2)) }
func (b *Buffer) Uint32() uint32 { return b.order.Uint32(b.Next(4)) }
func (b *Buffer) Uint64() uint64 { return b.order.Uint64(b.Next(8)) }

// WireUint16 reads a big-endian field independently of the buffer's order.
func (b *Buffer) WireUint16() uint16 { return wireOrder.Uint16(b.Next(2)) }
func (b *Buffer) WireUint32() uint32 { return wireOrder.Uint32(b.Next(4)) }

func (b *Buffer) PutByte(v byte) {
	b.data[b.pos] = v
	b.pos++
}

func (b *Buffer) Put(v []byte) {
	copy(b.data[b.pos:], v)
	b.pos += len(v)
}

// PutZero writes n zero bytes. The destination is typically freshly
// allocated, but builders that reuse buffers rely on the explicit clear.
func (b *Buffer) PutZero(n int) {
	for i := 0; i < n; i++ {
		b.data[b.pos+i] = 0
	}
	b.pos += n
}

func (b *Buffer) PutUint16(v uint16) {
	b.order.PutUint16(b.data[b.pos:], v)
	b.pos += 2
}

func (b *Buffer) PutUint32(v uint32) {
	b.order.PutUint32(b.data[b.pos:], v)
	b.pos += 4
}

func (b *Buffer) PutUint64(v uint64) {
	b.order.PutUint64(b.data[b.pos:], v)
	b.pos += 8
}

func (b *Buffer) PutWireUint16(v uint16) {
	wireOrder.PutUint16(b.data[b.pos:], v)
	b.pos += 2
}

func (b *Buffer) PutWireUint32(v uint32) {
	wireOrder.PutUint32(b.data[b.pos:], v)
	b.pos += 4
}

// Align4 rounds n up to the next 4-byte boundary (NLMSG_ALIGN/NLA_ALIGN).
func Align4(n int) int {
	return (n + 3) &^ 3
}
