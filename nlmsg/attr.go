package nlmsg

import (
	"encoding/binary"
	"fmt"
	"net/netip"
)

// NLAHeaderLen is the length/type prefix in front of every attribute.
const NLAHeaderLen = 4

// Attr is one netlink attribute: a type tag and its raw value, without the
// length/type prefix and without the trailing alignment padding. Attributes
// of types the caller doesn't understand stay opaque instead of being
// dropped, so higher layers can choose to ignore or surface them.
type Attr struct {
	Type  uint16
	Value []byte

	order binary.ByteOrder
}

// NewAttr builds an attribute for packing, with values decoded in the
// host's native order.
func NewAttr(typ uint16, value []byte) Attr {
	return Attr{Type: typ, Value: value, order: native}
}

// NewUint32Attr builds a 4-byte attribute carrying v in native order.
func NewUint32Attr(typ uint16, v uint32) Attr {
	b := make([]byte, 4)
	native.PutUint32(b, v)
	return Attr{Type: typ, Value: b, order: native}
}

// Space is the full on-wire footprint of the attribute: prefix, value and
// alignment padding.
func (a Attr) Space() int {
	return AttrSpace(len(a.Value))
}

// AttrSpace is the aligned on-wire size of an attribute with an n-byte value.
func AttrSpace(n int) int {
	return Align4(NLAHeaderLen + n)
}

// Uint32 decodes the value as a native-order u32. The boolean is false when
// the value has the wrong width.
func (a Attr) Uint32() (uint32, bool) {
	if len(a.Value) != 4 {
		return 0, false
	}
	order := a.order
	if order == nil {
		order = native
	}
	return order.Uint32(a.Value), true
}

// Uint64 decodes the value as a native-order u64.
func (a Attr) Uint64() (uint64, bool) {
	if len(a.Value) != 8 {
		return 0, false
	}
	order := a.order
	if order == nil {
		order = native
	}
	return order.Uint64(a.Value), true
}

// Addr decodes the value as an IP address: 4 raw bytes for IPv4, 16 for
// IPv6. Anything else yields an invalid address.
func (a Attr) Addr() netip.Addr {
	addr, _ := netip.AddrFromSlice(a.Value)
	return addr
}

// AttrScanner iterates the attribute list occupying [start, end) of a
// buffer: a lazy, finite, non-restartable walk in the style of
// bufio.Scanner. A declared attribute length below the 4-byte prefix or past
// the end of the range stops the scan with an error; no partial attribute is
// ever yielded. Exhausting the range cleanly leaves Err nil.
type AttrScanner struct {
	buf   *Buffer
	start int
	end   int
	cur   Attr
	err   error
	done  bool
}

// Attrs returns a scanner over the attributes between the buffer's current
// position and end.
func Attrs(buf *Buffer, end int) *AttrScanner {
	return &AttrScanner{buf: buf, start: buf.Pos(), end: end}
}

// Scan advances to the next attribute, reporting whether one is available.
func (s *AttrScanner) Scan() bool {
	if s.done || s.err != nil {
		return false
	}
	pos := s.buf.Pos()
	if pos >= s.end {
		s.done = true
		return false
	}
	if s.end-pos < NLAHeaderLen {
		s.err = fmt.Errorf("%w: %d bytes left in attribute list", ErrTruncated, s.end-pos)
		return false
	}

	declared := int(s.buf.Uint16())
	typ := s.buf.Uint16()
	if declared < NLAHeaderLen {
		s.err = fmt.Errorf("%w: declared length %d below prefix size", ErrMalformedAttribute, declared)
		return false
	}
	if pos+declared > s.end {
		s.err = fmt.Errorf("%w: attribute of length %d overruns message boundary", ErrTruncated, declared)
		return false
	}

	s.cur = Attr{
		Type:  typ,
		Value: s.buf.Next(declared - NLAHeaderLen),
		order: s.buf.Order(),
	}
	s.buf.SetPos(min(pos+Align4(declared), s.end))
	return true
}

// Attr returns the attribute produced by the last successful Scan.
func (s *AttrScanner) Attr() Attr { return s.cur }

// Err returns the first error encountered while scanning, nil on a clean
// stop at the end of the range.
func (s *AttrScanner) Err() error { return s.err }

// FindAttr scans the attribute list between the buffer's position and end
// for the first attribute of the given type, restoring the position
// afterwards so repeated lookups all start from the same place. The boolean
// is false when the type is absent or the list is malformed before it.
func FindAttr(buf *Buffer, end int, typ uint16) (Attr, bool) {
	start := buf.Pos()
	defer buf.SetPos(start)

	sc := Attrs(buf, end)
	for sc.Scan() {
		if a := sc.Attr(); a.Type == typ {
			return a, true
		}
	}
	return Attr{}, false
}

// PutAttr writes one attribute at the buffer's position: declared length,
// type, value, then zero padding up to the 4-byte boundary.
func PutAttr(buf *Buffer, typ uint16, value []byte) {
	declared := NLAHeaderLen + len(value)
	buf.PutUint16(uint16(declared))
	buf.PutUint16(typ)
	buf.Put(value)
	buf.PutZero(Align4(declared) - declared)
}

// PutUint32Attr writes a 4-byte attribute in the buffer's default order.
func PutUint32Attr(buf *Buffer, typ uint16, v uint32) {
	buf.PutUint16(NLAHeaderLen + 4)
	buf.PutUint16(typ)
	buf.PutUint32(v)
}
