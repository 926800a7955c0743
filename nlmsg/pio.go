package nlmsg

import (
	"fmt"
	"net/netip"
)

// Prefix Information option, RFC 4861 section 4.6.2, plus the P flag from
// RFC 9762. Unlike netlink payloads this is an ICMPv6 structure and every
// multi-byte field is network order regardless of host.
const (
	ND_OPT_PIO = 3

	// Option length in units of 8 octets. A PIO is always 32 bytes.
	ND_OPT_PIO_LEN = 4

	ND_OPT_PIO_FLAG_ON_LINK    = 1 << 7
	ND_OPT_PIO_FLAG_AUTONOMOUS = 1 << 6
	ND_OPT_PIO_FLAG_DHCPV6_PD  = 1 << 4
)

// SizeofNdOptPio is the wire length of the option.
const SizeofNdOptPio = ND_OPT_PIO_LEN * 8

// NdOptPio is a router advertisement Prefix Information option.
type NdOptPio struct {
	Flags uint8

	// Lifetimes are in seconds; 0xFFFFFFFF means infinity.
	ValidLifetime     uint32
	PreferredLifetime uint32

	Prefix netip.Prefix
}

// OnLink reports the L flag.
func (o *NdOptPio) OnLink() bool { return o.Flags&ND_OPT_PIO_FLAG_ON_LINK != 0 }

// Autonomous reports the A flag.
func (o *NdOptPio) Autonomous() bool { return o.Flags&ND_OPT_PIO_FLAG_AUTONOMOUS != 0 }

// ParseNdOptPio decodes one Prefix Information option. The type and length
// octets must identify a PIO exactly; anything else is the caller's job to
// route elsewhere.
func ParseNdOptPio(b []byte) (*NdOptPio, error) {
	if len(b) < SizeofNdOptPio {
		return nil, fmt.Errorf("%w: PIO needs %d bytes, have %d", ErrTruncated, SizeofNdOptPio, len(b))
	}
	buf := NewBuffer(b)
	if typ := buf.Byte(); typ != ND_OPT_PIO {
		return nil, fmt.Errorf("%w: option type %d", ErrInvalidArgument, typ)
	}
	if l := buf.Byte(); l != ND_OPT_PIO_LEN {
		return nil, fmt.Errorf("%w: option length %d", ErrMalformedAttribute, l)
	}

	o := &NdOptPio{}
	prefixLen := buf.Byte()
	o.Flags = buf.Byte()
	o.ValidLifetime = buf.WireUint32()
	o.PreferredLifetime = buf.WireUint32()
	buf.Skip(4) // reserved2
	addr := netip.AddrFrom16([16]byte(buf.Next(16)))
	if prefixLen > 128 {
		return nil, fmt.Errorf("%w: prefix length %d", ErrMalformedAttribute, prefixLen)
	}
	o.Prefix = netip.PrefixFrom(addr, int(prefixLen))
	return o, nil
}

// Pack appends the 32-byte option. The prefix address is written in full,
// bits beyond the prefix length included, matching what routers emit.
func (o *NdOptPio) Pack(buf *Buffer) {
	buf.PutByte(ND_OPT_PIO)
	buf.PutByte(ND_OPT_PIO_LEN)
	buf.PutByte(uint8(o.Prefix.Bits()))
	buf.PutByte(o.Flags)
	buf.PutWireUint32(o.ValidLifetime)
	buf.PutWireUint32(o.PreferredLifetime)
	buf.PutZero(4)
	addr := o.Prefix.Addr().As16()
	buf.Put(addr[:])
}
