package nlmsg

import (
	"fmt"
	"net/netip"

	"golang.org/x/sys/unix"
)

// SizeofIfaddrMsg is the length of struct ifaddrmsg, see rtnetlink(7).
const SizeofIfaddrMsg = 8

// IfaddrMsg mirrors struct ifaddrmsg. Flags here is the legacy 8-bit field;
// the full 32-bit flag word travels in the IFA_FLAGS attribute.
type IfaddrMsg struct {
	Family    uint8
	PrefixLen uint8
	Flags     uint8
	Scope     uint8
	Index     uint32
}

// ParseIfaddrMsg reads a struct ifaddrmsg off the buffer.
func ParseIfaddrMsg(buf *Buffer) (IfaddrMsg, error) {
	if buf.Remaining() < SizeofIfaddrMsg {
		return IfaddrMsg{}, fmt.Errorf("%w: ifaddrmsg needs %d bytes, have %d",
			ErrTruncated, SizeofIfaddrMsg, buf.Remaining())
	}
	return IfaddrMsg{
		Family:    buf.Byte(),
		PrefixLen: buf.Byte(),
		Flags:     buf.Byte(),
		Scope:     buf.Byte(),
		Index:     buf.Uint32(),
	}, nil
}

// Pack appends the struct to the buffer.
func (m IfaddrMsg) Pack(buf *Buffer) {
	buf.PutByte(m.Family)
	buf.PutByte(m.PrefixLen)
	buf.PutByte(m.Flags)
	buf.PutByte(m.Scope)
	buf.PutUint32(m.Index)
}

// SizeofIfaCacheInfo is the length of struct ifa_cacheinfo.
const SizeofIfaCacheInfo = 16

// IfaCacheInfo mirrors struct ifa_cacheinfo. Lifetimes are in seconds;
// 0xFFFFFFFF means forever.
type IfaCacheInfo struct {
	Preferred uint32
	Valid     uint32
	Cstamp    uint32
	Tstamp    uint32
}

func parseIfaCacheInfo(a Attr) (IfaCacheInfo, bool) {
	if len(a.Value) < SizeofIfaCacheInfo {
		return IfaCacheInfo{}, false
	}
	b := NewBufferOrder(a.Value, a.order)
	return IfaCacheInfo{
		Preferred: b.Uint32(),
		Valid:     b.Uint32(),
		Cstamp:    b.Uint32(),
		Tstamp:    b.Uint32(),
	}, true
}

func (c IfaCacheInfo) pack(buf *Buffer) {
	buf.PutUint32(c.Preferred)
	buf.PutUint32(c.Valid)
	buf.PutUint32(c.Cstamp)
	buf.PutUint32(c.Tstamp)
}

// AddressMessage is a parsed RTM_NEWADDR or RTM_DELADDR.
type AddressMessage struct {
	Hdr Header
	Ifa IfaddrMsg

	Address   netip.Addr
	CacheInfo *IfaCacheInfo

	// Flags is the 32-bit IFA_FLAGS word. The legacy 8-bit field in Ifa is
	// preserved separately but the wide word is authoritative on both
	// directions of the wire.
	Flags uint32
}

func (m *AddressMessage) Header() *Header { return &m.Hdr }

func (m *AddressMessage) String() string {
	return fmt.Sprintf("addr{%s/%d, dev: %d, scope: %d, flags: %#x}",
		m.Address, m.Ifa.PrefixLen, m.Ifa.Index, m.Ifa.Scope, m.Flags)
}

func parseAddress(hdr Header, buf *Buffer, end int) (Message, error) {
	if end-buf.Pos() < SizeofIfaddrMsg {
		return nil, fmt.Errorf("%w: ifaddrmsg needs %d bytes, have %d",
			ErrTruncated, SizeofIfaddrMsg, end-buf.Pos())
	}
	ifa, err := ParseIfaddrMsg(buf)
	if err != nil {
		return nil, err
	}
	if ifa.Family != unix.AF_INET && ifa.Family != unix.AF_INET6 {
		return nil, fmt.Errorf("%w: ifaddrmsg family %d", ErrFamilyMismatch, ifa.Family)
	}

	m := &AddressMessage{Hdr: hdr, Ifa: ifa}

	haveFlags := false
	sc := Attrs(buf, end)
	for sc.Scan() {
		a := sc.Attr()
		switch a.Type {
		case unix.IFA_ADDRESS:
			addr, err := attrAddr(a, ifa.Family)
			if err != nil {
				return nil, err
			}
			m.Address = addr
		case unix.IFA_CACHEINFO:
			if ci, ok := parseIfaCacheInfo(a); ok {
				m.CacheInfo = &ci
			}
		case unix.IFA_FLAGS:
			v, ok := a.Uint32()
			if !ok {
				return nil, fmt.Errorf("%w: IFA_FLAGS", ErrMalformedAttribute)
			}
			m.Flags = v
			haveFlags = true
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	if !m.Address.IsValid() {
		return nil, fmt.Errorf("%w: missing IFA_ADDRESS", ErrMalformedAttribute)
	}
	if !haveFlags {
		// Kernels since 3.14 always emit IFA_FLAGS; anything without it
		// is too old to be worth decoding from the narrow field alone.
		return nil, fmt.Errorf("%w: missing IFA_FLAGS", ErrMalformedAttribute)
	}
	return m, nil
}

// Pack serializes the message, header included. IPv4 addresses additionally
// carry IFA_LOCAL and IFA_BROADCAST, derived from the address and prefix
// length the way ifconfig would.
func (m *AddressMessage) Pack(buf *Buffer) {
	start := buf.Pos()
	m.Hdr.Pack(buf)
	m.Ifa.Pack(buf)

	PutAttr(buf, unix.IFA_ADDRESS, m.Address.AsSlice())
	if m.CacheInfo != nil {
		buf.PutUint16(NLAHeaderLen + SizeofIfaCacheInfo)
		buf.PutUint16(unix.IFA_CACHEINFO)
		m.CacheInfo.pack(buf)
	}
	PutUint32Attr(buf, unix.IFA_FLAGS, m.Flags)
	if m.Address.Is4() {
		PutAttr(buf, unix.IFA_LOCAL, m.Address.AsSlice())
		PutAttr(buf, unix.IFA_BROADCAST, broadcastAddr(m.Address, m.Ifa.PrefixLen))
	}

	finishHeader(buf, start)
}

func broadcastAddr(addr netip.Addr, prefixLen uint8) []byte {
	b := addr.As4()
	for i := range b {
		bits := int(prefixLen) - i*8
		switch {
		case bits >= 8:
		case bits <= 0:
			b[i] = 0xFF
		default:
			b[i] |= 0xFF >> bits
		}
	}
	return b[:]
}

func addrFamily(addr netip.Addr) uint8 {
	if addr.Is4() {
		return unix.AF_INET
	}
	return unix.AF_INET6
}

// NewAddressRequest builds an RTM_NEWADDR request configuring addr on the
// interface, with preferred and valid lifetimes in seconds.
func NewAddressRequest(seq uint32, addr netip.Addr, prefixLen uint8, flags uint32,
	scope uint8, ifindex uint32, preferred, valid uint32) ([]byte, error) {
	if !addr.IsValid() {
		return nil, fmt.Errorf("%w: no address", ErrInvalidArgument)
	}
	m := &AddressMessage{
		Hdr: Header{
			Type:  unix.RTM_NEWADDR,
			Flags: unix.NLM_F_REQUEST | unix.NLM_F_ACK | unix.NLM_F_REPLACE,
			Seq:   seq,
		},
		// The kernel prefers IFA_FLAGS over the narrow ifaddrmsg field,
		// so the latter stays zero.
		Ifa: IfaddrMsg{
			Family:    addrFamily(addr),
			PrefixLen: prefixLen,
			Scope:     scope,
			Index:     ifindex,
		},
		Address:   addr,
		CacheInfo: &IfaCacheInfo{Preferred: preferred, Valid: valid},
		Flags:     flags,
	}

	buf := NewBuffer(make([]byte, 128))
	m.Pack(buf)
	return buf.Bytes()[:buf.Pos()], nil
}

// DelAddressRequest builds an RTM_DELADDR request removing addr from the
// interface. Deletion needs nothing beyond the address attribute.
func DelAddressRequest(seq uint32, addr netip.Addr, prefixLen uint8, ifindex uint32) ([]byte, error) {
	if !addr.IsValid() {
		return nil, fmt.Errorf("%w: no address", ErrInvalidArgument)
	}

	length := SizeofHeader + SizeofIfaddrMsg + AttrSpace(len(addr.AsSlice()))
	buf := NewBuffer(make([]byte, length))
	hdr := Header{
		Len:   uint32(length),
		Type:  unix.RTM_DELADDR,
		Flags: unix.NLM_F_REQUEST | unix.NLM_F_ACK,
		Seq:   seq,
	}
	hdr.Pack(buf)
	IfaddrMsg{
		Family:    addrFamily(addr),
		PrefixLen: prefixLen,
		Index:     ifindex,
	}.Pack(buf)
	PutAttr(buf, unix.IFA_ADDRESS, addr.AsSlice())
	return buf.Bytes(), nil
}

// NewGetAddrRequest builds an RTM_GETADDR dump request for one address
// family, or for both when family is unix.AF_UNSPEC.
func NewGetAddrRequest(family uint8, seq uint32) []byte {
	buf := NewBuffer(make([]byte, SizeofHeader+SizeofIfaddrMsg))
	hdr := Header{
		Len:   uint32(buf.Len()),
		Type:  unix.RTM_GETADDR,
		Flags: unix.NLM_F_REQUEST | unix.NLM_F_DUMP,
		Seq:   seq,
	}
	hdr.Pack(buf)
	IfaddrMsg{Family: family}.Pack(buf)
	return buf.Bytes()
}
