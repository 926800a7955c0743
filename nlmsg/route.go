package nlmsg

import (
	"fmt"
	"net/netip"

	"golang.org/x/sys/unix"
)

// SizeofRtMsg is the length of struct rtmsg, see rtnetlink(7).
const SizeofRtMsg = 12

// RtMsg mirrors struct rtmsg, the fixed payload of RTM_NEWROUTE,
// RTM_DELROUTE and RTM_GETROUTE messages.
type RtMsg struct {
	Family   uint8
	DstLen   uint8
	SrcLen   uint8
	Tos      uint8
	Table    uint8
	Protocol uint8
	Scope    uint8
	Type     uint8
	Flags    uint32
}

// ParseRtMsg reads a struct rtmsg off the buffer.
func ParseRtMsg(buf *Buffer) (RtMsg, error) {
	if buf.Remaining() < SizeofRtMsg {
		return RtMsg{}, fmt.Errorf("%w: rtmsg needs %d bytes, have %d",
			ErrTruncated, SizeofRtMsg, buf.Remaining())
	}
	return RtMsg{
		Family:   buf.Byte(),
		DstLen:   buf.Byte(),
		SrcLen:   buf.Byte(),
		Tos:      buf.Byte(),
		Table:    buf.Byte(),
		Protocol: buf.Byte(),
		Scope:    buf.Byte(),
		Type:     buf.Byte(),
		Flags:    buf.Uint32(),
	}, nil
}

// Pack appends the struct to the buffer in the buffer's byte order.
func (m RtMsg) Pack(buf *Buffer) {
	buf.PutByte(m.Family)
	buf.PutByte(m.DstLen)
	buf.PutByte(m.SrcLen)
	buf.PutByte(m.Tos)
	buf.PutByte(m.Table)
	buf.PutByte(m.Protocol)
	buf.PutByte(m.Scope)
	buf.PutByte(m.Type)
	buf.PutUint32(m.Flags)
}

// RtaCacheInfo mirrors struct rta_cacheinfo.
type RtaCacheInfo struct {
	ClntRef uint32
	LastUse uint32
	Expires uint32
	Error   uint32
	Used    uint32
	ID      uint32
	Ts      uint32
	TsAge   uint32
}

// SizeofRtaCacheInfo is the length of struct rta_cacheinfo.
const SizeofRtaCacheInfo = 32

func parseRtaCacheInfo(a Attr) (RtaCacheInfo, bool) {
	if len(a.Value) < SizeofRtaCacheInfo {
		return RtaCacheInfo{}, false
	}
	b := NewBufferOrder(a.Value, a.order)
	return RtaCacheInfo{
		ClntRef: b.Uint32(),
		LastUse: b.Uint32(),
		Expires: b.Uint32(),
		Error:   b.Uint32(),
		Used:    b.Uint32(),
		ID:      b.Uint32(),
		Ts:      b.Uint32(),
		TsAge:   b.Uint32(),
	}, true
}

func (c RtaCacheInfo) pack(buf *Buffer) {
	for _, v := range [8]uint32{c.ClntRef, c.LastUse, c.Expires, c.Error, c.Used, c.ID, c.Ts, c.TsAge} {
		buf.PutUint32(v)
	}
}

// SizeofRtNexthop is the fixed prefix of one struct rtnexthop inside
// RTA_MULTIPATH.
const SizeofRtNexthop = 8

// NextHop is one leg of a multipath route: a struct rtnexthop plus the
// nested attributes that follow it.
type NextHop struct {
	Flags   uint8
	Hops    uint8
	Ifindex int32
	Gateway netip.Addr
}

// parseNextHops walks the rtnexthop list inside an RTA_MULTIPATH value.
func parseNextHops(a Attr, family uint8) ([]NextHop, error) {
	buf := NewBufferOrder(a.Value, a.order)

	var hops []NextHop
	for buf.Remaining() > 0 {
		if buf.Remaining() < SizeofRtNexthop {
			return nil, fmt.Errorf("%w: rtnexthop", ErrMalformedAttribute)
		}
		start := buf.Pos()
		length := int(buf.Uint16())
		if length < SizeofRtNexthop || length > buf.Len()-start {
			return nil, fmt.Errorf("%w: rtnexthop length %d", ErrMalformedAttribute, length)
		}

		nh := NextHop{Flags: buf.Byte(), Hops: buf.Byte(), Ifindex: int32(buf.Uint32())}

		sc := Attrs(buf, start+length)
		for sc.Scan() {
			if na := sc.Attr(); na.Type == unix.RTA_GATEWAY {
				addr, err := attrAddr(na, family)
				if err != nil {
					return nil, err
				}
				nh.Gateway = addr
			}
		}
		if err := sc.Err(); err != nil {
			return nil, err
		}

		hops = append(hops, nh)
		buf.SetPos(min(start+Align4(length), buf.Len()))
	}
	return hops, nil
}

func packNextHops(buf *Buffer, hops []NextHop) {
	attrStart := buf.Pos()
	buf.PutUint16(0) // length fixed up below
	buf.PutUint16(unix.RTA_MULTIPATH)
	for _, nh := range hops {
		length := SizeofRtNexthop
		if nh.Gateway.IsValid() {
			length += AttrSpace(len(nh.Gateway.AsSlice()))
		}
		buf.PutUint16(uint16(length))
		buf.PutByte(nh.Flags)
		buf.PutByte(nh.Hops)
		buf.PutUint32(uint32(nh.Ifindex))
		if nh.Gateway.IsValid() {
			PutAttr(buf, unix.RTA_GATEWAY, nh.Gateway.AsSlice())
		}
	}
	end := buf.Pos()
	buf.SetPos(attrStart)
	buf.PutUint16(uint16(end - attrStart))
	buf.SetPos(end)
}

// RouteMessage is a parsed RTM_NEWROUTE, RTM_DELROUTE or RTM_GETROUTE.
// Both ordinary unicast entries (AF_INET/AF_INET6) and IPv6 multicast
// forwarding cache entries (RTNL_FAMILY_IP6MR) land here; the latter carry a
// source prefix and an input interface instead of a gateway.
type RouteMessage struct {
	Hdr Header
	Rt  RtMsg

	// Destination is always set after a successful parse; a message with
	// no RTA_DST decodes as the all-zero /0 of its family.
	Destination netip.Prefix
	Source      netip.Prefix
	Gateway     netip.Addr

	IifIndex int32
	OifIndex int32

	// NextHops holds the RTA_MULTIPATH legs; empty for single-path routes.
	NextHops []NextHop

	// Pref is the RTA_PREF route preference (RFC 4191), nil when absent.
	Pref *uint8

	CacheInfo *RtaCacheInfo

	// ExpiresMillis is RTA_EXPIRES converted from clock ticks to
	// milliseconds, or -1 when the route does not expire.
	ExpiresMillis int64
}

func (m *RouteMessage) Header() *Header { return &m.Hdr }

// Resolved reports whether a multicast forwarding cache entry has been
// resolved. Always true for unicast routes.
func (m *RouteMessage) Resolved() bool {
	return m.Rt.Flags&RTNH_F_UNRESOLVED == 0
}

func (m *RouteMessage) String() string {
	s := fmt.Sprintf("route{family: %d, dst: %s", m.Rt.Family, m.Destination)
	if m.Source.IsValid() {
		s += fmt.Sprintf(", src: %s", m.Source)
	}
	if m.Gateway.IsValid() {
		s += fmt.Sprintf(", via: %s", m.Gateway)
	}
	if m.IifIndex != 0 {
		s += fmt.Sprintf(", iif: %d", m.IifIndex)
	}
	if m.OifIndex != 0 {
		s += fmt.Sprintf(", oif: %d", m.OifIndex)
	}
	if m.ExpiresMillis >= 0 {
		s += fmt.Sprintf(", expires: %dms", m.ExpiresMillis)
	}
	return s + "}"
}

// routeAddrBits is the prefix length of a host route for the family.
func routeAddrBits(family uint8) int {
	if family == unix.AF_INET {
		return 32
	}
	return 128
}

func parseRoute(hdr Header, buf *Buffer, end int) (Message, error) {
	// Bound the fixed struct by the message's declared end, not by the
	// datagram: a short message must never decode its sibling's bytes.
	if end-buf.Pos() < SizeofRtMsg {
		return nil, fmt.Errorf("%w: rtmsg needs %d bytes, have %d",
			ErrTruncated, SizeofRtMsg, end-buf.Pos())
	}
	rt, err := ParseRtMsg(buf)
	if err != nil {
		return nil, err
	}
	switch rt.Family {
	case unix.AF_INET, unix.AF_INET6, RTNL_FAMILY_IP6MR:
	default:
		return nil, fmt.Errorf("%w: rtmsg family %d", ErrFamilyMismatch, rt.Family)
	}

	m := &RouteMessage{Hdr: hdr, Rt: rt, ExpiresMillis: -1}

	sc := Attrs(buf, end)
	for sc.Scan() {
		a := sc.Attr()
		switch a.Type {
		case unix.RTA_DST:
			addr, err := attrAddr(a, rt.Family)
			if err != nil {
				return nil, err
			}
			m.Destination = netip.PrefixFrom(addr, int(rt.DstLen))
		case unix.RTA_SRC:
			addr, err := attrAddr(a, rt.Family)
			if err != nil {
				return nil, err
			}
			m.Source = netip.PrefixFrom(addr, int(rt.SrcLen))
		case unix.RTA_GATEWAY:
			addr, err := attrAddr(a, rt.Family)
			if err != nil {
				return nil, err
			}
			m.Gateway = addr
		case unix.RTA_IIF:
			v, ok := a.Uint32()
			if !ok {
				return nil, fmt.Errorf("%w: RTA_IIF", ErrMalformedAttribute)
			}
			m.IifIndex = int32(v)
		case unix.RTA_OIF:
			// An undersized RTA_OIF is tolerated and decodes as
			// "no interface", matching the kernel's own leniency.
			v, _ := a.Uint32()
			m.OifIndex = int32(v)
		case unix.RTA_MULTIPATH:
			hops, err := parseNextHops(a, rt.Family)
			if err != nil {
				return nil, err
			}
			m.NextHops = hops
		case unix.RTA_PREF:
			if len(a.Value) == 1 {
				pref := a.Value[0]
				m.Pref = &pref
			}
		case unix.RTA_CACHEINFO:
			if ci, ok := parseRtaCacheInfo(a); ok {
				m.CacheInfo = &ci
			}
		case unix.RTA_EXPIRES:
			v, ok := a.Uint64()
			if !ok {
				return nil, fmt.Errorf("%w: RTA_EXPIRES", ErrMalformedAttribute)
			}
			// The kernel reports clock ticks at USER_HZ (100/s).
			m.ExpiresMillis = int64(v) * 10
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	if !m.Destination.IsValid() {
		any := netip.IPv6Unspecified()
		if rt.Family == unix.AF_INET {
			any = netip.IPv4Unspecified()
		}
		m.Destination = netip.PrefixFrom(any, 0)
	}
	return m, nil
}

// Pack serializes the message, header included, re-emitting only the
// attributes this codec models. The header length is fixed up afterwards to
// cover whatever was written.
func (m *RouteMessage) Pack(buf *Buffer) {
	start := buf.Pos()
	m.Hdr.Pack(buf)
	m.Rt.Pack(buf)

	if m.Source.IsValid() {
		PutAttr(buf, unix.RTA_SRC, m.Source.Addr().AsSlice())
	}
	if m.Destination.IsValid() {
		PutAttr(buf, unix.RTA_DST, m.Destination.Addr().AsSlice())
	}
	if m.Gateway.IsValid() {
		PutAttr(buf, unix.RTA_GATEWAY, m.Gateway.AsSlice())
	}
	if m.IifIndex != 0 {
		PutUint32Attr(buf, unix.RTA_IIF, uint32(m.IifIndex))
	}
	if m.OifIndex != 0 {
		PutUint32Attr(buf, unix.RTA_OIF, uint32(m.OifIndex))
	}
	if len(m.NextHops) > 0 {
		packNextHops(buf, m.NextHops)
	}
	if m.Pref != nil {
		PutAttr(buf, unix.RTA_PREF, []byte{*m.Pref})
	}
	if m.CacheInfo != nil {
		buf.PutUint16(NLAHeaderLen + SizeofRtaCacheInfo)
		buf.PutUint16(unix.RTA_CACHEINFO)
		m.CacheInfo.pack(buf)
	}
	if m.ExpiresMillis >= 0 {
		buf.PutUint16(NLAHeaderLen + 8)
		buf.PutUint16(unix.RTA_EXPIRES)
		buf.PutUint64(uint64(m.ExpiresMillis / 10))
	}

	finishHeader(buf, start)
}

// finishHeader rewrites the nlmsghdr length field at start to cover
// everything packed since.
func finishHeader(buf *Buffer, start int) {
	end := buf.Pos()
	buf.SetPos(start)
	buf.PutUint32(uint32(end - start))
	buf.SetPos(end)
}

// NewGetRouteRequest builds an RTM_GETROUTE dump request for one routing
// family (unix.AF_INET, unix.AF_INET6 or RTNL_FAMILY_IP6MR).
func NewGetRouteRequest(family uint8, seq uint32) []byte {
	buf := NewBuffer(make([]byte, SizeofHeader+SizeofRtMsg))
	hdr := Header{
		Len:   uint32(SizeofHeader + SizeofRtMsg),
		Type:  unix.RTM_GETROUTE,
		Flags: unix.NLM_F_REQUEST | unix.NLM_F_DUMP,
		Seq:   seq,
	}
	hdr.Pack(buf)
	RtMsg{Family: family}.Pack(buf)
	return buf.Bytes()
}
