package nlmsg

import (
	"fmt"
	"net/netip"

	"golang.org/x/sys/unix"
)

// Kernel IPsec (xfrm) structures, see include/uapi/linux/xfrm.h. Everything
// is host order except the SPI and the selector ports, which the kernel
// keeps in network order because that is how they appear in packets.

// SizeofXfrmAddress is the length of the xfrm_address_t union.
const SizeofXfrmAddress = 16

// XfrmAddress is the raw xfrm_address_t union. How many of the 16 bytes
// matter depends on the family carried next to it, so conversion to a real
// address is explicit.
type XfrmAddress [SizeofXfrmAddress]byte

// Addr interprets the union for the given family.
func (x XfrmAddress) Addr(family uint16) netip.Addr {
	if family == unix.AF_INET {
		return netip.AddrFrom4([4]byte(x[:4]))
	}
	return netip.AddrFrom16(x)
}

// NewXfrmAddress stores addr into the union, zero-padding the tail.
func NewXfrmAddress(addr netip.Addr) XfrmAddress {
	var x XfrmAddress
	copy(x[:], addr.AsSlice())
	return x
}

// SizeofXfrmSelector is the length of struct xfrm_selector.
const SizeofXfrmSelector = 56

// XfrmSelector mirrors struct xfrm_selector.
type XfrmSelector struct {
	Daddr      XfrmAddress
	Saddr      XfrmAddress
	Dport      uint16 // network order
	DportMask  uint16
	Sport      uint16 // network order
	SportMask  uint16
	Family     uint16
	PrefixlenD uint8
	PrefixlenS uint8
	Proto      uint8
	Ifindex    int32
	User       uint32
}

func parseXfrmSelector(buf *Buffer) XfrmSelector {
	var s XfrmSelector
	copy(s.Daddr[:], buf.Next(16))
	copy(s.Saddr[:], buf.Next(16))
	s.Dport = buf.WireUint16()
	s.DportMask = buf.Uint16()
	s.Sport = buf.WireUint16()
	s.SportMask = buf.Uint16()
	s.Family = buf.Uint16()
	s.PrefixlenD = buf.Byte()
	s.PrefixlenS = buf.Byte()
	s.Proto = buf.Byte()
	buf.Skip(3)
	s.Ifindex = int32(buf.Uint32())
	s.User = buf.Uint32()
	return s
}

func (s XfrmSelector) pack(buf *Buffer) {
	buf.Put(s.Daddr[:])
	buf.Put(s.Saddr[:])
	buf.PutWireUint16(s.Dport)
	buf.PutUint16(s.DportMask)
	buf.PutWireUint16(s.Sport)
	buf.PutUint16(s.SportMask)
	buf.PutUint16(s.Family)
	buf.PutByte(s.PrefixlenD)
	buf.PutByte(s.PrefixlenS)
	buf.PutByte(s.Proto)
	buf.PutZero(3)
	buf.PutUint32(uint32(s.Ifindex))
	buf.PutUint32(s.User)
}

// SizeofXfrmId is the length of struct xfrm_id.
const SizeofXfrmId = 24

// XfrmId mirrors struct xfrm_id. The SPI is network order on the wire.
type XfrmId struct {
	Daddr XfrmAddress
	Spi   uint32
	Proto uint8
}

func parseXfrmId(buf *Buffer) XfrmId {
	var id XfrmId
	copy(id.Daddr[:], buf.Next(16))
	id.Spi = buf.WireUint32()
	id.Proto = buf.Byte()
	buf.Skip(3)
	return id
}

func (id XfrmId) pack(buf *Buffer) {
	buf.Put(id.Daddr[:])
	buf.PutWireUint32(id.Spi)
	buf.PutByte(id.Proto)
	buf.PutZero(3)
}

// SizeofXfrmLifetimeCfg is the length of struct xfrm_lifetime_cfg.
const SizeofXfrmLifetimeCfg = 64

// XfrmLifetimeCfg mirrors struct xfrm_lifetime_cfg. XFRM_INF disables a
// limit.
type XfrmLifetimeCfg struct {
	SoftByteLimit         uint64
	HardByteLimit         uint64
	SoftPacketLimit       uint64
	HardPacketLimit       uint64
	SoftAddExpiresSeconds uint64
	HardAddExpiresSeconds uint64
	SoftUseExpiresSeconds uint64
	HardUseExpiresSeconds uint64
}

// UnlimitedLifetimeCfg is the configuration with every limit disabled.
func UnlimitedLifetimeCfg() XfrmLifetimeCfg {
	return XfrmLifetimeCfg{
		SoftByteLimit:   XFRM_INF,
		HardByteLimit:   XFRM_INF,
		SoftPacketLimit: XFRM_INF,
		HardPacketLimit: XFRM_INF,
	}
}

func parseXfrmLifetimeCfg(buf *Buffer) XfrmLifetimeCfg {
	return XfrmLifetimeCfg{
		SoftByteLimit:         buf.Uint64(),
		HardByteLimit:         buf.Uint64(),
		SoftPacketLimit:       buf.Uint64(),
		HardPacketLimit:       buf.Uint64(),
		SoftAddExpiresSeconds: buf.Uint64(),
		HardAddExpiresSeconds: buf.Uint64(),
		SoftUseExpiresSeconds: buf.Uint64(),
		HardUseExpiresSeconds: buf.Uint64(),
	}
}

func (c XfrmLifetimeCfg) pack(buf *Buffer) {
	for _, v := range [8]uint64{
		c.SoftByteLimit, c.HardByteLimit, c.SoftPacketLimit, c.HardPacketLimit,
		c.SoftAddExpiresSeconds, c.HardAddExpiresSeconds,
		c.SoftUseExpiresSeconds, c.HardUseExpiresSeconds,
	} {
		buf.PutUint64(v)
	}
}

// SizeofXfrmLifetimeCur is the length of struct xfrm_lifetime_cur.
const SizeofXfrmLifetimeCur = 32

// XfrmLifetimeCur mirrors struct xfrm_lifetime_cur.
type XfrmLifetimeCur struct {
	Bytes   uint64
	Packets uint64
	AddTime uint64
	UseTime uint64
}

func parseXfrmLifetimeCur(buf *Buffer) XfrmLifetimeCur {
	return XfrmLifetimeCur{
		Bytes:   buf.Uint64(),
		Packets: buf.Uint64(),
		AddTime: buf.Uint64(),
		UseTime: buf.Uint64(),
	}
}

func (c XfrmLifetimeCur) pack(buf *Buffer) {
	buf.PutUint64(c.Bytes)
	buf.PutUint64(c.Packets)
	buf.PutUint64(c.AddTime)
	buf.PutUint64(c.UseTime)
}

// SizeofXfrmStats is the length of struct xfrm_stats.
const SizeofXfrmStats = 12

// XfrmStats mirrors struct xfrm_stats.
type XfrmStats struct {
	ReplayWindow    uint32
	Replay          uint32
	IntegrityFailed uint32
}

// SizeofXfrmUsersaInfo is the length of struct xfrm_usersa_info.
const SizeofXfrmUsersaInfo = SizeofXfrmSelector + SizeofXfrmId + SizeofXfrmAddress +
	SizeofXfrmLifetimeCfg + SizeofXfrmLifetimeCur + SizeofXfrmStats + 20

// XfrmUsersaInfo mirrors struct xfrm_usersa_info, the fixed payload of
// XFRM_MSG_NEWSA.
type XfrmUsersaInfo struct {
	Sel          XfrmSelector
	ID           XfrmId
	Saddr        XfrmAddress
	Lft          XfrmLifetimeCfg
	Curlft       XfrmLifetimeCur
	Stats        XfrmStats
	Seq          uint32
	Reqid        uint32
	Family       uint16
	Mode         uint8
	ReplayWindow uint8
	Flags        uint8
}

// ParseXfrmUsersaInfo reads the fixed struct off the buffer.
func ParseXfrmUsersaInfo(buf *Buffer) (XfrmUsersaInfo, error) {
	if buf.Remaining() < SizeofXfrmUsersaInfo {
		return XfrmUsersaInfo{}, fmt.Errorf("%w: xfrm_usersa_info needs %d bytes, have %d",
			ErrTruncated, SizeofXfrmUsersaInfo, buf.Remaining())
	}
	var i XfrmUsersaInfo
	i.Sel = parseXfrmSelector(buf)
	i.ID = parseXfrmId(buf)
	copy(i.Saddr[:], buf.Next(16))
	i.Lft = parseXfrmLifetimeCfg(buf)
	i.Curlft = parseXfrmLifetimeCur(buf)
	i.Stats = XfrmStats{
		ReplayWindow:    buf.Uint32(),
		Replay:          buf.Uint32(),
		IntegrityFailed: buf.Uint32(),
	}
	i.Seq = buf.Uint32()
	i.Reqid = buf.Uint32()
	i.Family = buf.Uint16()
	i.Mode = buf.Byte()
	i.ReplayWindow = buf.Byte()
	i.Flags = buf.Byte()
	buf.Skip(7)
	return i, nil
}

// Pack appends the fixed struct in kernel layout.
func (i XfrmUsersaInfo) Pack(buf *Buffer) {
	i.Sel.pack(buf)
	i.ID.pack(buf)
	buf.Put(i.Saddr[:])
	i.Lft.pack(buf)
	i.Curlft.pack(buf)
	buf.PutUint32(i.Stats.ReplayWindow)
	buf.PutUint32(i.Stats.Replay)
	buf.PutUint32(i.Stats.IntegrityFailed)
	buf.PutUint32(i.Seq)
	buf.PutUint32(i.Reqid)
	buf.PutUint16(i.Family)
	buf.PutByte(i.Mode)
	buf.PutByte(i.ReplayWindow)
	buf.PutByte(i.Flags)
	buf.PutZero(7)
}

// XfrmReplayStateEsn mirrors struct xfrm_replay_state_esn, the variable
// length XFRMA_REPLAY_ESN_VAL payload. Bmp holds BmpLen 32-bit words.
type XfrmReplayStateEsn struct {
	BmpLen       uint32
	Oseq         uint32
	Seq          uint32
	OseqHi       uint32
	SeqHi        uint32
	ReplayWindow uint32
	Bmp          []uint32
}

func parseXfrmReplayStateEsn(a Attr) (*XfrmReplayStateEsn, error) {
	const fixed = 24
	if len(a.Value) < fixed {
		return nil, fmt.Errorf("%w: xfrm_replay_state_esn", ErrMalformedAttribute)
	}
	b := NewBufferOrder(a.Value, a.order)
	esn := &XfrmReplayStateEsn{
		BmpLen:       b.Uint32(),
		Oseq:         b.Uint32(),
		Seq:          b.Uint32(),
		OseqHi:       b.Uint32(),
		SeqHi:        b.Uint32(),
		ReplayWindow: b.Uint32(),
	}
	if len(a.Value) < fixed+4*int(esn.BmpLen) {
		return nil, fmt.Errorf("%w: xfrm_replay_state_esn bitmap", ErrMalformedAttribute)
	}
	esn.Bmp = make([]uint32, esn.BmpLen)
	for i := range esn.Bmp {
		esn.Bmp[i] = b.Uint32()
	}
	return esn, nil
}

// XfrmNewSaMessage is a parsed XFRM_MSG_NEWSA announcing a new security
// association.
type XfrmNewSaMessage struct {
	Hdr Header
	SA  XfrmUsersaInfo

	// ReplayEsn is nil when the SA uses the legacy 32-bit replay window.
	ReplayEsn *XfrmReplayStateEsn
}

func (m *XfrmNewSaMessage) Header() *Header { return &m.Hdr }

// Destination is the SA's destination address.
func (m *XfrmNewSaMessage) Destination() netip.Addr { return m.SA.ID.Daddr.Addr(m.SA.Family) }

// Source is the SA's source address.
func (m *XfrmNewSaMessage) Source() netip.Addr { return m.SA.Saddr.Addr(m.SA.Family) }

// Spi is the SA's security parameter index.
func (m *XfrmNewSaMessage) Spi() uint32 { return m.SA.ID.Spi }

func parseXfrmNewSa(hdr Header, buf *Buffer, end int) (Message, error) {
	if end-buf.Pos() < SizeofXfrmUsersaInfo {
		return nil, fmt.Errorf("%w: xfrm_usersa_info needs %d bytes, have %d",
			ErrTruncated, SizeofXfrmUsersaInfo, end-buf.Pos())
	}
	sa, err := ParseXfrmUsersaInfo(buf)
	if err != nil {
		return nil, err
	}
	m := &XfrmNewSaMessage{Hdr: hdr, SA: sa}

	sc := Attrs(buf, end)
	for sc.Scan() {
		a := sc.Attr()
		if a.Type == XFRMA_REPLAY_ESN_VAL {
			esn, err := parseXfrmReplayStateEsn(a)
			if err != nil {
				return nil, err
			}
			m.ReplayEsn = esn
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return m, nil
}
