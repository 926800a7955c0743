package nlmsg

import (
	"fmt"
	"net/netip"

	"golang.org/x/sys/unix"
)

// SizeofInetDiagSockID is the length of struct inet_diag_sockid.
const SizeofInetDiagSockID = 48

// InetDiagSockID mirrors struct inet_diag_sockid. Ports are big-endian on
// the wire; the interface index and cookie are host order. The address slots
// are 16 bytes each regardless of family, IPv4 occupying the first four.
type InetDiagSockID struct {
	SPort   uint16
	DPort   uint16
	Src     netip.Addr
	Dst     netip.Addr
	Ifindex uint32
	Cookie  uint64
}

func parseSockID(buf *Buffer, family uint8) (InetDiagSockID, error) {
	if buf.Remaining() < SizeofInetDiagSockID {
		return InetDiagSockID{}, fmt.Errorf("%w: inet_diag_sockid needs %d bytes, have %d",
			ErrTruncated, SizeofInetDiagSockID, buf.Remaining())
	}
	id := InetDiagSockID{
		SPort: buf.WireUint16(),
		DPort: buf.WireUint16(),
	}
	src := buf.Next(16)
	dst := buf.Next(16)
	if family == unix.AF_INET {
		id.Src = netip.AddrFrom4([4]byte(src[:4]))
		id.Dst = netip.AddrFrom4([4]byte(dst[:4]))
	} else {
		id.Src = netip.AddrFrom16([16]byte(src))
		id.Dst = netip.AddrFrom16([16]byte(dst))
	}
	id.Ifindex = buf.Uint32()
	id.Cookie = buf.Uint64()
	return id, nil
}

func (id InetDiagSockID) pack(buf *Buffer) {
	buf.PutWireUint16(id.SPort)
	buf.PutWireUint16(id.DPort)
	packSockAddr(buf, id.Src)
	packSockAddr(buf, id.Dst)
	buf.PutUint32(id.Ifindex)
	buf.PutUint64(id.Cookie)
}

func packSockAddr(buf *Buffer, addr netip.Addr) {
	if !addr.IsValid() {
		buf.PutZero(16)
		return
	}
	b := addr.AsSlice()
	buf.Put(b)
	buf.PutZero(16 - len(b))
}

// SizeofInetDiagReqV2 is the length of struct inet_diag_req_v2.
const SizeofInetDiagReqV2 = 8 + SizeofInetDiagSockID

// InetDiagReqV2 mirrors struct inet_diag_req_v2, the request payload of
// SOCK_DIAG_BY_FAMILY and SOCK_DESTROY, see sock_diag(7).
type InetDiagReqV2 struct {
	Family   uint8
	Protocol uint8
	Ext      uint8
	Pad      uint8
	States   uint32
	ID       InetDiagSockID
}

func (r InetDiagReqV2) pack(buf *Buffer) {
	buf.PutByte(r.Family)
	buf.PutByte(r.Protocol)
	buf.PutByte(r.Ext)
	buf.PutByte(r.Pad)
	buf.PutUint32(r.States)
	r.ID.pack(buf)
}

// SizeofInetDiagMsg is the length of struct inet_diag_msg.
const SizeofInetDiagMsg = 4 + SizeofInetDiagSockID + 20

// InetDiagMessage is a parsed SOCK_DIAG_BY_FAMILY response carrying one
// struct inet_diag_msg plus whatever INET_DIAG_* attributes the kernel chose
// to append.
type InetDiagMessage struct {
	Hdr Header

	Family  uint8
	State   uint8
	Timer   uint8
	Retrans uint8
	ID      InetDiagSockID
	Expires uint32
	RQueue  uint32
	WQueue  uint32
	UID     uint32
	Inode   uint32

	// Ext holds the decoded extension attributes; absent ones are nil.
	Ext InetDiagExt
}

func (m *InetDiagMessage) Header() *Header { return &m.Hdr }

func (m *InetDiagMessage) String() string {
	return fmt.Sprintf("sock{%s:%d -> %s:%d, state: %d, uid: %d, inode: %d}",
		m.ID.Src, m.ID.SPort, m.ID.Dst, m.ID.DPort, m.State, m.UID, m.Inode)
}

func parseInetDiag(hdr Header, buf *Buffer, end int) (Message, error) {
	if end-buf.Pos() < SizeofInetDiagMsg {
		return nil, fmt.Errorf("%w: inet_diag_msg needs %d bytes, have %d",
			ErrTruncated, SizeofInetDiagMsg, end-buf.Pos())
	}

	m := &InetDiagMessage{Hdr: hdr}
	m.Family = buf.Byte()
	m.State = buf.Byte()
	m.Timer = buf.Byte()
	m.Retrans = buf.Byte()

	// The sockid layout depends on the family; anything but the two inet
	// families is a rejection, not a guess.
	if m.Family != unix.AF_INET && m.Family != unix.AF_INET6 {
		return nil, fmt.Errorf("%w: inet_diag family %d", ErrFamilyMismatch, m.Family)
	}

	id, err := parseSockID(buf, m.Family)
	if err != nil {
		return nil, err
	}
	m.ID = id

	m.Expires = buf.Uint32()
	m.RQueue = buf.Uint32()
	m.WQueue = buf.Uint32()
	m.UID = buf.Uint32()
	m.Inode = buf.Uint32()

	if err := parseInetDiagExt(&m.Ext, buf, end); err != nil {
		return nil, err
	}
	return m, nil
}

// NewSockDiagRequest builds a SOCK_DIAG_BY_FAMILY dump request. Passing two
// invalid (zero) AddrPorts queries every socket of the family and protocol
// in any of the given states; passing both endpoints narrows the query to
// one connection. Exactly one endpoint is not a meaningful query and fails
// with ErrInvalidArgument.
func NewSockDiagRequest(proto uint8, local, remote netip.AddrPort, family uint8,
	flags uint16, pad uint8, ext uint8, states uint32) ([]byte, error) {
	return inetDiagReqV2(SOCK_DIAG_BY_FAMILY, proto, local, remote, family, flags, pad, ext, states)
}

// NewSockDestroyRequest builds a SOCK_DESTROY request for the connection
// identified by the two endpoints.
func NewSockDestroyRequest(proto uint8, local, remote netip.AddrPort, family uint8, seq uint32) ([]byte, error) {
	b, err := inetDiagReqV2(SOCK_DESTROY, proto, local, remote, family,
		unix.NLM_F_REQUEST|unix.NLM_F_ACK, 0, 0, TCP_ALL_STATES)
	if err != nil {
		return nil, err
	}
	// Sequence number sits at offset 8 of the nlmsghdr.
	buf := NewBuffer(b)
	buf.SetPos(8)
	buf.PutUint32(seq)
	return b, nil
}

// NewSockDestroyRequestID builds a SOCK_DESTROY request for a fully
// specified socket identity, cookie and interface index included, for
// callers that got the identity from a previous diag response.
func NewSockDestroyRequestID(proto uint8, id InetDiagSockID, family uint8, seq uint32) []byte {
	req := InetDiagReqV2{
		Family:   family,
		Protocol: proto,
		States:   TCP_ALL_STATES,
		ID:       id,
	}
	buf := NewBuffer(make([]byte, SizeofHeader+SizeofInetDiagReqV2))
	hdr := Header{
		Len:   uint32(SizeofHeader + SizeofInetDiagReqV2),
		Type:  SOCK_DESTROY,
		Flags: unix.NLM_F_REQUEST | unix.NLM_F_ACK,
		Seq:   seq,
	}
	hdr.Pack(buf)
	req.pack(buf)
	return buf.Bytes()
}

func inetDiagReqV2(typ uint16, proto uint8, local, remote netip.AddrPort, family uint8,
	flags uint16, pad uint8, ext uint8, states uint32) ([]byte, error) {

	req := InetDiagReqV2{
		Family:   family,
		Protocol: proto,
		Ext:      ext,
		Pad:      pad,
		States:   states,
	}
	switch {
	case local.IsValid() && remote.IsValid():
		req.ID = InetDiagSockID{
			SPort: local.Port(),
			DPort: remote.Port(),
			Src:   local.Addr(),
			Dst:   remote.Addr(),
			// NOCOOKIE makes the kernel match on endpoints alone.
			Cookie: INET_DIAG_NOCOOKIE,
		}
	case !local.IsValid() && !remote.IsValid():
		// All-zero sockid: match every socket.
	default:
		return nil, fmt.Errorf("%w: need both endpoints or neither", ErrInvalidArgument)
	}

	buf := NewBuffer(make([]byte, SizeofHeader+SizeofInetDiagReqV2))
	hdr := Header{
		Len:   uint32(SizeofHeader + SizeofInetDiagReqV2),
		Type:  typ,
		Flags: flags,
	}
	hdr.Pack(buf)
	req.pack(buf)
	return buf.Bytes(), nil
}
