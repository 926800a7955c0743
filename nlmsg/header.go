package nlmsg

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// SizeofHeader is the size of struct nlmsghdr.
const SizeofHeader = unix.NLMSG_HDRLEN

// Header is struct nlmsghdr, the 16-byte header in front of every netlink
// message. All fields are in the host's native byte order. Len covers the
// header itself plus the family payload header and the attribute list;
// Seq is an opaque correlation token with no meaning inside the codec.
type Header struct {
	Len   uint32
	Type  uint16
	Flags uint16
	Seq   uint32
	PID   uint32
}

// ParseHeader reads one nlmsghdr at the buffer's position. It fails with
// ErrTruncated on a short buffer and with ErrBadHeader when the declared
// length is smaller than the header or larger than what remains, leaving
// the position where it was; callers decide how much to consume.
func ParseHeader(buf *Buffer) (Header, error) {
	if buf.Remaining() < SizeofHeader {
		return Header{}, fmt.Errorf("%w: %d bytes left, nlmsghdr needs %d",
			ErrTruncated, buf.Remaining(), SizeofHeader)
	}

	start := buf.Pos()
	hdr := Header{
		Len:   buf.Uint32(),
		Type:  buf.Uint16(),
		Flags: buf.Uint16(),
		Seq:   buf.Uint32(),
		PID:   buf.Uint32(),
	}

	if int(hdr.Len) < SizeofHeader || int(hdr.Len) > buf.Len()-start {
		buf.SetPos(start)
		return Header{}, fmt.Errorf("%w: declared length %d with %d bytes available",
			ErrBadHeader, hdr.Len, buf.Len()-start)
	}

	return hdr, nil
}

// Pack writes the header at the buffer's position.
func (h *Header) Pack(buf *Buffer) {
	buf.PutUint32(h.Len)
	buf.PutUint16(h.Type)
	buf.PutUint16(h.Flags)
	buf.PutUint32(h.Seq)
	buf.PutUint32(h.PID)
}

// Multi reports whether this message is part of a multi-part dump response.
func (h *Header) Multi() bool {
	return h.Flags&unix.NLM_F_MULTI != 0
}

func (h *Header) String() string {
	return fmt.Sprintf("nlmsghdr{len: %d, type: %d, flags: %#x, seq: %d, pid: %d}",
		h.Len, h.Type, h.Flags, h.Seq, h.PID)
}

// typeName names a message type code. Codes above the NLMSG_* control range
// only mean something relative to a netlink protocol (rtnetlink's
// RTM_NEWADDR and sock_diag's SOCK_DIAG_BY_FAMILY are both 20), so the
// protocol picks the table.
func typeName(t uint16, proto int) string {
	switch t {
	case unix.NLMSG_NOOP:
		return "NLMSG_NOOP"
	case unix.NLMSG_ERROR:
		return "NLMSG_ERROR"
	case unix.NLMSG_DONE:
		return "NLMSG_DONE"
	case unix.NLMSG_OVERRUN:
		return "NLMSG_OVERRUN"
	}

	switch proto {
	case unix.NETLINK_ROUTE:
		switch t {
		case unix.RTM_NEWROUTE:
			return "RTM_NEWROUTE"
		case unix.RTM_DELROUTE:
			return "RTM_DELROUTE"
		case unix.RTM_GETROUTE:
			return "RTM_GETROUTE"
		case unix.RTM_NEWADDR:
			return "RTM_NEWADDR"
		case unix.RTM_DELADDR:
			return "RTM_DELADDR"
		case unix.RTM_GETADDR:
			return "RTM_GETADDR"
		}
	case unix.NETLINK_INET_DIAG:
		switch t {
		case SOCK_DIAG_BY_FAMILY:
			return "SOCK_DIAG_BY_FAMILY"
		case SOCK_DESTROY:
			return "SOCK_DESTROY"
		}
	case unix.NETLINK_XFRM:
		if t == XFRM_MSG_NEWSA {
			return "XFRM_MSG_NEWSA"
		}
	}
	return fmt.Sprintf("UNKNOWN_TYPE_%d", t)
}
