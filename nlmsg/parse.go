package nlmsg

import (
	"fmt"
	"log/slog"

	"golang.org/x/sys/unix"
)

// Message is one parsed netlink message. The concrete type depends on the
// header's type code: RouteMessage, AddressMessage, InetDiagMessage,
// XfrmNewSaMessage, ErrorMessage, DoneMessage or UnknownMessage.
type Message interface {
	Header() *Header
}

// DoneMessage is the NLMSG_DONE marker terminating a multi-part dump.
type DoneMessage struct {
	Hdr Header
}

func (m *DoneMessage) Header() *Header { return &m.Hdr }

// ErrorMessage is an NLMSG_ERROR frame. Errno is the kernel errno converted
// to userspace conventions (positive); zero means the frame is an ack.
type ErrorMessage struct {
	Hdr   Header
	Errno int
	// Cause is the header of the request the kernel is complaining about.
	Cause Header
}

func (m *ErrorMessage) Header() *Header { return &m.Hdr }

// Ack reports whether this error frame acknowledges success.
func (m *ErrorMessage) Ack() bool { return m.Errno == 0 }

// UnknownMessage holds a message of a type this codec has no parser for.
// Unknown types are not an error: a caller scanning a mixed multi-message
// buffer must never abort early on an unrelated message, so the payload is
// preserved as-is and the stream continues.
type UnknownMessage struct {
	Hdr  Header
	Data []byte
}

func (m *UnknownMessage) Header() *Header { return &m.Hdr }

// sizeofNlMsgErr is the error payload: an s32 errno plus the offending
// request's nlmsghdr.
const sizeofNlMsgErr = 4 + SizeofHeader

// ParseOne consumes exactly one message from the front of the buffer: it
// reads a header, dispatches on the type code (disambiguated by the netlink
// protocol the caller queried, e.g. unix.NETLINK_ROUTE or
// unix.NETLINK_INET_DIAG) and advances the position past align4(hdr.Len)
// whether or not the payload parses. A failed message therefore never stops
// a caller from parsing its siblings.
//
// The malformed-input policy, pinned by the tests:
//   - a fixed struct that cannot be fully read fails with ErrTruncated and
//     yields no partial object;
//   - an attribute running past the message boundary discards the whole
//     message, not just the attribute;
//   - a nested address whose detected family contradicts the declared
//     family field fails with ErrFamilyMismatch, never auto-corrects;
//   - unknown message types come back as *UnknownMessage with a nil error.
func ParseOne(buf *Buffer, proto int) (Message, error) {
	start := buf.Pos()
	hdr, err := ParseHeader(buf)
	if err != nil {
		// Runt or lying header: pretend the rest of the buffer was
		// consumed so the caller terminates cleanly.
		buf.SetPos(buf.Len())
		return nil, err
	}

	// The kernel aligns consecutive messages to 4 bytes; the last message
	// of a datagram may omit the trailing padding.
	end := start + int(hdr.Len)
	next := min(start+Align4(int(hdr.Len)), buf.Len())
	defer buf.SetPos(next)

	msg, err := parsePayload(hdr, buf, end, proto)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", typeName(hdr.Type, proto), err)
	}
	return msg, nil
}

func parsePayload(hdr Header, buf *Buffer, end int, proto int) (Message, error) {
	switch hdr.Type {
	case unix.NLMSG_DONE:
		return &DoneMessage{Hdr: hdr}, nil
	case unix.NLMSG_ERROR:
		return parseError(hdr, buf, end)
	case unix.NLMSG_NOOP, unix.NLMSG_OVERRUN:
		return &UnknownMessage{Hdr: hdr, Data: buf.Next(end - buf.Pos())}, nil
	}

	switch proto {
	case unix.NETLINK_ROUTE:
		switch hdr.Type {
		case unix.RTM_NEWROUTE, unix.RTM_DELROUTE, unix.RTM_GETROUTE:
			return parseRoute(hdr, buf, end)
		case unix.RTM_NEWADDR, unix.RTM_DELADDR:
			return parseAddress(hdr, buf, end)
		}
	case unix.NETLINK_INET_DIAG:
		if hdr.Type == SOCK_DIAG_BY_FAMILY || hdr.Type == SOCK_DESTROY {
			return parseInetDiag(hdr, buf, end)
		}
	case unix.NETLINK_XFRM:
		if hdr.Type == XFRM_MSG_NEWSA {
			return parseXfrmNewSa(hdr, buf, end)
		}
	}

	return &UnknownMessage{Hdr: hdr, Data: buf.Next(end - buf.Pos())}, nil
}

func parseError(hdr Header, buf *Buffer, end int) (Message, error) {
	if end-buf.Pos() < sizeofNlMsgErr {
		return nil, fmt.Errorf("%w: nlmsgerr needs %d bytes", ErrTruncated, sizeofNlMsgErr)
	}

	// Kernel errnos are negative; surface the userspace convention.
	errno := int(int32(buf.Uint32()))
	if errno < 0 {
		errno = -errno
	}
	cause := Header{
		Len:   buf.Uint32(),
		Type:  buf.Uint16(),
		Flags: buf.Uint16(),
		Seq:   buf.Uint32(),
		PID:   buf.Uint32(),
	}
	return &ErrorMessage{Hdr: hdr, Errno: errno, Cause: cause}, nil
}

// ParseAll drives ParseOne until the buffer is exhausted, collecting every
// message that parses. Per-message failures are logged and skipped, per the
// propagation policy: no failure in this codec aborts sibling messages.
func ParseAll(b []byte, proto int) []Message {
	buf := NewBuffer(b)

	var msgs []Message
	for buf.Remaining() > 0 {
		msg, err := ParseOne(buf, proto)
		if err != nil {
			slog.Debug("skipping malformed netlink message", "err", err)
			continue
		}
		msgs = append(msgs, msg)
	}
	return msgs
}
