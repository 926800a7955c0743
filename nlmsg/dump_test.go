package nlmsg

import (
	"context"
	"errors"
	"io"
	"net/netip"
	"testing"

	"golang.org/x/sys/unix"
)

// memTransport replays canned datagrams and records what was sent.
type memTransport struct {
	sent      [][]byte
	responses [][]byte
	sendErr   error
}

func (t *memTransport) Send(b []byte) error {
	if t.sendErr != nil {
		return t.sendErr
	}
	t.sent = append(t.sent, b)
	return nil
}

func (t *memTransport) Receive() ([]byte, error) {
	if len(t.responses) == 0 {
		return nil, io.EOF
	}
	b := t.responses[0]
	t.responses = t.responses[1:]
	return b, nil
}

func packedRoute(t *testing.T, dst string, oif int32) []byte {
	t.Helper()
	buf := NewBuffer(make([]byte, 128))
	m := RouteMessage{
		Hdr:           Header{Type: unix.RTM_NEWROUTE, Flags: unix.NLM_F_MULTI},
		Rt:            RtMsg{Family: unix.AF_INET6, DstLen: 64, Type: unix.RTN_UNICAST},
		Destination:   netip.MustParsePrefix(dst),
		OifIndex:      oif,
		ExpiresMillis: -1,
	}
	m.Pack(buf)
	return buf.Bytes()[:buf.Pos()]
}

func packedDone(t *testing.T) []byte {
	t.Helper()
	buf := NewBuffer(make([]byte, 20))
	hdr := Header{Len: 20, Type: unix.NLMSG_DONE, Flags: unix.NLM_F_MULTI}
	hdr.Pack(buf)
	buf.PutUint32(0)
	return buf.Bytes()
}

func packedError(t *testing.T, errno int32) []byte {
	t.Helper()
	buf := NewBuffer(make([]byte, SizeofHeader+sizeofNlMsgErr))
	hdr := Header{Len: uint32(buf.Len()), Type: unix.NLMSG_ERROR}
	hdr.Pack(buf)
	buf.PutUint32(uint32(errno))
	cause := Header{Len: SizeofHeader, Type: unix.RTM_GETROUTE}
	cause.Pack(buf)
	return buf.Bytes()
}

func TestDump(t *testing.T) {
	// Two routes in the first datagram, one in the second, then DONE.
	tr := &memTransport{responses: [][]byte{
		append(packedRoute(t, "2001:db8:1::/64", 2), packedRoute(t, "2001:db8:2::/64", 3)...),
		packedRoute(t, "2001:db8:3::/64", 4),
		packedDone(t),
	}}

	req := NewGetRouteRequest(unix.AF_INET6, 1)
	var got []netip.Prefix
	err := Dump(context.Background(), tr, req, unix.NETLINK_ROUTE, func(msg Message) error {
		rm, ok := msg.(*RouteMessage)
		if !ok {
			return errors.New("unexpected message type")
		}
		got = append(got, rm.Destination)
		return nil
	})
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}

	want := []netip.Prefix{
		netip.MustParsePrefix("2001:db8:1::/64"),
		netip.MustParsePrefix("2001:db8:2::/64"),
		netip.MustParsePrefix("2001:db8:3::/64"),
	}
	if len(got) != len(want) {
		t.Fatalf("got %d routes, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("route %d: got %v, want %v", i, got[i], want[i])
		}
	}
	if len(tr.sent) != 1 || len(tr.sent[0]) != len(req) {
		t.Errorf("sent %d datagrams, want the one request", len(tr.sent))
	}
}

// A reply without NLM_F_MULTI is complete in itself; no DONE follows and the
// dump must not wait for one.
func TestDump_SingleReply(t *testing.T) {
	reply := packedRoute(t, "2001:db8::/64", 2)
	// Clear NLM_F_MULTI in the packed header.
	native.PutUint16(reply[6:], 0)

	tr := &memTransport{responses: [][]byte{reply}}
	var n int
	err := Dump(context.Background(), tr, NewGetRouteRequest(unix.AF_INET6, 1), unix.NETLINK_ROUTE,
		func(Message) error { n++; return nil })
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	if n != 1 {
		t.Errorf("visited %d messages, want 1", n)
	}
	if len(tr.responses) != 0 {
		t.Error("reply datagram not consumed")
	}
}

func TestDump_KernelError(t *testing.T) {
	tr := &memTransport{responses: [][]byte{packedError(t, -int32(unix.EPERM))}}

	err := Dump(context.Background(), tr, NewGetRouteRequest(unix.AF_INET6, 1), unix.NETLINK_ROUTE,
		func(Message) error { return nil })

	var nlErr *NetlinkError
	if !errors.As(err, &nlErr) {
		t.Fatalf("got %v, want *NetlinkError", err)
	}
	if nlErr.Errno != int(unix.EPERM) {
		t.Errorf("errno: got %d, want EPERM", nlErr.Errno)
	}
}

func TestDump_CallbackError(t *testing.T) {
	tr := &memTransport{responses: [][]byte{
		packedRoute(t, "2001:db8:1::/64", 2),
		packedDone(t),
	}}

	sentinel := errors.New("stop here")
	err := Dump(context.Background(), tr, NewGetRouteRequest(unix.AF_INET6, 1), unix.NETLINK_ROUTE,
		func(Message) error { return sentinel })
	if !errors.Is(err, sentinel) {
		t.Fatalf("got %v, want the callback's error", err)
	}
}

func TestDump_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tr := &memTransport{responses: [][]byte{packedDone(t)}}
	err := Dump(ctx, tr, NewGetRouteRequest(unix.AF_INET6, 1), unix.NETLINK_ROUTE,
		func(Message) error { return nil })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
}

func TestAck(t *testing.T) {
	tests := []struct {
		name      string
		errno     int32
		wantErrno int
	}{
		{"acked", 0, 0},
		{"refused", -int32(unix.EINVAL), int(unix.EINVAL)},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			tr := &memTransport{responses: [][]byte{packedError(t, test.errno)}}
			err := Ack(context.Background(), tr, []byte{0}, unix.NETLINK_ROUTE)
			if test.wantErrno == 0 {
				if err != nil {
					t.Fatalf("Ack: %v", err)
				}
				return
			}
			var nlErr *NetlinkError
			if !errors.As(err, &nlErr) || nlErr.Errno != test.wantErrno {
				t.Fatalf("got %v, want NetlinkError errno %d", err, test.wantErrno)
			}
		})
	}
}

func TestDump_SendFailure(t *testing.T) {
	boom := errors.New("socket closed")
	tr := &memTransport{sendErr: boom}
	err := Dump(context.Background(), tr, []byte{0}, unix.NETLINK_ROUTE, func(Message) error { return nil })
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want the transport's send error", err)
	}
}
