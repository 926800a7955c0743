package nlmsg

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"net/netip"
	"strings"
	"testing"

	"golang.org/x/sys/unix"
)

const rtmNewAddrHex = "48000000140000000000000000000000" + // nlmsghdr
	"0A4080FD1E000000" + // ifaddrmsg
	"14000100FE800000000000002C415CFFFE096665" + // IFA_ADDRESS
	"14000600100E0000201C00002A70000045700000" + // IFA_CACHEINFO
	"0800080080000000" // IFA_FLAGS

func TestParseAddressMessage(t *testing.T) {
	buf := leBuffer(t, rtmNewAddrHex)
	msg, err := ParseOne(buf, unix.NETLINK_ROUTE)
	if err != nil {
		t.Fatalf("parsing RTM_NEWADDR: %v", err)
	}
	am, ok := msg.(*AddressMessage)
	if !ok {
		t.Fatalf("got %T, want *AddressMessage", msg)
	}

	hdr := am.Header()
	if hdr.Len != 72 || hdr.Type != unix.RTM_NEWADDR || hdr.Flags != 0 {
		t.Errorf("unexpected header %+v", hdr)
	}

	ifa := am.Ifa
	if ifa.Family != unix.AF_INET6 || ifa.PrefixLen != 64 || ifa.Flags != 0x80 ||
		ifa.Scope != 0xFD || ifa.Index != 30 {
		t.Errorf("unexpected ifaddrmsg %+v", ifa)
	}

	if want := netip.MustParseAddr("fe80::2c41:5cff:fe09:6665"); am.Address != want {
		t.Errorf("address: got %v, want %v", am.Address, want)
	}
	ci := am.CacheInfo
	if ci == nil {
		t.Fatal("missing ifa_cacheinfo")
	}
	if ci.Preferred != 3600 || ci.Valid != 7200 || ci.Cstamp != 28714 || ci.Tstamp != 28741 {
		t.Errorf("unexpected cacheinfo %+v", ci)
	}
	if am.Flags != 0x80 {
		t.Errorf("flags: got %#x, want 0x80", am.Flags)
	}
}

func TestPackAddressMessage(t *testing.T) {
	// IFA_FLAGS carries 0x81 while the narrow ifaddrmsg field says 0x80;
	// the wide word must survive a parse/pack round trip.
	const packHex = "48000000140000000000000000000000" +
		"0A4080FD1E000000" +
		"14000100FE800000000000002C415CFFFE096665" +
		"14000600FFFFFFFFFFFFFFFF2A7000002A700000" +
		"0800080081000000"

	buf := leBuffer(t, packHex)
	msg, err := ParseOne(buf, unix.NETLINK_ROUTE)
	if err != nil {
		t.Fatalf("parsing RTM_NEWADDR: %v", err)
	}
	am := msg.(*AddressMessage)
	if am.Flags != 0x81 {
		t.Fatalf("IFA_FLAGS must win over ifaddrmsg flags: got %#x, want 0x81", am.Flags)
	}

	out := NewBufferOrder(make([]byte, 72), binary.LittleEndian)
	am.Pack(out)
	if got := strings.ToUpper(hex.EncodeToString(out.Bytes())); got != packHex {
		t.Errorf("repacked message differs:\ngot  %s\nwant %s", got, packHex)
	}
}

func TestParseAddressMessage_TruncatedAddress(t *testing.T) {
	buf := leBuffer(t, "44000000140000000000000000000000"+
		"0A4080FD1E000000"+
		"10000100FE800000000000002C415CFF"+ // IFA_ADDRESS cut to 12 bytes
		"14000600FFFFFFFFFFFFFFFF2A7000002A700000"+
		"0800080080000000")
	_, err := ParseOne(buf, unix.NETLINK_ROUTE)
	if !errors.Is(err, ErrMalformedAttribute) {
		t.Errorf("got %v, want ErrMalformedAttribute", err)
	}
}

// A declared length leaving less than an ifaddrmsg must fail without
// touching the bytes of the message that follows.
func TestParseAddressMessage_ShortPayloadIgnoresSibling(t *testing.T) {
	buf := NewBuffer(make([]byte, 20+SizeofHeader))
	runt := Header{Len: 20, Type: unix.RTM_NEWADDR}
	runt.Pack(buf)
	buf.Put([]byte{unix.AF_INET6, 64, 0, 0}) // 4 payload bytes, ifaddrmsg needs 8
	done := Header{Len: SizeofHeader, Type: unix.NLMSG_DONE}
	done.Pack(buf)

	buf.SetPos(0)
	msg, err := ParseOne(buf, unix.NETLINK_ROUTE)
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("got %v, want ErrTruncated", err)
	}
	if msg != nil {
		t.Fatalf("short message yielded %+v", msg)
	}
	if msg, err = ParseOne(buf, unix.NETLINK_ROUTE); err != nil {
		t.Fatalf("ParseOne on sibling: %v", err)
	}
	if _, ok := msg.(*DoneMessage); !ok {
		t.Fatalf("sibling: got %T, want *DoneMessage", msg)
	}
}

func TestNewAddressRequest(t *testing.T) {
	if !hostIsLittleEndian() {
		t.Skip("request fixtures assume a little-endian host")
	}
	const want = "48000000" + "1400" + "0501" + "01000000" + "00000000" +
		"0A" + "40" + "00" + "FD" + "17000000" +
		"14000100FE800000000000002C415CFFFE096665" +
		"14000600FFFFFFFFFFFFFFFF0000000000000000" +
		"0800080080000000"

	got, err := NewAddressRequest(1, netip.MustParseAddr("fe80::2c41:5cff:fe09:6665"),
		64, unix.IFA_F_PERMANENT, 0xFD, 23, 0xFFFFFFFF, 0xFFFFFFFF)
	if err != nil {
		t.Fatalf("building RTM_NEWADDR: %v", err)
	}
	if gotHex := strings.ToUpper(hex.EncodeToString(got)); gotHex != want {
		t.Errorf("request differs:\ngot  %s\nwant %s", gotHex, want)
	}
}

func TestDelAddressRequest(t *testing.T) {
	if !hostIsLittleEndian() {
		t.Skip("request fixtures assume a little-endian host")
	}
	const want = "2C000000" + "1500" + "0500" + "01000000" + "00000000" +
		"0A" + "40" + "00" + "00" + "3B000000" +
		"1400010020010DB8000100000000000000000100"

	got, err := DelAddressRequest(1, netip.MustParseAddr("2001:db8:1::100"), 64, 59)
	if err != nil {
		t.Fatalf("building RTM_DELADDR: %v", err)
	}
	if gotHex := strings.ToUpper(hex.EncodeToString(got)); gotHex != want {
		t.Errorf("request differs:\ngot  %s\nwant %s", gotHex, want)
	}
}

func TestAddressRequest_NoAddress(t *testing.T) {
	if _, err := NewAddressRequest(1, netip.Addr{}, 0, 0, 0, 1, 0, 0); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("NewAddressRequest: got %v, want ErrInvalidArgument", err)
	}
	if _, err := DelAddressRequest(1, netip.Addr{}, 0, 1); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("DelAddressRequest: got %v, want ErrInvalidArgument", err)
	}
}
