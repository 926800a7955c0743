package nlmsg

import (
	"errors"
	"net/netip"
	"testing"

	"golang.org/x/sys/unix"
)

func TestNewMf6cctl(t *testing.T) {
	origin := netip.MustParseAddr("2001:db8::1")
	group := netip.MustParseAddr("ff04::1234")

	m, err := NewMf6cctl(origin, group, 5, []uint16{1, 33, 255})
	if err != nil {
		t.Fatalf("building mf6cctl: %v", err)
	}

	b := m.Bytes()
	if len(b) != SizeofMf6cctl {
		t.Fatalf("packed size: got %d, want %d", len(b), SizeofMf6cctl)
	}

	// Origin and group sit in the two sockaddr_in6 slots at offset 8.
	if got := netip.AddrFrom16([16]byte(b[8:24])); got != origin {
		t.Errorf("origin: got %v, want %v", got, origin)
	}
	if got := netip.AddrFrom16([16]byte(b[36:52])); got != group {
		t.Errorf("group: got %v, want %v", got, group)
	}

	if m.IfSet[0] != 1<<1 {
		t.Errorf("if_set word 0: got %#x, want %#x", m.IfSet[0], uint32(1<<1))
	}
	if m.IfSet[1] != 1<<1 {
		t.Errorf("if_set word 1: got %#x, want %#x", m.IfSet[1], uint32(1<<1))
	}
	if m.IfSet[7] != 1<<31 {
		t.Errorf("if_set word 7: got %#x, want %#x", m.IfSet[7], uint32(1<<31))
	}
}

func TestNewMf6cctl_OifOutOfRange(t *testing.T) {
	_, err := NewMf6cctl(netip.MustParseAddr("2001:db8::1"),
		netip.MustParseAddr("ff04::1234"), 5, []uint16{MAXMIFS})
	if !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("oif %d: got %v, want ErrInvalidArgument", MAXMIFS, err)
	}
}

func TestNewMf6cctl_RejectsNonIPv6(t *testing.T) {
	v4 := netip.MustParseAddr("192.0.2.1")
	mapped := netip.MustParseAddr("::ffff:192.0.2.1")
	group := netip.MustParseAddr("ff04::1234")

	if _, err := NewMf6cctl(v4, group, 0, nil); !errors.Is(err, ErrFamilyMismatch) {
		t.Errorf("IPv4 origin: got %v, want ErrFamilyMismatch", err)
	}
	if _, err := NewMf6cctl(mapped, group, 0, nil); !errors.Is(err, ErrFamilyMismatch) {
		t.Errorf("mapped origin: got %v, want ErrFamilyMismatch", err)
	}
}

func TestMf6cctlSockaddrLayout(t *testing.T) {
	m, err := NewMf6cctl(netip.MustParseAddr("2001:db8::1"),
		netip.MustParseAddr("ff04::1234"), 0x1234, nil)
	if err != nil {
		t.Fatalf("building mf6cctl: %v", err)
	}
	b := m.Bytes()

	// sin6_family is written in host order like the kernel reads it.
	if got := native.Uint16(b[0:2]); got != unix.AF_INET6 {
		t.Errorf("origin family: got %d, want %d", got, unix.AF_INET6)
	}
	if got := native.Uint16(b[28:30]); got != unix.AF_INET6 {
		t.Errorf("group family: got %d, want %d", got, unix.AF_INET6)
	}
	if got := native.Uint16(b[56:58]); got != 0x1234 {
		t.Errorf("parent: got %#x, want 0x1234", got)
	}
}
