package nlmsg

import (
	"fmt"
	"net/netip"

	"golang.org/x/sys/unix"
)

// SizeofSockaddrIn6 is the length of struct sockaddr_in6.
const SizeofSockaddrIn6 = 28

// SizeofMf6cctl is the length of struct mf6cctl, the setsockopt payload for
// MRT6_ADD_MFC and MRT6_DEL_MFC on an IPv6 multicast routing socket.
const SizeofMf6cctl = 2*SizeofSockaddrIn6 + 2 + 2 + mifSetBytes

const mifSetBytes = MAXMIFS / 8

// Mf6cctl mirrors struct mf6cctl. The interface set is a bitmap over
// multicast interface indices, which the kernel caps at MAXMIFS.
type Mf6cctl struct {
	Origin netip.Addr
	Group  netip.Addr
	Parent uint16
	IfSet  [MAXMIFS / 32]uint32
}

// NewMf6cctl builds the control structure for one (S,G) forwarding cache
// entry. Every outgoing interface index must be below MAXMIFS; the bitmap
// has no room for anything larger.
func NewMf6cctl(origin, group netip.Addr, parent uint16, oifs []uint16) (*Mf6cctl, error) {
	if !origin.Is6() || origin.Is4In6() || !group.Is6() || group.Is4In6() {
		return nil, fmt.Errorf("%w: mf6cctl addresses must be IPv6", ErrFamilyMismatch)
	}
	m := &Mf6cctl{Origin: origin, Group: group, Parent: parent}
	for _, oif := range oifs {
		if int(oif) >= MAXMIFS {
			return nil, fmt.Errorf("%w: mif index %d out of range", ErrInvalidArgument, oif)
		}
		m.IfSet[oif/32] |= 1 << (oif % 32)
	}
	return m, nil
}

// Pack appends the structure in kernel layout.
func (m *Mf6cctl) Pack(buf *Buffer) {
	packSockaddrIn6(buf, m.Origin)
	packSockaddrIn6(buf, m.Group)
	buf.PutUint16(m.Parent)
	buf.PutZero(2)
	for _, w := range m.IfSet {
		buf.PutUint32(w)
	}
}

// Bytes returns the packed structure in host order, ready for setsockopt.
func (m *Mf6cctl) Bytes() []byte {
	buf := NewBuffer(make([]byte, SizeofMf6cctl))
	m.Pack(buf)
	return buf.Bytes()
}

func packSockaddrIn6(buf *Buffer, addr netip.Addr) {
	buf.PutUint16(unix.AF_INET6)
	buf.PutWireUint16(0) // sin6_port
	buf.PutUint32(0)     // sin6_flowinfo
	a := addr.As16()
	buf.Put(a[:])
	buf.PutUint32(0) // sin6_scope_id
}
