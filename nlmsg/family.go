package nlmsg

import (
	"fmt"
	"net/netip"

	"golang.org/x/sys/unix"
)

// attrAddr decodes an address-valued attribute and verifies it against the
// family the enclosing message declares. A contradiction is a hard
// ErrFamilyMismatch: an IPv4-mapped IPv6 address inside an AF_INET6 message
// is treated as corrupt rather than silently unmapped, because the kernel
// never emits one and auto-correcting would hide the real bug upstream.
func attrAddr(a Attr, family uint8) (netip.Addr, error) {
	addr := a.Addr()
	if !addr.IsValid() {
		return netip.Addr{}, fmt.Errorf("%w: %d-byte address", ErrMalformedAttribute, len(a.Value))
	}
	if err := checkFamily(addr, family); err != nil {
		return netip.Addr{}, err
	}
	return addr, nil
}

func checkFamily(addr netip.Addr, family uint8) error {
	switch family {
	case unix.AF_INET:
		if !addr.Is4() {
			return fmt.Errorf("%w: %s in AF_INET message", ErrFamilyMismatch, addr)
		}
	case unix.AF_INET6, RTNL_FAMILY_IP6MR:
		if !addr.Is6() || addr.Is4In6() {
			return fmt.Errorf("%w: %s in AF_INET6 message", ErrFamilyMismatch, addr)
		}
	default:
		return fmt.Errorf("%w: family %d", ErrFamilyMismatch, family)
	}
	return nil
}
