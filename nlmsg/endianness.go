package nlmsg

import (
	"encoding/binary"

	ne "github.com/josharian/native"
)

var (
	// native is the byte order of the running machine. The kernel encodes
	// nlmsghdr and most family payload headers in this order.
	native = ne.Endian

	// wireOrder applies to the address and port fields nested inside
	// socket identities and to the RFC 4861 options, independently of the
	// host's order.
	wireOrder = binary.BigEndian
)

func hostIsLittleEndian() bool { return !ne.IsBigEndian }

// Htons converts a port number to network byte order.
func Htons(in uint16) uint16 {
	if !ne.IsBigEndian {
		return in<<8 | in>>8
	}
	return in
}
