package nlmsg

import (
	"errors"
	"fmt"
)

// Parse failures are local to a single message: the dispatcher always
// advances past the offending message so siblings in the same datagram keep
// parsing. Callers distinguish the failure modes with errors.Is.
var (
	// ErrTruncated means a declared length exceeds the bytes actually
	// available, at either the struct or the attribute level.
	ErrTruncated = errors.New("truncated message")

	// ErrMalformedAttribute means an attribute declared a length smaller
	// than its own 4-byte prefix.
	ErrMalformedAttribute = errors.New("malformed attribute")

	// ErrFamilyMismatch means a decoded address contradicts the address
	// family declared by the message. Mismatches are hard rejections, not
	// coercions; see the package documentation.
	ErrFamilyMismatch = errors.New("address family mismatch")

	// ErrBadHeader means the message header itself declared an impossible
	// length or an unexpected fixed type code.
	ErrBadHeader = errors.New("malformed header")

	// ErrInvalidArgument is raised by request builders before any bytes
	// are written when caller-supplied parameters are contradictory.
	ErrInvalidArgument = errors.New("invalid argument")
)

// NetlinkError carries the errno payload of an NLMSG_ERROR frame sent by the
// kernel. The embedded errno follows userspace conventions (positive).
type NetlinkError struct {
	Errno int
}

func (e *NetlinkError) Error() string {
	return fmt.Sprintf("netlink error frame: errno %d", e.Errno)
}
