// Package nlmsg implements the netlink wire format: fixed-size message
// headers and family payload headers, the 4-byte-aligned type/length/value
// attribute encoding, and the parsers and request builders for the rtnetlink
// route and address messages, inet_diag socket queries, neighbour-discovery
// prefix information options, IPv6 multicast route control structs and XFRM
// security association messages built on top of them. Be sure to check
// netlink(7), rtnetlink(7) and sock_diag(7) for background on the protocol
// itself.
//
// Netlink is not a wire-neutral protocol: the kernel encodes the message
// header and most payload headers in the byte order of the running machine,
// while addresses and port numbers nested inside socket identities always
// travel big-endian. Byte order is therefore a property of the field, not of
// the message, and the codec keeps it that way: Buffer carries the default
// (native) order and exposes explicit wire-order accessors for the fields
// that need them.
//
// Everything in this package is synchronous and allocation-local. A parse
// call reads only from its input buffer and a pack call writes only to its
// destination, so concurrent use is safe as long as buffers aren't shared
// with a concurrent writer.
//
// The main entry points on the receive path are ParseOne and ParseAll, which
// dispatch on the message type carried in the header; see their
// documentation for the malformed-input policy. On the send path each
// message family provides request builders returning a single contiguous
// buffer ready for transmission.
package nlmsg
