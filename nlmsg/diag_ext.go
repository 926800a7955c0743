package nlmsg

import "fmt"

// MemInfo implements the struct associated with INET_DIAG_MEMINFO,
// corresponding with linux struct inet_diag_meminfo [0].
// 0: https://elixir.bootlin.com/linux/v5.14/source/include/uapi/linux/inet_diag.h
type MemInfo struct {
	RMem uint32
	WMem uint32
	FMem uint32
	TMem uint32
}

func (i *MemInfo) String() string {
	return fmt.Sprintf("%#v", *i)
}

// SkMemInfo encodes the socket memory information set forth in sock_diag(7).
type SkMemInfo struct {
	// The amount of data in receive queue.
	RMemAlloc uint32

	// The receive socket buffer as set by SO_RCVBUF.
	RcvBuff uint32

	// The amount of data in send queue.
	WMemAlloc uint32

	// The send socket buffer as set by SO_SNDBUF.
	SndBuff uint32

	// The amount of memory scheduled for future use (TCP only).
	FwdAlloc uint32

	// The amount of data queued by TCP, but not yet sent.
	WMemQueued uint32

	// The amount of memory allocated for the socket's service needs (e.g., socket filter).
	OptMem uint32

	// The amount of packets in the backlog (not yet processed).
	Backlog uint32

	// Check https://manpages.debian.org/stretch/manpages/sock_diag.7.en.html
	Drops uint32
}

func (i *SkMemInfo) String() string {
	return fmt.Sprintf("%#v", *i)
}

// InetDiagExt collects the INET_DIAG_* extension attributes a response can
// carry. Every field is nil unless the kernel sent the matching attribute.
type InetDiagExt struct {
	MemInfo   *MemInfo
	SkMemInfo *SkMemInfo
	TOS       *uint8
	TClass    *uint8
	Mark      *uint32
}

// parseInetDiagExt walks the attributes following a struct inet_diag_msg.
// Unknown attribute types are skipped so that kernels shipping new
// extensions never break the dump.
func parseInetDiagExt(ext *InetDiagExt, buf *Buffer, end int) error {
	sc := Attrs(buf, end)
	for sc.Scan() {
		a := sc.Attr()
		switch a.Type {
		case INET_DIAG_MEMINFO:
			if len(a.Value) < 16 {
				return fmt.Errorf("%w: INET_DIAG_MEMINFO", ErrMalformedAttribute)
			}
			b := NewBufferOrder(a.Value, a.order)
			ext.MemInfo = &MemInfo{
				RMem: b.Uint32(),
				WMem: b.Uint32(),
				FMem: b.Uint32(),
				TMem: b.Uint32(),
			}
		case INET_DIAG_SKMEMINFO:
			if len(a.Value) < 36 {
				return fmt.Errorf("%w: INET_DIAG_SKMEMINFO", ErrMalformedAttribute)
			}
			b := NewBufferOrder(a.Value, a.order)
			ext.SkMemInfo = &SkMemInfo{
				RMemAlloc:  b.Uint32(),
				RcvBuff:    b.Uint32(),
				WMemAlloc:  b.Uint32(),
				SndBuff:    b.Uint32(),
				FwdAlloc:   b.Uint32(),
				WMemQueued: b.Uint32(),
				OptMem:     b.Uint32(),
				Backlog:    b.Uint32(),
				Drops:      b.Uint32(),
			}
		case INET_DIAG_TOS:
			if len(a.Value) < 1 {
				return fmt.Errorf("%w: INET_DIAG_TOS", ErrMalformedAttribute)
			}
			v := a.Value[0]
			ext.TOS = &v
		case INET_DIAG_TCLASS:
			if len(a.Value) < 1 {
				return fmt.Errorf("%w: INET_DIAG_TCLASS", ErrMalformedAttribute)
			}
			v := a.Value[0]
			ext.TClass = &v
		case INET_DIAG_MARK:
			v, ok := a.Uint32()
			if !ok {
				return fmt.Errorf("%w: INET_DIAG_MARK", ErrMalformedAttribute)
			}
			ext.Mark = &v
		}
	}
	return sc.Err()
}
