package nlmsg

// Constants from uapi headers that golang.org/x/sys/unix doesn't carry. The
// names make the linter complain, but we inherited them from external C code,
// so we will keep them.
const (
	// linux/sock_diag.h
	SOCK_DIAG_BY_FAMILY uint16 = 20
	SOCK_DESTROY        uint16 = 21

	// linux/xfrm.h
	XFRM_MSG_NEWSA uint16 = 16

	XFRMA_REPLAY_ESN_VAL uint16 = 23

	XFRM_MODE_TRANSPORT uint8 = 0
	XFRM_MODE_TUNNEL    uint8 = 1

	// XFRM_INF marks an unlimited lifetime in xfrm_lifetime_cfg.
	XFRM_INF uint64 = ^uint64(0)

	// linux/rtnetlink.h; the kernel routes IPv6 multicast route
	// notifications under this pseudo address family.
	RTNL_FAMILY_IP6MR uint8 = 129

	// The multicast route is unresolved, linux/rtnetlink.h.
	RTNH_F_UNRESOLVED uint32 = 32

	// linux/inet_diag.h
	INET_DIAG_NOCOOKIE uint64 = ^uint64(0)

	INET_DIAG_NONE      uint16 = 0
	INET_DIAG_MEMINFO   uint16 = 1
	INET_DIAG_INFO      uint16 = 2
	INET_DIAG_VEGASINFO uint16 = 3
	INET_DIAG_CONG      uint16 = 4
	INET_DIAG_TOS       uint16 = 5
	INET_DIAG_TCLASS    uint16 = 6
	INET_DIAG_SKMEMINFO uint16 = 7
	INET_DIAG_SHUTDOWN  uint16 = 8
	INET_DIAG_MARK      uint16 = 15

	// TCP_ALL_STATES includes the flag bits for every TCP connection
	// state; it corresponds to TCPF_ALL in some linux code.
	TCP_ALL_STATES uint32 = 0xFFFFFFFF

	// linux/mroute6.h: a mif index addresses one bit of the 256-bit
	// output interface set in struct mf6cctl.
	MAXMIFS = 256

	// rtnetlink multicast groups as numbered by linux/rtnetlink.h
	// (RTNLGRP_*), used with 1<<(n-1) bitmask subscription.
	RTNLGRP_LINK        = 1
	RTNLGRP_IPV4_IFADDR = 5
	RTNLGRP_IPV4_ROUTE  = 7
	RTNLGRP_IPV6_IFADDR = 9
	RTNLGRP_IPV6_ROUTE  = 11
)
