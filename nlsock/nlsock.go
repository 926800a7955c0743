//go:build linux

// Package nlsock opens raw AF_NETLINK sockets and moves whole datagrams over
// them, implementing nlmsg.Transport. See netlink(7) for the socket
// semantics; the message encoding lives in the nlmsg package.
package nlsock

import (
	"fmt"
	"log/slog"

	"golang.org/x/sys/unix"
)

// Socket is one connected AF_NETLINK socket. Send and Receive may be called
// from different goroutines, but neither is safe for concurrent use with
// itself.
type Socket struct {
	fd      int
	proto   int
	recvBuf []byte
}

// Open creates a SOCK_RAW netlink socket for the given protocol
// (unix.NETLINK_ROUTE, unix.NETLINK_INET_DIAG, ...) and binds it with an
// autoassigned port id.
func Open(proto int, config *Config) (*Socket, error) {
	if config == nil {
		config = &DefaultConfig
	}

	fd, err := unix.Socket(unix.AF_NETLINK, unix.SOCK_RAW|unix.SOCK_CLOEXEC, proto)
	if err != nil {
		return nil, fmt.Errorf("could not open netlink socket: %w", err)
	}

	// A dump can burst faster than we drain it; grow the kernel-side
	// queue so messages aren't dropped with ENOBUFS.
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_RCVBUF, config.RecvBufferSize); err != nil {
		slog.Warn("could not set SO_RCVBUF", "size", config.RecvBufferSize, "err", err)
	}

	// Pid 0 lets the kernel pick a unique port id, which is what we want:
	// binding the process pid breaks as soon as two sockets coexist.
	if err := unix.Bind(fd, &unix.SockaddrNetlink{Family: unix.AF_NETLINK}); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("could not bind netlink socket: %w", err)
	}

	return &Socket{
		fd:      fd,
		proto:   proto,
		recvBuf: make([]byte, config.ReadBufferSize),
	}, nil
}

// Protocol returns the netlink protocol the socket was opened for.
func (s *Socket) Protocol() int { return s.proto }

// Send transmits one request datagram to the kernel.
func (s *Socket) Send(b []byte) error {
	if err := unix.Sendto(s.fd, b, 0, &unix.SockaddrNetlink{Family: unix.AF_NETLINK}); err != nil {
		return fmt.Errorf("could not send netlink request: %w", err)
	}
	return nil
}

// Receive reads one datagram from the kernel. The returned slice aliases the
// socket's read buffer and is only valid until the next Receive.
func (s *Socket) Receive() ([]byte, error) {
	for {
		n, from, err := unix.Recvfrom(s.fd, s.recvBuf, 0)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("could not receive netlink response: %w", err)
		}

		// Only the kernel (pid 0) talks to us on this socket; anything
		// else is another userspace process spoofing messages.
		if nl, ok := from.(*unix.SockaddrNetlink); !ok || nl.Pid != 0 {
			slog.Warn("dropping netlink datagram not sent by the kernel", "from", from)
			continue
		}

		return s.recvBuf[:n], nil
	}
}

func (s *Socket) Close() error {
	return unix.Close(s.fd)
}
