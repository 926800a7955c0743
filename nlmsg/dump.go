package nlmsg

import (
	"context"
	"fmt"
	"log/slog"
)

// Transport moves raw netlink datagrams. nlsock.Socket is the production
// implementation; tests substitute an in-memory one.
type Transport interface {
	Send(b []byte) error
	Receive() ([]byte, error)
}

// Dump sends a NLM_F_DUMP request and feeds every parsed response message to
// fn until the kernel signals NLMSG_DONE. A kernel-reported failure
// surfaces as *NetlinkError; an error returned by fn stops the dump and is
// returned as-is. Malformed messages inside a datagram are skipped, the
// dump keeps going.
func Dump(ctx context.Context, t Transport, req []byte, proto int, fn func(Message) error) error {
	if err := t.Send(req); err != nil {
		return fmt.Errorf("sending dump request: %w", err)
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		b, err := t.Receive()
		if err != nil {
			return fmt.Errorf("receiving dump response: %w", err)
		}

		buf := NewBuffer(b)
		complete := false
		for buf.Remaining() > 0 {
			msg, err := ParseOne(buf, proto)
			if err != nil {
				slog.Debug("skipping malformed message in dump", "err", err)
				continue
			}
			switch m := msg.(type) {
			case *DoneMessage:
				return nil
			case *ErrorMessage:
				if m.Ack() {
					return nil
				}
				return &NetlinkError{Errno: m.Errno}
			default:
				if err := fn(msg); err != nil {
					return err
				}
				// A response without NLM_F_MULTI is the whole
				// answer; no NLMSG_DONE follows it.
				if !msg.Header().Multi() {
					complete = true
				}
			}
		}
		if complete {
			return nil
		}
	}
}

// Ack sends a request carrying NLM_F_ACK and waits for the kernel's verdict:
// nil on an ack, *NetlinkError on a reported errno.
func Ack(ctx context.Context, t Transport, req []byte, proto int) error {
	if err := t.Send(req); err != nil {
		return fmt.Errorf("sending request: %w", err)
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		b, err := t.Receive()
		if err != nil {
			return fmt.Errorf("receiving ack: %w", err)
		}

		buf := NewBuffer(b)
		for buf.Remaining() > 0 {
			msg, err := ParseOne(buf, proto)
			if err != nil {
				return err
			}
			if m, ok := msg.(*ErrorMessage); ok {
				if m.Ack() {
					return nil
				}
				return &NetlinkError{Errno: m.Errno}
			}
		}
	}
}
