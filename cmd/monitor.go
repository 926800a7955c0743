//go:build linux

package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/mdlayher/netlink"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/netscope/nlwire/nlmsg"
)

func init() {
	monitorCmd.Flags().StringSliceVar(&groupsFlag, "groups", nil, "Notification groups to join: route, addr, link.")

	rootCmd.AddCommand(monitorCmd)
}

var (
	monitorCmd = &cobra.Command{
		Use:   "monitor",
		Short: "Print rtnetlink notifications as the kernel emits them.",
		RunE: func(cmd *cobra.Command, args []string) error {
			groups := groupsFlag
			if len(groups) == 0 {
				groups = conf.Monitor.Groups
			}
			mask, err := groupMask(groups)
			if err != nil {
				return err
			}
			return monitor(mask)
		},
	}

	groupsFlag []string
)

// groupMask translates group names into the RTNLGRP_* subscription bitmask
// handed to bind(2); group n maps to bit 1<<(n-1).
func groupMask(names []string) (uint32, error) {
	var mask uint32
	for _, name := range names {
		switch name {
		case "route":
			mask |= 1<<(nlmsg.RTNLGRP_IPV4_ROUTE-1) | 1<<(nlmsg.RTNLGRP_IPV6_ROUTE-1)
		case "addr":
			mask |= 1<<(nlmsg.RTNLGRP_IPV4_IFADDR-1) | 1<<(nlmsg.RTNLGRP_IPV6_IFADDR-1)
		case "link":
			mask |= 1 << (nlmsg.RTNLGRP_LINK - 1)
		default:
			return 0, fmt.Errorf("unknown notification group %q", name)
		}
	}
	return mask, nil
}

func monitor(mask uint32) error {
	c, err := netlink.Dial(unix.NETLINK_ROUTE, &netlink.Config{Groups: mask})
	if err != nil {
		return fmt.Errorf("could not join rtnetlink groups: %w", err)
	}
	defer c.Close()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		<-sigChan
		slog.Debug("cleanly stopping the monitor")
		c.Close()
	}()

	for {
		raws, err := c.Receive()
		if err != nil {
			// Closing the socket from the signal handler makes the
			// pending Receive fail; that's our exit path.
			slog.Debug("receive interrupted", "err", err)
			return nil
		}
		for _, raw := range raws {
			msg, err := nlmsg.ParseOne(nlmsg.NewBuffer(rawBytes(raw)), unix.NETLINK_ROUTE)
			if err != nil {
				slog.Debug("skipping malformed notification", "err", err)
				continue
			}
			fmt.Println(msg)
		}
	}
}

// rawBytes reassembles the full datagram bytes of a message the mdlayher
// library already split into header and payload.
func rawBytes(m netlink.Message) []byte {
	buf := nlmsg.NewBuffer(make([]byte, nlmsg.SizeofHeader+len(m.Data)))
	hdr := nlmsg.Header{
		Len:   uint32(nlmsg.SizeofHeader + len(m.Data)),
		Type:  uint16(m.Header.Type),
		Flags: uint16(m.Header.Flags),
		Seq:   m.Header.Sequence,
		PID:   m.Header.PID,
	}
	hdr.Pack(buf)
	buf.Put(m.Data)
	return buf.Bytes()
}
