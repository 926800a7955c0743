//go:build linux

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/netip"
	"strconv"
	"strings"

	"github.com/prometheus/procfs"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/netscope/nlwire/nlmsg"
	"github.com/netscope/nlwire/nlsock"
)

func init() {
	socketsCmd.Flags().StringVar(&socketFamilyFlag, "family", "", "Address family: inet or inet6.")
	socketsCmd.Flags().StringVar(&protoFlag, "proto", "", "Transport protocol: tcp or udp.")
	socketsCmd.Flags().Uint32Var(&statesFlag, "states", 0, "Bitmask of TCP states to match; 0 means all.")
	socketsCmd.Flags().BoolVar(&procsFlag, "procs", false, "Resolve socket inodes to owning processes through procfs.")

	rootCmd.AddCommand(socketsCmd)
}

var (
	socketsCmd = &cobra.Command{
		Use:   "sockets",
		Short: "Dump the kernel's socket tables through sock_diag.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return dumpSockets()
		},
	}

	socketFamilyFlag string
	protoFlag        string
	statesFlag       uint32
	procsFlag        bool
)

// diagExtensions asks the kernel for the per-socket extras the codec can
// decode. The extension bits are 1<<(INET_DIAG_*-1).
const diagExtensions = uint8(1<<(nlmsg.INET_DIAG_MEMINFO-1) |
	1<<(nlmsg.INET_DIAG_TOS-1) |
	1<<(nlmsg.INET_DIAG_TCLASS-1) |
	1<<(nlmsg.INET_DIAG_SKMEMINFO-1))

func dumpSockets() error {
	family, err := parseFamily(flagOrConf(socketFamilyFlag))
	if err != nil {
		return err
	}
	if family != unix.AF_INET && family != unix.AF_INET6 {
		return fmt.Errorf("sock_diag needs a concrete family, inet or inet6")
	}

	proto, err := parseProto(protoFlag, conf.Sockets)
	if err != nil {
		return err
	}

	states := statesFlag
	if states == 0 {
		states = conf.Sockets.States
	}

	var procs map[uint32]string
	if procsFlag || conf.Sockets.Procs {
		procs = socketInodes()
	}

	req, err := nlmsg.NewSockDiagRequest(proto, netip.AddrPort{}, netip.AddrPort{}, family,
		unix.NLM_F_REQUEST|unix.NLM_F_DUMP, 0, diagExtensions, states)
	if err != nil {
		return err
	}

	sock, err := nlsock.Open(unix.NETLINK_INET_DIAG, conf.Socket)
	if err != nil {
		return err
	}
	defer sock.Close()

	return nlmsg.Dump(context.Background(), sock, req, unix.NETLINK_INET_DIAG, func(msg nlmsg.Message) error {
		dm, ok := msg.(*nlmsg.InetDiagMessage)
		if !ok {
			slog.Debug("skipping non-diag message in dump", "hdr", msg.Header())
			return nil
		}
		if comm, ok := procs[dm.Inode]; ok {
			fmt.Printf("%s <%s>\n", dm, comm)
			return nil
		}
		fmt.Println(dm)
		return nil
	})
}

func parseProto(name string, fallback *SocketsConfig) (uint8, error) {
	if name == "" && fallback != nil {
		name = fallback.Protocol
	}
	switch name {
	case "tcp":
		return unix.IPPROTO_TCP, nil
	case "udp":
		return unix.IPPROTO_UDP, nil
	}
	return 0, fmt.Errorf("unknown transport protocol %q", name)
}

// socketInodes walks /proc building a socket inode to process name map. A
// process we cannot inspect (e.g. one owned by another user) is simply
// skipped.
func socketInodes() map[uint32]string {
	fs, err := procfs.NewFS("/proc")
	if err != nil {
		slog.Warn("couldn't initialise the procfs filesystem", "err", err)
		return nil
	}
	procs, err := fs.AllProcs()
	if err != nil {
		slog.Warn("couldn't list processes", "err", err)
		return nil
	}

	inodes := map[uint32]string{}
	for _, p := range procs {
		targets, err := p.FileDescriptorTargets()
		if err != nil {
			continue
		}
		comm, err := p.Comm()
		if err != nil {
			continue
		}
		for _, t := range targets {
			// Socket fds read as "socket:[12345]".
			if !strings.HasPrefix(t, "socket:[") {
				continue
			}
			inode, err := strconv.ParseUint(strings.TrimSuffix(strings.TrimPrefix(t, "socket:["), "]"), 10, 32)
			if err != nil {
				continue
			}
			inodes[uint32(inode)] = comm
		}
	}

	slog.Debug("resolved socket inodes", "n", len(inodes))
	return inodes
}
