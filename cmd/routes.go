//go:build linux

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/netscope/nlwire/nlmsg"
	"github.com/netscope/nlwire/nlsock"
)

func init() {
	routesCmd.Flags().StringVar(&familyFlag, "family", "", "Address family: inet, inet6 or ip6mr.")
	addressesCmd.Flags().StringVar(&familyFlag, "family", "", "Address family: inet, inet6 or unspec.")

	rootCmd.AddCommand(routesCmd)
	rootCmd.AddCommand(addressesCmd)
}

var (
	routesCmd = &cobra.Command{
		Use:   "routes",
		Short: "Dump the kernel's routing table.",
		RunE: func(cmd *cobra.Command, args []string) error {
			family, err := parseFamily(flagOrConf(familyFlag))
			if err != nil {
				return err
			}
			return rtnlDump(nlmsg.NewGetRouteRequest(family, 1))
		},
	}

	addressesCmd = &cobra.Command{
		Use:   "addresses",
		Short: "Dump the addresses configured on every interface.",
		RunE: func(cmd *cobra.Command, args []string) error {
			family, err := parseFamily(flagOrConf(familyFlag))
			if err != nil {
				return err
			}
			return rtnlDump(nlmsg.NewGetAddrRequest(family, 1))
		},
	}

	familyFlag string
)

// flagOrConf resolves the family to query: an explicit flag wins over the
// configuration file.
func flagOrConf(flag string) string {
	if flag != "" {
		return flag
	}
	return conf.Family
}

func parseFamily(name string) (uint8, error) {
	switch name {
	case "inet":
		return unix.AF_INET, nil
	case "inet6":
		return unix.AF_INET6, nil
	case "ip6mr":
		return nlmsg.RTNL_FAMILY_IP6MR, nil
	case "unspec":
		return unix.AF_UNSPEC, nil
	}
	return 0, fmt.Errorf("unknown address family %q", name)
}

// rtnlDump runs one NETLINK_ROUTE dump request and prints every reply.
func rtnlDump(req []byte) error {
	sock, err := nlsock.Open(unix.NETLINK_ROUTE, conf.Socket)
	if err != nil {
		return err
	}
	defer sock.Close()

	return nlmsg.Dump(context.Background(), sock, req, unix.NETLINK_ROUTE, func(msg nlmsg.Message) error {
		fmt.Println(msg)
		return nil
	})
}
