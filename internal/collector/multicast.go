package collector

import (
	"fmt"
	"net"
	"strings"

	"golang.org/x/net/ipv4"
)

// JoinGroup subscribes conn to an IPv4 multicast group so probes can send
// to one well-known address. An empty ifname lets the kernel pick.
func JoinGroup(conn net.PacketConn, group, ifname string) error {
	ip := net.ParseIP(strings.TrimSpace(group)).To4()
	if ip == nil || !ip.IsMulticast() {
		return fmt.Errorf("collector: %q is not an IPv4 multicast group", group)
	}
	var ifi *net.Interface
	if ifname = strings.TrimSpace(ifname); ifname != "" {
		var err error
		if ifi, err = net.InterfaceByName(ifname); err != nil {
			return fmt.Errorf("collector: multicast interface: %w", err)
		}
	}
	p := ipv4.NewPacketConn(conn)
	if err := p.JoinGroup(ifi, &net.UDPAddr{IP: ip}); err != nil {
		return fmt.Errorf("collector: join %s: %w", ip, err)
	}
	return nil
}
