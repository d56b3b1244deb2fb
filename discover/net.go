package discover

import (
	"net"
	"strings"

	"github.com/moyoez/devconf/tool"
)

// generateNetworkIPs generates all IP addresses in the given network.
// Networks larger than a /24 are narrowed to the /24 holding the interface address.
func generateNetworkIPs(ipnet *net.IPNet) []string {
	var ips []string
	ip := ipnet.IP.To4()
	if ip == nil {
		return ips
	}
	ones, bits := ipnet.Mask.Size()
	if bits != 32 || ones >= 31 {
		return ips
	}
	network := ip.Mask(ipnet.Mask)
	hostBits := 32 - ones

	maxHosts := 254
	if hostBits < 8 {
		maxHosts = (1 << hostBits) - 2 // -2 for network and broadcast
	} else {
		network = ip.Mask(net.CIDRMask(24, 32))
	}
	base := uint32(network[0])<<24 | uint32(network[1])<<16 | uint32(network[2])<<8 | uint32(network[3])
	for i := 1; i <= maxHosts; i++ {
		n := base + uint32(i)
		ips = append(ips, net.IPv4(byte(n>>24), byte(n>>16), byte(n>>8), byte(n)).String())
	}
	return ips
}

// getCachedNetworkIPs returns cached network IPs or generates new ones if the interface
// addresses changed since the last call.
func getCachedNetworkIPs() ([]string, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	var nets []*net.IPNet
	var keyBuilder strings.Builder
	for i := range ifaces {
		iface := &ifaces[i]
		if tool.SkipScanInterface(iface) {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipnet, ok := addr.(*net.IPNet)
			if !ok || ipnet.IP.IsLoopback() || ipnet.IP.To4() == nil {
				continue
			}
			nets = append(nets, ipnet)
			keyBuilder.WriteString(ipnet.String())
			keyBuilder.WriteString(";")
		}
	}
	currentKey := keyBuilder.String()

	networkIPsCacheMu.RLock()
	if networkIPsCacheKey == currentKey && len(networkIPsCache) > 0 {
		result := append([]string(nil), networkIPsCache...)
		networkIPsCacheMu.RUnlock()
		return result, nil
	}
	networkIPsCacheMu.RUnlock()

	var targets []string
	for _, ipnet := range nets {
		targets = append(targets, generateNetworkIPs(ipnet)...)
	}

	networkIPsCacheMu.Lock()
	networkIPsCache = targets
	networkIPsCacheKey = currentKey
	networkIPsCacheMu.Unlock()
	return append([]string(nil), targets...), nil
}
