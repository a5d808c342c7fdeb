package balancer

import "net"

// localAddresses returns the IP addresses assigned to this machine's
// interfaces. Enumeration failures yield an empty set; the loopback check in
// the selector does not depend on it.
func localAddresses() map[string]bool {
	set := make(map[string]bool)

	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return set
	}

	for _, a := range addrs {
		var ip net.IP
		switch v := a.(type) {
		case *net.IPNet:
			ip = v.IP
		case *net.IPAddr:
			ip = v.IP
		}
		if ip != nil {
			set[ip.String()] = true
		}
	}

	return set
}
