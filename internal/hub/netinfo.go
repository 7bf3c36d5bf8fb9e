package hub

import (
	"net"
	"strings"
)

// networkInterfaces summarizes the local interfaces that are up, for debug
// output when the hub cannot be reached. Loopback is skipped.
func networkInterfaces() string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return "unavailable: " + err.Error()
	}
	var parts []string
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil || len(addrs) == 0 {
			continue
		}
		names := make([]string, 0, len(addrs))
		for _, a := range addrs {
			names = append(names, a.String())
		}
		parts = append(parts, iface.Name+"="+strings.Join(names, ","))
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, " ")
}
