package hub

import (
	"errors"
	"net/netip"
	"strconv"
	"strings"
)

// DefaultPort is the hub's live-logging port.
const DefaultPort = 9495

// Address parse failures.
var (
	ErrAddressFormat = errors.New("invalid IPv4 address and port format")
	ErrIPv4Format    = errors.New("invalid IPv4 address format")
	ErrPortFormat    = errors.New("invalid port format")
)

// Authority identifies a hub endpoint on the local network.
type Authority struct {
	Host netip.Addr
	Port uint16
}

// ParseAuthority parses "ipv4[:port]". When the port is omitted, defaultPort
// is used.
func ParseAuthority(address string, defaultPort uint16) (Authority, error) {
	items := strings.Split(address, ":")
	if len(items) > 2 {
		return Authority{}, ErrAddressFormat
	}

	host, err := netip.ParseAddr(items[0])
	if err != nil || !host.Is4() {
		return Authority{}, ErrIPv4Format
	}

	if len(items) == 1 {
		return Authority{Host: host, Port: defaultPort}, nil
	}

	port, err := strconv.ParseUint(items[1], 10, 16)
	if err != nil {
		return Authority{}, ErrPortFormat
	}
	return Authority{Host: host, Port: uint16(port)}, nil
}

// String returns "ip:port".
func (a Authority) String() string {
	return netip.AddrPortFrom(a.Host, a.Port).String()
}

// IsZero reports whether a was never set.
func (a Authority) IsZero() bool {
	return !a.Host.IsValid()
}
