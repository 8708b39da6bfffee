package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Host represents a discovered TN3270 service on the network.
type Host struct {
	// Instance is the advertised service instance name
	// (e.g., "Development LPAR").
	Instance string

	// Hostname is the mDNS hostname (e.g., "mvs-dev.local.").
	Hostname string

	// IP is the address to dial, IPv4 preferred.
	IP string

	// Port is the telnet port (typically 23, or 992 for TLS).
	Port int

	// Metadata contains additional mDNS TXT record data.
	// Common fields: "protocol=tn3270", "tls=1".
	Metadata map[string]string

	// DiscoveredAt is when the service was discovered.
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the host.
func (h *Host) String() string {
	return fmt.Sprintf("TN3270 host %q at %s:%d", h.Instance, h.IP, h.Port)
}

// Target returns the dialable "address:port" string.
func (h *Host) Target() string {
	return net.JoinHostPort(h.IP, strconv.Itoa(h.Port))
}

// TLS reports whether the service advertises a TLS endpoint.
func (h *Host) TLS() bool {
	return h.GetMetadata("tls") == "1"
}

// GetMetadata retrieves a TXT record value by key, or returns empty
// string if not found.
func (h *Host) GetMetadata(key string) string {
	if h.Metadata == nil {
		return ""
	}
	return h.Metadata[key]
}
