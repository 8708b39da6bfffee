package discovery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
)

const (
	// ServiceType is the mDNS service type TN3270 hosts advertise under.
	ServiceType = "_tn3270._tcp"

	// ServiceDomain is the mDNS domain (typically "local.").
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for host discovery.
	DefaultScanTimeout = 5 * time.Second

	// DefaultPort is the standard telnet port.
	DefaultPort = 23
)

// Scanner handles mDNS host discovery.
type Scanner struct {
	// Timeout is the maximum time to wait for host discovery.
	Timeout time.Duration
}

// NewScanner creates a new mDNS scanner with default settings.
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
	}
}

// Scan discovers all TN3270 services on the local network.
func (s *Scanner) Scan() ([]*Host, error) {
	return s.ScanWithContext(context.Background())
}

// ScanWithContext discovers hosts with a custom context.
func (s *Scanner) ScanWithContext(ctx context.Context) ([]*Host, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	var hosts []*Host

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	// The resolver closes entries when the browse finishes, so the
	// collector's exit marks the list complete.
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		for entry := range entries {
			if host := s.parseServiceEntry(entry); host != nil {
				hosts = append(hosts, host)
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()
	<-collected

	return hosts, nil
}

// WaitForHost waits for a service advertised under the given instance
// name. Returns the host or an error if not found within the timeout.
func (s *Scanner) WaitForHost(instance string) (*Host, error) {
	return s.WaitForHostWithContext(context.Background(), instance)
}

// WaitForHostWithContext waits for a specific host with a custom context.
func (s *Scanner) WaitForHostWithContext(ctx context.Context, instance string) (*Host, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	hostChan := make(chan *Host, 1)

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	go func() {
		for entry := range entries {
			host := s.parseServiceEntry(entry)
			if host != nil && host.Instance == instance {
				hostChan <- host
				cancel()
				return
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	select {
	case host := <-hostChan:
		return host, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("host %q not found within timeout", instance)
	}
}

// parseServiceEntry converts a zeroconf service entry to a Host.
// Returns nil for entries that cannot be dialed.
func (s *Scanner) parseServiceEntry(entry *zeroconf.ServiceEntry) *Host {
	name := entry.Instance
	if name == "" {
		name = strings.TrimSuffix(entry.HostName, ".")
	}
	if name == "" {
		return nil
	}

	// Get IP address (prefer IPv4)
	var ip string
	for _, addr := range entry.AddrIPv4 {
		ip = addr.String()
		break
	}
	if ip == "" && len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	port := entry.Port
	if port == 0 {
		port = DefaultPort
	}

	// TXT records are in "key=value" format
	metadata := make(map[string]string)
	for _, txt := range entry.Text {
		parts := strings.SplitN(txt, "=", 2)
		if len(parts) == 2 {
			metadata[parts[0]] = parts[1]
		} else {
			metadata[parts[0]] = ""
		}
	}

	return &Host{
		Instance:     name,
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         port,
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}

// Scan is a convenience function to discover hosts with a custom timeout.
func Scan(timeout time.Duration) ([]*Host, error) {
	scanner := NewScanner()
	scanner.Timeout = timeout
	return scanner.Scan()
}

// Announcer keeps one mDNS service registration alive.
type Announcer struct {
	server *zeroconf.Server
}

// Announce registers a TN3270 service under the given instance name so
// clients on the local network can find it. Shut the announcer down
// when the listener stops.
func Announce(instance string, port int, tls bool) (*Announcer, error) {
	if instance == "" {
		return nil, fmt.Errorf("instance name is required")
	}
	text := []string{"protocol=tn3270"}
	if tls {
		text = append(text, "tls=1")
	}

	server, err := zeroconf.Register(instance, ServiceType, ServiceDomain, port, text, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service: %w", err)
	}
	return &Announcer{server: server}, nil
}

// Shutdown withdraws the registration.
func (a *Announcer) Shutdown() {
	a.server.Shutdown()
}
