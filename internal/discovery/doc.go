// Package discovery provides mDNS-based discovery of TN3270 hosts.
//
// Hosts advertise themselves under the "_tn3270._tcp" service type;
// the scanner browses for those advertisements and returns the dialable
// endpoints. The demo host registers itself with Announce when started
// with announcements enabled.
//
// # Usage Example
//
//	hosts, err := discovery.Scan(5 * time.Second)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, h := range hosts {
//	    fmt.Printf("Found %s at %s\n", h.Instance, h.Target())
//	}
//
// # Network Requirements
//
//   - Requires multicast support on the network interface
//   - Hosts must be on the same local network segment
//   - Firewall must allow mDNS (UDP port 5353)
//
// # Thread Safety
//
// This package is safe for concurrent use. Multiple discovery sessions
// can run simultaneously without interference.
package discovery
