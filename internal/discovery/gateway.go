package discovery

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// Gateway represents an imagegen gateway found on the local network
type Gateway struct {
	// Instance is the advertised service instance name (e.g., "imagegen on studio")
	Instance string

	// Hostname is the mDNS hostname (e.g., "studio.local.")
	Hostname string

	// IP is the preferred address, IPv4 when one was advertised
	IP string

	// Port is the HTTP port the gateway listens on
	Port int

	// Metadata contains the mDNS TXT record data
	// Common fields: "version=1.2.0", "path=/"
	Metadata map[string]string

	// DiscoveredAt is when the gateway answered
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the gateway
func (g *Gateway) String() string {
	return fmt.Sprintf("imagegen gateway %q (%s) at %s", g.Instance, g.Hostname, net.JoinHostPort(g.IP, strconv.Itoa(g.Port)))
}

// BaseURL returns the HTTP base URL for the gateway
func (g *Gateway) BaseURL() string {
	base := "http://" + net.JoinHostPort(g.IP, strconv.Itoa(g.Port))
	if p := strings.Trim(g.GetMetadata("path"), "/"); p != "" {
		base += "/" + p
	}
	return base
}

// Version is the gateway build advertised in TXT, or "" if absent.
func (g *Gateway) Version() string {
	return g.GetMetadata("version")
}

// Name derives a registry key from the instance name.
func (g *Gateway) Name() string {
	name := strings.ToLower(strings.TrimSpace(g.Instance))
	name = strings.Join(strings.Fields(name), "-")
	if name == "" {
		name = strings.TrimSuffix(strings.TrimSuffix(g.Hostname, "."), ".local")
	}
	return name
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (g *Gateway) GetMetadata(key string) string {
	if g.Metadata == nil {
		return ""
	}
	return g.Metadata[key]
}
