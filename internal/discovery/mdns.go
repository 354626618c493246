// Package discovery advertises the trigger endpoint on the local network.
package discovery

import (
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"

	"github.com/enbility/zeroconf/v3"
)

const (
	// ServiceType is the DNS-SD service type of the trigger endpoint.
	ServiceType = "_remote-shutdown._tcp"

	// Domain is the mDNS domain.
	Domain = "local."

	// MaxInstanceNameLen is the DNS label limit for instance names.
	MaxInstanceNameLen = 63
)

// Info describes the advertised endpoint. The secret is never advertised.
type Info struct {
	Hostname  string
	Port      int
	Version   string
	Interface string
}

// Advertiser publishes the trigger endpoint via mDNS.
type Advertiser struct {
	logger *slog.Logger

	mu     sync.Mutex
	server *zeroconf.Server
}

// NewAdvertiser creates an advertiser that is not yet publishing.
func NewAdvertiser(logger *slog.Logger) *Advertiser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Advertiser{logger: logger.With("component", "discovery")}
}

// Advertise starts publishing info, replacing any earlier registration.
func (a *Advertiser) Advertise(info Info) error {
	if info.Port <= 0 {
		return fmt.Errorf("advertise service: invalid port %d", info.Port)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}

	instanceName := InstanceName(info.Hostname)
	server, err := zeroconf.Register(
		instanceName,
		ServiceType,
		Domain,
		info.Port,
		TXTRecords(info),
		interfaces(info.Interface),
	)
	if err != nil {
		return fmt.Errorf("register mdns service: %w", err)
	}

	a.server = server
	a.logger.Info("advertising service", "instance", instanceName, "type", ServiceType, "port", info.Port)
	return nil
}

// Stop withdraws the advertisement.
func (a *Advertiser) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
		a.logger.Info("stopped advertising")
	}
}

// InstanceName builds the DNS-SD instance name for a host.
func InstanceName(hostname string) string {
	name := strings.TrimSpace(hostname)
	if i := strings.IndexByte(name, '.'); i > 0 {
		name = name[:i]
	}
	if name == "" {
		name = "host"
	}
	name = "remote-shutdown-" + name
	if len(name) > MaxInstanceNameLen {
		name = name[:MaxInstanceNameLen]
	}
	return name
}

// TXTRecords returns the TXT strings published with the service.
func TXTRecords(info Info) []string {
	version := info.Version
	if version == "" {
		version = "dev"
	}
	return []string{
		"version=" + version,
		"path=/{secret}/shutdown",
		"delay=seconds",
	}
}

// interfaces returns the network interfaces to advertise on.
// Returns nil to use all interfaces.
func interfaces(name string) []net.Interface {
	if name == "" {
		return nil
	}
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return nil
	}
	return []net.Interface{*iface}
}
