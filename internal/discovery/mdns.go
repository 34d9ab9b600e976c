// ABOUTME: mDNS advertisement and lookup for mixfix servers
// ABOUTME: Announces the HTTP API on the local network as _mixfix._tcp and finds it again
package discovery

import (
	"context"
	"fmt"
	"log"
	"net"
	"strconv"
	"time"

	"github.com/hashicorp/mdns"
)

// ServiceType is the mDNS service type advertised by the server
const ServiceType = "_mixfix._tcp"

// Config holds discovery configuration
type Config struct {
	ServiceName string
	Port        int
	// Version is published in the TXT record
	Version string
}

// Manager handles mDNS operations
type Manager struct {
	config Config
	ctx    context.Context
	cancel context.CancelFunc
}

// NewManager creates a discovery manager
func NewManager(config Config) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		config: config,
		ctx:    ctx,
		cancel: cancel,
	}
}

// txtRecords describes the API endpoints for browsers of the service
func (m *Manager) txtRecords() []string {
	txt := []string{"path=/api", "ws=/ws"}
	if m.config.Version != "" {
		txt = append(txt, "version="+m.config.Version)
	}
	return txt
}

// Advertise announces the server via mDNS until Stop is called
func (m *Manager) Advertise() error {
	if m.config.ServiceName == "" {
		return fmt.Errorf("service name is required")
	}
	if m.config.Port <= 0 {
		return fmt.Errorf("invalid port: %d", m.config.Port)
	}

	ips, err := getLocalIPs()
	if err != nil {
		return fmt.Errorf("failed to get local IPs: %w", err)
	}

	service, err := mdns.NewMDNSService(
		m.config.ServiceName,
		ServiceType,
		"",
		"",
		m.config.Port,
		ips,
		m.txtRecords(),
	)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return fmt.Errorf("failed to create mdns server: %w", err)
	}

	log.Printf("Advertising mDNS service: %s on port %d (type: %s)", m.config.ServiceName, m.config.Port, ServiceType)

	go func() {
		<-m.ctx.Done()
		server.Shutdown()
	}()

	return nil
}

// Stop withdraws the advertisement
func (m *Manager) Stop() {
	m.cancel()
}

// ServerInfo describes a discovered mixfix server
type ServerInfo struct {
	Name string
	Host string
	Port int
}

// Addr returns host:port for the server
func (s ServerInfo) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// Lookup queries the local network for mixfix servers for up to timeout
func Lookup(ctx context.Context, timeout time.Duration) ([]ServerInfo, error) {
	entries := make(chan *mdns.ServiceEntry, 10)
	done := make(chan []ServerInfo, 1)

	go func() {
		var servers []ServerInfo
		for entry := range entries {
			if entry.AddrV4 == nil {
				continue
			}
			server := ServerInfo{
				Name: entry.Name,
				Host: entry.AddrV4.String(),
				Port: entry.Port,
			}
			log.Printf("Discovered server: %s at %s", server.Name, server.Addr())
			servers = append(servers, server)
		}
		done <- servers
	}()

	params := mdns.DefaultParams(ServiceType)
	params.Entries = entries
	params.Timeout = timeout
	params.DisableIPv6 = true

	queryErr := make(chan error, 1)
	go func() {
		queryErr <- mdns.Query(params)
		close(entries)
	}()

	select {
	case err := <-queryErr:
		servers := <-done
		if err != nil {
			return nil, fmt.Errorf("mdns query failed: %w", err)
		}
		return servers, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// getLocalIPs returns local IPv4 addresses of interfaces that are up
func getLocalIPs() ([]net.IP, error) {
	var ips []net.IP

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
				if ipnet.IP.To4() != nil {
					ips = append(ips, ipnet.IP)
				}
			}
		}
	}

	return ips, nil
}
