// Package netinfo gathers best-effort facts about the device's network: the
// active transport, the LAN-facing IPv4 address, the Wi-Fi network name and the
// default gateway. Every lookup may fail; failures leave the field empty.
package netinfo

import (
	"context"
	"log"
	"net"
	"os/exec"
	"strings"
	"time"

	"github.com/jackpal/gateway"

	"waypoint/internal/domain"
)

// Provider supplies the current device network info
type Provider interface {
	DeviceInfo(ctx context.Context) domain.DeviceInfo
}

// Static is a Provider that always returns the same info. Useful when the
// embedding application already knows the device IP.
type Static domain.DeviceInfo

// DeviceInfo implements Provider
func (s Static) DeviceInfo(ctx context.Context) domain.DeviceInfo {
	return domain.DeviceInfo(s)
}

// ProviderFunc adapts a function to Provider
type ProviderFunc func(ctx context.Context) domain.DeviceInfo

// DeviceInfo implements Provider
func (f ProviderFunc) DeviceInfo(ctx context.Context) domain.DeviceInfo {
	return f(ctx)
}

// iface is the subset of a network interface the detector looks at
type iface struct {
	Name string
	IP   net.IP
}

// System reads network info from the host OS
type System struct {
	// probeAddr is dialed over UDP to learn the outbound local address. No
	// packets are sent.
	probeAddr string
	timeout   time.Duration

	localIP    func(ctx context.Context) net.IP
	interfaces func() []iface
	gateway    func() (net.IP, error)
	wifiName   func(ctx context.Context) string
}

// NewSystem creates a System provider with OS-backed lookups
func NewSystem() *System {
	s := &System{
		probeAddr: "8.8.8.8:53",
		timeout:   2 * time.Second,
	}
	s.localIP = s.dialLocalIP
	s.interfaces = listInterfaces
	s.gateway = gateway.DiscoverGateway
	s.wifiName = iwgetid
	return s
}

// DeviceInfo implements Provider
func (s *System) DeviceInfo(ctx context.Context) domain.DeviceInfo {
	info := domain.DeviceInfo{Transport: domain.TransportUnknown}

	ifaces := s.interfaces()
	ip := s.localIP(ctx)
	if ip == nil && len(ifaces) > 0 {
		ip = ifaces[0].IP
	}
	if ip != nil {
		info.IP = ip.String()
		for _, i := range ifaces {
			if i.IP.Equal(ip) {
				info.Transport = TransportForInterface(i.Name)
				break
			}
		}
	}

	if gw, err := s.gateway(); err == nil && gw != nil && !gw.IsUnspecified() {
		info.Gateway = gw.String()
	} else if err != nil {
		log.Printf("NetInfo: gateway discovery failed: %v", err)
	}

	if info.Transport == domain.TransportWiFi {
		info.WiFiName = s.wifiName(ctx)
	}

	return info
}

// TransportForInterface infers the transport from conventional interface names
func TransportForInterface(name string) domain.Transport {
	switch {
	case strings.HasPrefix(name, "wl"), strings.HasPrefix(name, "wifi"), strings.HasPrefix(name, "ath"):
		return domain.TransportWiFi
	case strings.HasPrefix(name, "wwan"), strings.HasPrefix(name, "rmnet"), strings.HasPrefix(name, "ccmni"), strings.HasPrefix(name, "pdp"):
		return domain.TransportCellular
	case strings.HasPrefix(name, "eth"), strings.HasPrefix(name, "en"), strings.HasPrefix(name, "em"):
		return domain.TransportEthernet
	default:
		return domain.TransportUnknown
	}
}

// dialLocalIP learns the LAN-facing address from an unconnected UDP socket
func (s *System) dialLocalIP(ctx context.Context) net.IP {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "udp", s.probeAddr)
	if err != nil {
		return nil
	}
	defer conn.Close()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return nil
	}
	ip := addr.IP.To4()
	if ip == nil || ip.IsLoopback() || ip.IsUnspecified() {
		return nil
	}
	return ip
}

// listInterfaces returns up, non-loopback IPv4 interfaces, skipping the
// virtual bridges container runtimes create
func listInterfaces() []iface {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil
	}

	var out []iface
	for _, ni := range ifaces {
		if ni.Flags&net.FlagLoopback != 0 || ni.Flags&net.FlagUp == 0 {
			continue
		}
		if isVirtual(ni.Name) {
			continue
		}

		addrs, err := ni.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipnet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			ip4 := ipnet.IP.To4()
			if ip4 == nil || ip4.IsLinkLocalUnicast() {
				continue
			}
			out = append(out, iface{Name: ni.Name, IP: ip4})
		}
	}
	return out
}

func isVirtual(name string) bool {
	for _, prefix := range []string{"veth", "docker", "br-", "cni", "flannel", "virbr", "tun", "tap"} {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// iwgetid asks the wireless tools for the current SSID
func iwgetid(ctx context.Context) string {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, "iwgetid", "-r").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}
