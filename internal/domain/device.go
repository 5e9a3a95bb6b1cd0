package domain

import "net"

// Transport is the device's active network transport
type Transport string

const (
	TransportWiFi     Transport = "wifi"
	TransportEthernet Transport = "ethernet"
	TransportCellular Transport = "cellular"
	TransportUnknown  Transport = "unknown"
)

// DeviceInfo is best-effort knowledge about the device's network. Any field may
// be empty.
type DeviceInfo struct {
	Transport Transport `json:"transport"`
	IP        string    `json:"ip,omitempty"`
	WiFiName  string    `json:"wifi_name,omitempty"`
	Gateway   string    `json:"gateway,omitempty"`
}

// IPv4 returns the device IP as a 4-byte address, or nil
func (d DeviceInfo) IPv4() net.IP {
	ip := net.ParseIP(d.IP)
	if ip == nil {
		return nil
	}
	return ip.To4()
}
