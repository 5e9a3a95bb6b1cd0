package netinfo

import (
	"bytes"
	"context"
	"errors"
	"log"
	"net"
	"os"
	"strings"
	"testing"

	"waypoint/internal/domain"
)

func TestTransportForInterface(t *testing.T) {
	tests := []struct {
		name string
		want domain.Transport
	}{
		{"wlan0", domain.TransportWiFi},
		{"wlp3s0", domain.TransportWiFi},
		{"eth0", domain.TransportEthernet},
		{"enp0s31f6", domain.TransportEthernet},
		{"rmnet_data0", domain.TransportCellular},
		{"wwan0", domain.TransportCellular},
		{"zt0", domain.TransportUnknown},
	}

	for _, tt := range tests {
		if got := TransportForInterface(tt.name); got != tt.want {
			t.Errorf("TransportForInterface(%q) = %s, want %s", tt.name, got, tt.want)
		}
	}
}

func newFakeSystem() *System {
	s := NewSystem()
	s.localIP = func(context.Context) net.IP { return net.ParseIP("192.168.29.37").To4() }
	s.interfaces = func() []iface {
		return []iface{
			{Name: "eth1", IP: net.ParseIP("10.0.0.2").To4()},
			{Name: "wlan0", IP: net.ParseIP("192.168.29.37").To4()},
		}
	}
	s.gateway = func() (net.IP, error) { return net.ParseIP("192.168.29.1"), nil }
	s.wifiName = func(context.Context) string { return "HomeNet" }
	return s
}

func TestSystemDeviceInfo(t *testing.T) {
	info := newFakeSystem().DeviceInfo(context.Background())

	want := domain.DeviceInfo{
		Transport: domain.TransportWiFi,
		IP:        "192.168.29.37",
		WiFiName:  "HomeNet",
		Gateway:   "192.168.29.1",
	}
	if info != want {
		t.Errorf("DeviceInfo() = %+v, want %+v", info, want)
	}
}

func TestSystemDeviceInfoDegrades(t *testing.T) {
	s := newFakeSystem()
	s.localIP = func(context.Context) net.IP { return nil }
	s.interfaces = func() []iface { return nil }
	s.gateway = func() (net.IP, error) { return nil, errors.New("no route") }

	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	info := s.DeviceInfo(context.Background())
	if !strings.Contains(buf.String(), "NetInfo: gateway discovery failed: no route") {
		t.Errorf("log = %q, want gateway failure logged", buf.String())
	}
	if info.IP != "" || info.Gateway != "" || info.WiFiName != "" {
		t.Errorf("expected empty info, got %+v", info)
	}
	if info.Transport != domain.TransportUnknown {
		t.Errorf("Transport = %s, want unknown", info.Transport)
	}
}

func TestSystemFallsBackToInterfaces(t *testing.T) {
	s := newFakeSystem()
	s.localIP = func(context.Context) net.IP { return nil }

	info := s.DeviceInfo(context.Background())
	if info.IP != "10.0.0.2" || info.Transport != domain.TransportEthernet {
		t.Errorf("DeviceInfo() = %+v", info)
	}
	if info.WiFiName != "" {
		t.Errorf("WiFiName should be empty on ethernet, got %q", info.WiFiName)
	}
}

func TestStaticProvider(t *testing.T) {
	p := Static{IP: "192.168.1.20"}
	if got := p.DeviceInfo(context.Background()).IP; got != "192.168.1.20" {
		t.Errorf("IP = %q", got)
	}
}
