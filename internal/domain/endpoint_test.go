package domain

import (
	"errors"
	"testing"
)

func TestEndpointBaseURL(t *testing.T) {
	tests := []struct {
		name string
		ep   Endpoint
		want string
	}{
		{"with port and prefix", NewEndpoint("http", "192.168.29.2", 5000, "api"), "http://192.168.29.2:5000/api/"},
		{"no port", NewEndpoint("https", "backend.example.com", 0, "/api/"), "https://backend.example.com/api/"},
		{"empty prefix", NewEndpoint("http", "10.0.0.5", 8080, ""), "http://10.0.0.5:8080/"},
		{"default scheme", NewEndpoint("", "127.0.0.1", 5000, "api"), "http://127.0.0.1:5000/api/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ep.BaseURL(); got != tt.want {
				t.Errorf("BaseURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEndpointResolve(t *testing.T) {
	ep := NewEndpoint("http", "10.1.1.9", 5000, "/api")
	if got := ep.Resolve("/health"); got != "http://10.1.1.9:5000/api/health" {
		t.Errorf("Resolve() = %q", got)
	}
	if got := ep.Resolve("health"); got != "http://10.1.1.9:5000/api/health" {
		t.Errorf("Resolve() = %q", got)
	}
}

func TestParseEndpoint(t *testing.T) {
	ep, err := ParseEndpoint("http://10.1.1.9:5000/api/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Endpoint{Scheme: "http", Host: "10.1.1.9", Port: 5000, PathPrefix: "/api/"}
	if ep != want {
		t.Errorf("ParseEndpoint() = %+v, want %+v", ep, want)
	}
	if ep.BaseURL() != "http://10.1.1.9:5000/api/" {
		t.Errorf("round trip = %q", ep.BaseURL())
	}

	for _, bad := range []string{"", "ftp://host/", "http://", "http://host:99999/", "://x"} {
		if _, err := ParseEndpoint(bad); err == nil {
			t.Errorf("ParseEndpoint(%q) expected error", bad)
		}
	}
}

func TestParseOverride(t *testing.T) {
	template := NewEndpoint("http", "127.0.0.1", 5000, "/api/")

	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"10.1.1.50", "http://10.1.1.50:5000/api/", false},
		{" 10.1.1.50 ", "http://10.1.1.50:5000/api/", false},
		{"10.1.1.50:8080", "http://10.1.1.50:8080/api/", false},
		{"backend.lan", "http://backend.lan:5000/api/", false},
		{"https://prod.example.com/api/", "https://prod.example.com/api/", false},
		{"", "", true},
		{"10.1.1", "", true},
		{"192.168.1.300", "", true},
		{"10.1.1.50:0", "", true},
		{"10.1.1.50:abc", "", true},
		{"bad host!", "", true},
		{"-leading.lan", "", true},
		{"ftp://files.lan/", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseOverride(tt.input, template)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidOverrideFormat) {
					t.Fatalf("ParseOverride(%q) err = %v, want ErrInvalidOverrideFormat", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.BaseURL() != tt.want {
				t.Errorf("ParseOverride(%q) = %q, want %q", tt.input, got.BaseURL(), tt.want)
			}
		})
	}
}

func TestDeviceInfoIPv4(t *testing.T) {
	if ip := (DeviceInfo{IP: "192.168.29.37"}).IPv4(); ip == nil || ip.String() != "192.168.29.37" {
		t.Errorf("IPv4() = %v", ip)
	}
	if ip := (DeviceInfo{}).IPv4(); ip != nil {
		t.Errorf("IPv4() on empty = %v, want nil", ip)
	}
	if ip := (DeviceInfo{IP: "fe80::1"}).IPv4(); ip != nil {
		t.Errorf("IPv4() on v6 = %v, want nil", ip)
	}
}
