package adapter

import (
	"context"
	"errors"
	"net"
	"reflect"
	"testing"
)

func TestExpandCIDR(t *testing.T) {
	tests := []struct {
		cidr    string
		count   int
		first   string
		last    string
		wantErr bool
	}{
		{"192.168.29.0/24", 254, "192.168.29.1", "192.168.29.254", false},
		{"10.0.0.4/30", 2, "10.0.0.5", "10.0.0.6", false},
		{"10.0.0.9", 1, "10.0.0.9", "10.0.0.9", false},
		{"10.0.0.0/16", 0, "", "", true},
		{"fd00::/120", 0, "", "", true},
		{"garbage", 0, "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.cidr, func(t *testing.T) {
			ips, err := expandCIDR(tt.cidr)
			if (err != nil) != tt.wantErr {
				t.Fatalf("expandCIDR(%q) error = %v, wantErr %v", tt.cidr, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(ips) != tt.count || ips[0] != tt.first || ips[len(ips)-1] != tt.last {
				t.Errorf("got %d ips [%s..%s], want %d [%s..%s]",
					len(ips), ips[0], ips[len(ips)-1], tt.count, tt.first, tt.last)
			}
		})
	}
}

func TestTCPSweeper_LiveHosts(t *testing.T) {
	s := NewTCPSweeper(DefaultTCPSweeperConfig(5000))
	alive := map[string]bool{"10.0.0.20:5000": true, "10.0.0.3:5000": true}
	s.dial = func(ctx context.Context, addr string) bool { return alive[addr] }

	got, err := s.LiveHosts(context.Background(), "10.0.0.0/24")
	if err != nil {
		t.Fatalf("LiveHosts() error: %v", err)
	}
	want := []string{"10.0.0.3", "10.0.0.20"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("LiveHosts() = %v, want %v (numeric order)", got, want)
	}
}

func TestTCPSweeper_RealListener(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("cannot listen: %v", err)
	}
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	s := NewTCPSweeper(DefaultTCPSweeperConfig(ln.Addr().(*net.TCPAddr).Port))
	got, err := s.LiveHosts(context.Background(), "127.0.0.1")
	if err != nil {
		t.Fatalf("LiveHosts() error: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"127.0.0.1"}) {
		t.Errorf("LiveHosts() = %v, want [127.0.0.1]", got)
	}
}

func TestTCPSweeper_InvalidPort(t *testing.T) {
	s := NewTCPSweeper(DefaultTCPSweeperConfig(0))
	if _, err := s.LiveHosts(context.Background(), "10.0.0.0/24"); err == nil {
		t.Error("expected error for port 0")
	}
}

type stubSweeper struct {
	name  string
	hosts []string
	err   error
	calls int
}

func (s *stubSweeper) Name() string { return s.name }

func (s *stubSweeper) LiveHosts(ctx context.Context, cidr string) ([]string, error) {
	s.calls++
	return s.hosts, s.err
}

func TestFallbackSweeper(t *testing.T) {
	t.Run("primary succeeds", func(t *testing.T) {
		p := &stubSweeper{name: "nmap", hosts: []string{"10.0.0.2"}}
		s := &stubSweeper{name: "tcp"}
		got, err := FallbackSweeper{Primary: p, Secondary: s}.LiveHosts(context.Background(), "10.0.0.0/24")
		if err != nil || len(got) != 1 || s.calls != 0 {
			t.Errorf("got %v, %v; secondary calls %d", got, err, s.calls)
		}
	})

	t.Run("primary fails", func(t *testing.T) {
		p := &stubSweeper{name: "nmap", err: errors.New("nmap not found")}
		s := &stubSweeper{name: "tcp", hosts: []string{"10.0.0.7"}}
		f := FallbackSweeper{Primary: p, Secondary: s}
		got, err := f.LiveHosts(context.Background(), "10.0.0.0/24")
		if err != nil || !reflect.DeepEqual(got, []string{"10.0.0.7"}) {
			t.Errorf("got %v, %v", got, err)
		}
		if f.Name() != "nmap+tcp" {
			t.Errorf("Name() = %s", f.Name())
		}
	})
}
