package adapter

import (
	"context"
	"encoding/binary"
	"fmt"
	"log"
	"net"
	"sort"
	"strconv"
	"sync"
	"time"
)

// TCPSweeperConfig holds configuration for the connect sweep
type TCPSweeperConfig struct {
	// Port is the backend port dialed on every address
	Port int
	// Timeout for individual connection attempts
	Timeout time.Duration
	// MaxConcurrent limits parallel dials
	MaxConcurrent int
}

// DefaultTCPSweeperConfig returns defaults for a /24 sweep of port
func DefaultTCPSweeperConfig(port int) TCPSweeperConfig {
	return TCPSweeperConfig{
		Port:          port,
		Timeout:       500 * time.Millisecond,
		MaxConcurrent: 64,
	}
}

// TCPSweeper finds hosts accepting connections on the backend port. It needs
// no external binary or privileges, so it backs up the nmap sweep.
type TCPSweeper struct {
	config    TCPSweeperConfig
	publisher EventPublisher
	dial      func(ctx context.Context, addr string) bool
}

// NewTCPSweeper creates a connect sweeper
func NewTCPSweeper(config TCPSweeperConfig) *TCPSweeper {
	if config.Timeout <= 0 {
		config.Timeout = 500 * time.Millisecond
	}
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 64
	}
	s := &TCPSweeper{config: config}
	s.dial = s.probePort
	return s
}

// SetEventPublisher sets the event publisher for progress updates
func (s *TCPSweeper) SetEventPublisher(pub EventPublisher) {
	s.publisher = pub
}

func (s *TCPSweeper) publishProgress(eventType string, payload interface{}) {
	if s.publisher != nil {
		s.publisher.PublishDiscoveryEvent(eventType, payload)
	}
}

// Name returns the sweeper identifier
func (s *TCPSweeper) Name() string {
	return "tcp"
}

// LiveHosts dials Port on every address in cidr and returns those that accept
func (s *TCPSweeper) LiveHosts(ctx context.Context, cidr string) ([]string, error) {
	if s.config.Port <= 0 || s.config.Port > 65535 {
		return nil, fmt.Errorf("tcp sweep: invalid port %d", s.config.Port)
	}
	ips, err := expandCIDR(cidr)
	if err != nil {
		return nil, fmt.Errorf("invalid CIDR: %w", err)
	}

	s.publishProgress("sweep-started", map[string]interface{}{
		"sweeper": s.Name(),
		"cidr":    cidr,
		"total":   len(ips),
	})

	var (
		mu   sync.Mutex
		live []string
		wg   sync.WaitGroup
	)
	jobs := make(chan string)
	for i := 0; i < s.config.MaxConcurrent && i < len(ips); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ip := range jobs {
				if s.dial(ctx, net.JoinHostPort(ip, strconv.Itoa(s.config.Port))) {
					mu.Lock()
					live = append(live, ip)
					mu.Unlock()
				}
			}
		}()
	}

feed:
	for _, ip := range ips {
		select {
		case jobs <- ip:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	sort.Slice(live, func(i, j int) bool { return ipLess(live[i], live[j]) })

	log.Printf("TCP sweep of %s port %d: %d live hosts", cidr, s.config.Port, len(live))
	s.publishProgress("sweep-complete", map[string]interface{}{
		"sweeper": s.Name(),
		"cidr":    cidr,
		"live":    len(live),
	})

	if err := ctx.Err(); err != nil {
		return live, err
	}
	return live, nil
}

// probePort attempts to connect to a TCP address
func (s *TCPSweeper) probePort(ctx context.Context, addr string) bool {
	dialer := net.Dialer{Timeout: s.config.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// FallbackSweeper uses Primary and switches to Secondary when Primary fails
type FallbackSweeper struct {
	Primary   HostSweeper
	Secondary HostSweeper
}

func (f FallbackSweeper) Name() string {
	return f.Primary.Name() + "+" + f.Secondary.Name()
}

func (f FallbackSweeper) LiveHosts(ctx context.Context, cidr string) ([]string, error) {
	hosts, err := f.Primary.LiveHosts(ctx, cidr)
	if err == nil || ctx.Err() != nil {
		return hosts, err
	}
	log.Printf("%s sweep failed, falling back to %s: %v", f.Primary.Name(), f.Secondary.Name(), err)
	return f.Secondary.LiveHosts(ctx, cidr)
}

// expandCIDR lists host addresses in an IPv4 CIDR, skipping network and
// broadcast addresses for /24 and larger
func expandCIDR(cidr string) ([]string, error) {
	_, ipNet, err := net.ParseCIDR(cidr)
	if err != nil {
		if ip := net.ParseIP(cidr).To4(); ip != nil {
			return []string{ip.String()}, nil
		}
		return nil, err
	}

	ip := ipNet.IP.To4()
	if ip == nil {
		return nil, fmt.Errorf("only IPv4 supported")
	}

	networkInt := binary.BigEndian.Uint32(ip)
	maskInt := binary.BigEndian.Uint32(ipNet.Mask)
	first := networkInt & maskInt
	last := first | ^maskInt

	ones, bits := ipNet.Mask.Size()
	if ones <= 24 && bits == 32 {
		first++
		last--
	}

	// Anything wider than a /22 is not a device subnet worth sweeping
	if last-first > 1024 {
		return nil, fmt.Errorf("CIDR range too large (max 1024 IPs)")
	}

	ips := make([]string, 0, last-first+1)
	for n := first; n <= last; n++ {
		b := make(net.IP, 4)
		binary.BigEndian.PutUint32(b, n)
		ips = append(ips, b.String())
	}
	return ips, nil
}

var (
	_ HostSweeper = (*TCPSweeper)(nil)
	_ HostSweeper = FallbackSweeper{}
)
